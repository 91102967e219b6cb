package vehicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/auth"
	"github.com/AutoDeal/AutoDeal/internal/common/config"
	"github.com/AutoDeal/AutoDeal/internal/common/server"
	"github.com/gin-gonic/gin"
)

var testAuthCfg = config.AuthConfig{
	Enabled:   true,
	JWTSecret: "test-secret",
	Issuer:    "autodeal",
	PublicPaths: []string{
		"GET /api/v1/vehicles/:id",
		"GET /api/v1/vehicles/available",
		"GET /api/v1/vehicles/sold",
	},
}

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(newMockRepo(), &mockPublisher{}, nil)
	api := NewHTTPServer(svc, nil)

	engine := gin.New()
	engine.Use(server.JWTAuth(testAuthCfg, nil))
	if err := api.RegisterRoutes(engine); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return engine, svc
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := auth.GenerateAccessToken(testAuthCfg, subject, []string{"user"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRegisterVehicleHTTP(t *testing.T) {
	engine, _ := newTestRouter(t)
	token := bearerToken(t, "admin-1")

	w := doJSON(t, engine, http.MethodPost, "/api/v1/vehicles", token, vehicleRequest{
		BrandName: "Toyota", Model: "Prius", Year: 2020, Color: "white", Price: 21000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var out vehicleJSON
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID == 0 || out.BrandName != "Toyota" || out.Sold != nil {
		t.Fatalf("unexpected response: %+v", out)
	}

	// 校验失败 -> 400
	w = doJSON(t, engine, http.MethodPost, "/api/v1/vehicles", token, vehicleRequest{
		BrandName: "Toyota", Model: "Prius", Year: 1700, Color: "white", Price: 21000,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// model 唯一冲突 -> 409
	w = doJSON(t, engine, http.MethodPost, "/api/v1/vehicles", token, vehicleRequest{
		BrandName: "Honda", Model: "Prius", Year: 2021, Color: "red", Price: 25000,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetVehicleHTTP(t *testing.T) {
	engine, svc := newTestRouter(t)

	v, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// 读接口免鉴权
	w := doJSON(t, engine, http.MethodGet, fmt.Sprintf("/api/v1/vehicles/%d", v.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/vehicles/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/vehicles/abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestSaleLifecycleHTTP(t *testing.T) {
	engine, svc := newTestRouter(t)
	token := bearerToken(t, "buyer-1")

	v, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	salePath := fmt.Sprintf("/api/v1/vehicles/%d/sale", v.ID)

	// 未带 token -> 401（买家取自 JWT sub）
	w := doJSON(t, engine, http.MethodPost, salePath, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodPost, salePath, token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var initiated struct {
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &initiated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if initiated.IdempotencyKey == "" {
		t.Fatalf("expected idempotency key in response")
	}

	// 重复发起 -> 409
	w = doJSON(t, engine, http.MethodPost, salePath, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodPost, salePath+"/confirm", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 已成交列表内嵌销售详情
	w = doJSON(t, engine, http.MethodGet, "/api/v1/vehicles/sold", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var listed struct {
		Vehicles []vehicleJSON `json:"vehicles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed.Vehicles) != 1 || listed.Vehicles[0].Sold == nil {
		t.Fatalf("unexpected sold list: %+v", listed.Vehicles)
	}
	if listed.Vehicles[0].Sold.Status != string(StatusSold) || listed.Vehicles[0].Sold.SoldDate == nil {
		t.Fatalf("unexpected sale detail: %+v", listed.Vehicles[0].Sold)
	}

	// 已成交不允许撤销 -> 409
	w = doJSON(t, engine, http.MethodDelete, salePath, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestRevertSaleHTTP(t *testing.T) {
	engine, svc := newTestRouter(t)
	token := bearerToken(t, "buyer-1")

	v, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	salePath := fmt.Sprintf("/api/v1/vehicles/%d/sale", v.ID)

	// 未发起就撤销 -> 409
	w := doJSON(t, engine, http.MethodDelete, salePath, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	if _, err := svc.InitializeSale(context.Background(), v.ID, "buyer-1"); err != nil {
		t.Fatalf("InitializeSale: %v", err)
	}
	w = doJSON(t, engine, http.MethodDelete, salePath, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 回退后回到在售列表
	w = doJSON(t, engine, http.MethodGet, "/api/v1/vehicles/available", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var listed struct {
		Vehicles []vehicleJSON `json:"vehicles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed.Vehicles) != 1 || listed.Vehicles[0].ID != v.ID {
		t.Fatalf("unexpected available list: %+v", listed.Vehicles)
	}
}

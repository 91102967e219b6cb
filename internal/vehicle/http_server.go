package vehicle

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/common/server"
	"github.com/gin-gonic/gin"
)

// HTTPServer 车辆销售 REST API。
type HTTPServer struct {
	svc *Service
	log logger.Logger
}

// NewHTTPServer 创建 HTTP 服务
func NewHTTPServer(svc *Service, log logger.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, log: log}
}

// RegisterRoutes 注册路由
func (h *HTTPServer) RegisterRoutes(r gin.IRouter) error {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/vehicles", h.registerVehicle)
		v1.GET("/vehicles/available", h.listAvailable)
		v1.GET("/vehicles/sold", h.listSold)
		v1.GET("/vehicles/:id", h.getVehicle)
		v1.PUT("/vehicles/:id", h.updateVehicle)
		v1.POST("/vehicles/:id/sale", h.initializeSale)
		v1.POST("/vehicles/:id/sale/confirm", h.confirmSale)
		v1.DELETE("/vehicles/:id/sale", h.revertSale)
	}
	return nil
}

// vehicleRequest 注册/更新车辆的请求体
type vehicleRequest struct {
	BrandName string  `json:"brand_name"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Color     string  `json:"color"`
	Price     float64 `json:"price"`
}

func (r vehicleRequest) toInput() Input {
	return Input{
		BrandName: r.BrandName,
		Model:     r.Model,
		Year:      r.Year,
		Color:     r.Color,
		Price:     r.Price,
	}
}

// saleJSON 销售详情（仅已发起/已成交的车辆携带）
type saleJSON struct {
	OrderID   uint    `json:"order_id"`
	VehicleID uint    `json:"vehicle_id"`
	Status    string  `json:"status"`
	SoldPrice float64 `json:"sold_price"`
	SoldDate  *string `json:"sold_date"`
	UserID    string  `json:"user_id"`
}

// vehicleJSON 车辆的出参表示
type vehicleJSON struct {
	ID        uint      `json:"id"`
	BrandName string    `json:"brand_name"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Color     string    `json:"color"`
	Price     float64   `json:"price"`
	Sold      *saleJSON `json:"sold"`
}

func toVehicleJSON(v *Vehicle) vehicleJSON {
	out := vehicleJSON{
		ID:        v.ID,
		BrandName: v.BrandName(),
		Model:     v.Model,
		Year:      v.Year,
		Color:     v.Color,
		Price:     v.Price,
	}
	if v.Sold != nil {
		s := &saleJSON{
			OrderID:   v.Sold.OrderID,
			VehicleID: v.Sold.VehicleID,
			Status:    string(v.Sold.Status),
			SoldPrice: v.Sold.SoldPrice,
			UserID:    v.Sold.UserID,
		}
		if v.Sold.SoldDate != nil {
			d := v.Sold.SoldDate.Format(time.RFC3339)
			s.SoldDate = &d
		}
		out.Sold = s
	}
	return out
}

func (h *HTTPServer) registerVehicle(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	v, err := h.svc.Register(c.Request.Context(), req.toInput())
	if err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVehicleJSON(v))
}

func (h *HTTPServer) updateVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	v, err := h.svc.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleJSON(v))
}

func (h *HTTPServer) getVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleJSON(v))
}

func (h *HTTPServer) listAvailable(c *gin.Context) {
	vehicles, err := h.svc.ListAvailable(c.Request.Context())
	if err != nil {
		h.replyError(c, err)
		return
	}
	h.replyList(c, vehicles)
}

func (h *HTTPServer) listSold(c *gin.Context) {
	vehicles, err := h.svc.ListSold(c.Request.Context())
	if err != nil {
		h.replyError(c, err)
		return
	}
	h.replyList(c, vehicles)
}

func (h *HTTPServer) replyList(c *gin.Context, vehicles []Vehicle) {
	out := make([]vehicleJSON, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, toVehicleJSON(&vehicles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": out})
}

func (h *HTTPServer) initializeSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	// 买家 ID 来自 JWT 的 sub，不信任请求体
	ai, ok := server.AuthFromContext(c.Request.Context())
	if !ok || ai.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing authenticated user"})
		return
	}

	key, err := h.svc.InitializeSale(c.Request.Context(), id, ai.Subject)
	if err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":         "sale initiated",
		"idempotency_key": key,
	})
}

func (h *HTTPServer) confirmSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.ConfirmSale(c.Request.Context(), id); err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sale confirmed"})
}

func (h *HTTPServer) revertSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.RevertSale(c.Request.Context(), id); err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sale reverted"})
}

// pathID 解析路径中的车辆 ID；非法时直接响应 400。
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid vehicle id"})
		return 0, false
	}
	return uint(id), true
}

// replyError 把领域错误统一翻译成 HTTP 响应。
func (h *HTTPServer) replyError(c *gin.Context, err error) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError && h.log != nil {
		h.log.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"message": msg})
}

func statusOf(err error) (int, string) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return http.StatusConflict, ce.Error()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrNotFound.Error()
	case errors.Is(err, ErrAlreadySold):
		return http.StatusConflict, ErrAlreadySold.Error()
	case errors.Is(err, ErrSaleNotInitialized):
		return http.StatusConflict, ErrSaleNotInitialized.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

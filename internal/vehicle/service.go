package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/google/uuid"
)

// SaleInitiatedEvent 发往支付发起队列的事件载荷。
// 幂等键一次一发：下游凭它去重，重投不会被二次处理。
type SaleInitiatedEvent struct {
	VehicleID      uint   `json:"vehicle_id"`
	OrderID        uint   `json:"order_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Publisher 支付发起事件的出站通道（fire-and-forget）。
// 投递失败不回滚已落库的状态流转，由下游按 at-least-once 兜底。
type Publisher interface {
	PublishSaleInitiated(ctx context.Context, ev SaleInitiatedEvent) error
}

// Service 封装车辆销售领域的核心用例（不依赖 HTTP / 队列），便于复用和测试。
type Service struct {
	repo Repository
	pub  Publisher
	log  logger.Logger
}

// NewService 创建服务。pub 可以为 nil（如只消费队列的 worker 进程）。
func NewService(repo Repository, pub Publisher, log logger.Logger) *Service {
	return &Service{repo: repo, pub: pub, log: log}
}

// Register 校验并登记一辆新车，返回带存储分配 ID 的实体。
func (s *Service) Register(ctx context.Context, in Input) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := New(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, v)
}

// Update 用新字段值覆盖既有车辆；车辆不存在返回 ErrNotFound。
func (s *Service) Update(ctx context.Context, id uint, in Input) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := New(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, v)
}

func (s *Service) Get(ctx context.Context, id uint) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.Get(ctx, id)
}

// ListAvailable 在售车辆（无销售记录），价格升序。
func (s *Service) ListAvailable(ctx context.Context) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListAvailable(ctx)
}

// ListSold 已发起/已成交车辆，价格升序，销售详情内嵌。
func (s *Service) ListSold(ctx context.Context) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListSold(ctx)
}

// InitializeSale 状态流转 available -> draft：
// 创建草稿销售记录（成交价取车辆当前价格）、生成幂等键、
// 向支付发起队列投递一条事件，并把幂等键返回给调用方。
// 发起是一次性的：已存在销售记录（无论状态）即返回 ErrAlreadySold。
func (s *Service) InitializeSale(ctx context.Context, vehicleID uint, userID string) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("service not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", &ValidationError{Field: "user_id", Constraint: "required"}
	}

	v, err := s.repo.GetWithSale(ctx, vehicleID)
	if err != nil {
		return "", err
	}
	if SaleState(v.Sold) != StatusAvailable {
		return "", ErrAlreadySold
	}

	rec, err := s.repo.InitializeSale(ctx, v, userID)
	if err != nil {
		return "", err
	}

	key := uuid.NewString()
	if s.pub != nil {
		ev := SaleInitiatedEvent{
			VehicleID:      v.ID,
			OrderID:        rec.OrderID,
			IdempotencyKey: key,
		}
		// 草稿已落库：投递失败只记日志，不回滚
		if err := s.pub.PublishSaleInitiated(ctx, ev); err != nil && s.log != nil {
			s.log.Warnf("failed to publish sale initiated event vehicle_id=%d order_id=%d: %v",
				v.ID, rec.OrderID, err)
		}
	}
	return key, nil
}

// ConfirmSale 状态流转 draft -> sold：
// 写入成交时间，并按车辆当前价格刷新成交价。
func (s *Service) ConfirmSale(ctx context.Context, vehicleID uint) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	v, err := s.repo.GetWithSale(ctx, vehicleID)
	if err != nil {
		return err
	}
	if err := ApplyConfirm(v.Sold, v.Price, time.Now()); err != nil {
		return err
	}
	return s.repo.ConfirmSale(ctx, v)
}

// RevertSale 状态流转 draft -> available：删除草稿销售记录。
// 已成交的销售不允许经由该路径回退。
func (s *Service) RevertSale(ctx context.Context, vehicleID uint) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	v, err := s.repo.GetWithSale(ctx, vehicleID)
	if err != nil {
		return err
	}
	if err := ApplyRevert(v.Sold); err != nil {
		return err
	}
	return s.repo.RevertSale(ctx, v)
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/common/middleware"
	"github.com/AutoDeal/AutoDeal/internal/vehicle"
	"github.com/redis/go-redis/v9"
)

// QueuePublisher 把支付发起事件 LPUSH 到 Redis 列表队列。
// 出站路径包一层熔断：Redis 持续不可用时快速失败，避免拖慢销售发起接口。
type QueuePublisher struct {
	client  *redis.Client
	queue   string
	breaker *middleware.CircuitBreaker
	log     logger.Logger
}

// NewQueuePublisher 创建支付队列投递器
func NewQueuePublisher(client *redis.Client, queue string, log logger.Logger) *QueuePublisher {
	return &QueuePublisher{
		client:  client,
		queue:   queue,
		breaker: middleware.NewCircuitBreaker("payment-queue", 5, 30*time.Second),
		log:     log,
	}
}

// PublishSaleInitiated 投递支付发起事件
func (p *QueuePublisher) PublishSaleInitiated(ctx context.Context, ev vehicle.SaleInitiatedEvent) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher not initialized")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.breaker.Call(ctx, func() error {
		return p.client.LPush(ctx, p.queue, payload).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to push event to %s: %w", p.queue, err)
	}

	if p.log != nil {
		p.log.Debugf("sale initiated event published queue=%s vehicle_id=%d order_id=%d",
			p.queue, ev.VehicleID, ev.OrderID)
	}
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/logger"
	"github.com/AutoDeal/AutoDeal/internal/vehicle"
	"github.com/redis/go-redis/v9"
)

// CancelMessage 取消销售消息：支付侧超时/失败后投递，要求把草稿回退成在售。
type CancelMessage struct {
	VehicleID uint `json:"vehicle_id"`
}

// CancelConsumer 消费取消销售队列，驱动 draft -> available 回退。
type CancelConsumer struct {
	client *redis.Client
	queue  string
	svc    *vehicle.Service
	log    logger.Logger
}

// NewCancelConsumer 创建取消队列消费者
func NewCancelConsumer(client *redis.Client, queue string, svc *vehicle.Service, log logger.Logger) *CancelConsumer {
	return &CancelConsumer{client: client, queue: queue, svc: svc, log: log}
}

// Run 阻塞消费队列直到 ctx 取消。
func (cc *CancelConsumer) Run(ctx context.Context) error {
	if cc == nil || cc.client == nil || cc.svc == nil {
		return fmt.Errorf("consumer not initialized")
	}
	cc.log.Infof("cancel consumer started queue=%s", cc.queue)

	for {
		if err := ctx.Err(); err != nil {
			cc.log.Info("cancel consumer stopped")
			return nil
		}

		res, err := cc.client.BRPop(ctx, 5*time.Second, cc.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				cc.log.Info("cancel consumer stopped")
				return nil
			}
			cc.log.Errorf("failed to pop from %s: %v", cc.queue, err)
			time.Sleep(time.Second)
			continue
		}
		// BRPop 返回 [key, value]
		if len(res) < 2 {
			continue
		}
		cc.handle(ctx, []byte(res[1]))
	}
}

func (cc *CancelConsumer) handle(ctx context.Context, payload []byte) {
	var msg CancelMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		cc.log.Warnf("discarding malformed cancel message: %v", err)
		return
	}
	if msg.VehicleID == 0 {
		cc.log.Warn("discarding cancel message without vehicle_id")
		return
	}

	err := cc.svc.RevertSale(ctx, msg.VehicleID)
	switch {
	case err == nil:
		cc.log.Infof("sale reverted vehicle_id=%d", msg.VehicleID)
	case errors.Is(err, vehicle.ErrSaleNotInitialized):
		// 重复投递或已被 API 侧回退，按幂等处理
		cc.log.Infof("no draft sale to revert vehicle_id=%d", msg.VehicleID)
	case errors.Is(err, vehicle.ErrAlreadySold):
		cc.log.Warnf("cannot revert completed sale vehicle_id=%d", msg.VehicleID)
	case errors.Is(err, vehicle.ErrNotFound):
		cc.log.Warnf("cancel message for unknown vehicle_id=%d", msg.VehicleID)
	default:
		cc.log.Errorf("failed to revert sale vehicle_id=%d: %v", msg.VehicleID, err)
	}
}

package service

import (
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/queue"

	"github.com/hibiken/asynq"
)

// EventPublisher 会员事件发布接口（*queue.Client 实现）
type EventPublisher interface {
	EnqueueLoyaltyEvent(payload queue.LoyaltyEventPayload, opts ...asynq.Option) error
}

// publishEvents 事务提交后投递事件，失败只记录日志，不影响账本写入
func publishEvents(publisher EventPublisher, events []queue.LoyaltyEventPayload) {
	if publisher == nil || len(events) == 0 {
		return
	}
	for _, event := range events {
		if err := publisher.EnqueueLoyaltyEvent(event); err != nil {
			logger.Warnw("loyalty_event_enqueue_failed",
				"tenant_id", event.TenantID,
				"customer_id", event.CustomerID,
				"event_type", event.Type,
				"error", err,
			)
		}
	}
}

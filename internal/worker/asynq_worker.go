package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/provider"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLoyaltyDaily, c.handleLoyaltyDaily)
	mux.HandleFunc(queue.TaskLoyaltyTenantDaily, c.handleLoyaltyTenantDaily)
	mux.HandleFunc(queue.TaskLoyaltyEvent, c.handleLoyaltyEvent)
}

func (c *Consumer) handleLoyaltyDaily(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_loyalty_daily_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LoyaltyDailyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_loyalty_daily_unmarshal_failed", "error", err)
		return err
	}
	if c.LoyaltyJobService == nil {
		logger.Warnw("worker_loyalty_daily_skip_service_nil")
		return nil
	}
	var (
		summary *service.JobRunSummary
		err     error
	)
	if payload.Stage != "" {
		summary, err = c.LoyaltyJobService.RunStage(ctx, payload.Stage, 0, payload.Trigger)
	} else {
		summary, err = c.LoyaltyJobService.RunAll(ctx, payload.Trigger)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobAlreadyRunning):
			logger.Infow("worker_loyalty_daily_skip_running", "stage", payload.Stage)
			return nil
		case errors.Is(err, service.ErrJobStageUnknown):
			// 重试无意义
			logger.Warnw("worker_loyalty_daily_unknown_stage", "stage", payload.Stage)
			return nil
		}
		logger.Warnw("worker_loyalty_daily_failed", "error", err)
		return err
	}
	logger.Infow("worker_loyalty_daily_done",
		"run_id", summary.RunID,
		"stages", summary.Stages,
		"status", summary.Status,
		"tenants", summary.TenantsProcessed,
	)
	return nil
}

func (c *Consumer) handleLoyaltyTenantDaily(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_loyalty_tenant_daily_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LoyaltyTenantDailyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_loyalty_tenant_daily_unmarshal_failed", "error", err)
		return err
	}
	if payload.TenantID == 0 {
		logger.Debugw("worker_loyalty_tenant_daily_skip_invalid_payload", "tenant_id", payload.TenantID)
		return nil
	}
	if c.LoyaltyJobService == nil {
		logger.Warnw("worker_loyalty_tenant_daily_skip_service_nil", "tenant_id", payload.TenantID)
		return nil
	}
	var (
		summary *service.JobRunSummary
		err     error
	)
	if payload.Stage != "" {
		summary, err = c.LoyaltyJobService.RunStage(ctx, payload.Stage, payload.TenantID, payload.Trigger)
	} else {
		summary, err = c.LoyaltyJobService.RunTenant(ctx, payload.TenantID, payload.Trigger)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobAlreadyRunning):
			logger.Infow("worker_loyalty_tenant_daily_skip_running", "tenant_id", payload.TenantID)
			return nil
		case errors.Is(err, service.ErrJobStageUnknown):
			logger.Warnw("worker_loyalty_tenant_daily_unknown_stage", "tenant_id", payload.TenantID, "stage", payload.Stage)
			return nil
		default:
			logger.Warnw("worker_loyalty_tenant_daily_failed", "tenant_id", payload.TenantID, "error", err)
			return err
		}
	}
	logger.Infow("worker_loyalty_tenant_daily_done",
		"tenant_id", payload.TenantID,
		"run_id", summary.RunID,
		"status", summary.Status,
	)
	return nil
}

// handleLoyaltyEvent 会员事件由下游通知服务订阅渲染，这里只做记录
func (c *Consumer) handleLoyaltyEvent(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_loyalty_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LoyaltyEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_loyalty_event_unmarshal_failed", "error", err)
		return err
	}
	if payload.TenantID == 0 || payload.Type == "" {
		logger.Debugw("worker_loyalty_event_skip_invalid_payload", "tenant_id", payload.TenantID, "event_type", payload.Type)
		return nil
	}
	logger.Infow("worker_loyalty_event",
		"tenant_id", payload.TenantID,
		"customer_id", payload.CustomerID,
		"event_type", payload.Type,
		"points_delta", payload.PointsDelta,
		"balance", payload.Balance,
		"tier", payload.Tier,
	)
	return nil
}

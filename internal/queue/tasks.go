package queue

import (
	"encoding/json"
	"time"

	"github.com/dinepoints/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLoyaltyDaily 每日积分任务（全部商户）
	TaskLoyaltyDaily = constants.TaskLoyaltyDaily
	// TaskLoyaltyTenantDaily 单商户积分任务
	TaskLoyaltyTenantDaily = constants.TaskLoyaltyTenantDaily
	// TaskLoyaltyEvent 会员事件投递任务
	TaskLoyaltyEvent = constants.TaskLoyaltyEvent
)

// LoyaltyDailyPayload 每日任务载荷
type LoyaltyDailyPayload struct {
	Trigger string `json:"trigger"`         // schedule / manual
	Stage   string `json:"stage,omitempty"` // 为空时执行全部阶段
}

// LoyaltyTenantDailyPayload 单商户任务载荷
type LoyaltyTenantDailyPayload struct {
	TenantID uint   `json:"tenant_id"`
	Trigger  string `json:"trigger"`
	Stage    string `json:"stage,omitempty"`
}

// LoyaltyEventPayload 会员事件载荷，供下游通知服务渲染消息
type LoyaltyEventPayload struct {
	TenantID    uint                   `json:"tenant_id"`
	CustomerID  uint                   `json:"customer_id"`
	Type        string                 `json:"event_type"`
	PointsDelta int64                  `json:"points_delta"`
	AmountDelta string                 `json:"amount_delta,omitempty"`
	Balance     int64                  `json:"balance"`
	Tier        string                 `json:"tier"`
	Description string                 `json:"description,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// NewLoyaltyDailyTask 创建每日任务
func NewLoyaltyDailyTask(payload LoyaltyDailyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyDaily, body), nil
}

// NewLoyaltyTenantDailyTask 创建单商户任务
func NewLoyaltyTenantDailyTask(payload LoyaltyTenantDailyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyTenantDaily, body), nil
}

// NewLoyaltyEventTask 创建会员事件任务
func NewLoyaltyEventTask(payload LoyaltyEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyEvent, body), nil
}

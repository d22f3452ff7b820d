package admin

import (
	"errors"
	"io"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// TriggerTenantJobRequest 手动触发单商户任务
type TriggerTenantJobRequest struct {
	TenantID uint `json:"tenant_id" binding:"required"`
}

// GetCronStatus 每日任务状态
func (h *Handler) GetCronStatus(c *gin.Context) {
	status, err := h.LoyaltyJobService.Status(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.job_status_failed", err)
		return
	}
	response.Success(c, status)
}

// TriggerTenantJob 手动触发单个商户的每日任务；启用队列时异步投递
func (h *Handler) TriggerTenantJob(c *gin.Context) {
	var req TriggerTenantJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueLoyaltyTenantDaily(queue.LoyaltyTenantDailyPayload{
			TenantID: req.TenantID,
			Trigger:  constants.JobTriggerManual,
		})
		if err != nil {
			respondError(c, response.CodeInternal, "error.job_trigger_failed", err)
			return
		}
		requestLog(c).Infow("admin_loyalty_job_enqueued", "tenant_id", req.TenantID)
		response.Success(c, gin.H{"queued": true, "tenant_id": req.TenantID})
		return
	}
	summary, err := h.LoyaltyJobService.RunTenant(c.Request.Context(), req.TenantID, constants.JobTriggerManual)
	if err != nil {
		respondJobError(c, err)
		return
	}
	response.Success(c, summary)
}

// TriggerAllTenantsJob 手动触发全部商户的每日任务
func (h *Handler) TriggerAllTenantsJob(c *gin.Context) {
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueLoyaltyDaily(queue.LoyaltyDailyPayload{Trigger: constants.JobTriggerManual})
		if err != nil {
			respondError(c, response.CodeInternal, "error.job_trigger_failed", err)
			return
		}
		requestLog(c).Infow("admin_loyalty_job_all_enqueued")
		response.Success(c, gin.H{"queued": true})
		return
	}
	summary, err := h.LoyaltyJobService.RunAll(c.Request.Context(), constants.JobTriggerManual)
	if err != nil {
		respondJobError(c, err)
		return
	}
	response.Success(c, summary)
}

// TriggerJobStageRequest 手动触发单个阶段，tenant_id 为空时作用于全部商户
type TriggerJobStageRequest struct {
	TenantID uint `json:"tenant_id"`
}

// ListJobStages 可单独触发的阶段
func (h *Handler) ListJobStages(c *gin.Context) {
	response.Success(c, gin.H{"stages": h.LoyaltyJobService.StageNames()})
}

// TriggerJobStage 手动触发单个阶段（生日、纪念日、到期提醒、积分过期）
func (h *Handler) TriggerJobStage(c *gin.Context) {
	stage := c.Param("stage")
	if err := h.LoyaltyJobService.ValidateStage(stage); err != nil {
		respondJobError(c, err)
		return
	}
	var req TriggerJobStageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	if h.QueueClient.Enabled() {
		var err error
		if req.TenantID == 0 {
			err = h.QueueClient.EnqueueLoyaltyDaily(queue.LoyaltyDailyPayload{Trigger: constants.JobTriggerManual, Stage: stage})
		} else {
			err = h.QueueClient.EnqueueLoyaltyTenantDaily(queue.LoyaltyTenantDailyPayload{
				TenantID: req.TenantID,
				Trigger:  constants.JobTriggerManual,
				Stage:    stage,
			})
		}
		if err != nil {
			respondError(c, response.CodeInternal, "error.job_trigger_failed", err)
			return
		}
		requestLog(c).Infow("admin_loyalty_stage_enqueued", "stage", stage, "tenant_id", req.TenantID)
		response.Success(c, gin.H{"queued": true, "stage": stage, "tenant_id": req.TenantID})
		return
	}
	summary, err := h.LoyaltyJobService.RunStage(c.Request.Context(), stage, req.TenantID, constants.JobTriggerManual)
	if err != nil {
		respondJobError(c, err)
		return
	}
	response.Success(c, summary)
}

func respondJobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobAlreadyRunning):
		respondError(c, response.CodeConflict, "error.job_already_running", nil)
	case errors.Is(err, service.ErrTenantNotFound):
		respondError(c, response.CodeNotFound, "error.tenant_not_found", nil)
	case errors.Is(err, service.ErrJobStageUnknown):
		respondError(c, response.CodeBadRequest, "error.job_stage_unknown", nil)
	default:
		respondError(c, response.CodeInternal, "error.job_trigger_failed", err)
	}
}

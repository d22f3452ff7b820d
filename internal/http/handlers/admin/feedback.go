package admin

import (
	"strings"

	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/repository"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// ListFeedback 反馈列表
func (h *Handler) ListFeedback(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.FeedbackService.List(repository.FeedbackListFilter{
		Page:     page,
		PageSize: pageSize,
		TenantID: tenantID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.feedback_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}

// ResolveFeedback 标记反馈已处理
func (h *Handler) ResolveFeedback(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	feedback, err := h.FeedbackService.Resolve(tenantID, id)
	if err != nil {
		respondWithMappedError(c, err, []shared.MappedHandlerError{
			{Target: service.ErrFeedbackNotFound, Code: response.CodeNotFound, Key: "error.feedback_not_found"},
		}, response.CodeInternal, "error.feedback_save_failed")
		return
	}
	response.Success(c, feedback)
}

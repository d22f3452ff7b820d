package pos

import (
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitFeedbackRequest 顾客反馈
type SubmitFeedbackRequest struct {
	CustomerID uint   `json:"customer_id"`
	Rating     int    `json:"rating" binding:"required"`
	Message    string `json:"message"`
}

var feedbackErrorRules = shared.ConcatMappedHandlerErrors(
	[]shared.MappedHandlerError{
		{Target: service.ErrFeedbackInvalid, Code: response.CodeBadRequest, Key: "error.feedback_invalid"},
	},
	shared.CustomerErrorRules,
)

// SubmitFeedback 提交反馈，关联客户时发放反馈奖励
func (h *Handler) SubmitFeedback(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	feedback, err := h.FeedbackService.Submit(service.FeedbackInput{
		TenantID:   tenantID,
		CustomerID: req.CustomerID,
		Rating:     req.Rating,
		Message:    req.Message,
	})
	if err != nil {
		respondWithMappedError(c, err, feedbackErrorRules, response.CodeInternal, "error.feedback_save_failed")
		return
	}
	response.Success(c, feedback)
}

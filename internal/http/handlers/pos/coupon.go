package pos

import (
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ValidateCouponRequest 优惠券预校验请求
type ValidateCouponRequest struct {
	Code       string          `json:"code" binding:"required"`
	CustomerID uint            `json:"customer_id"`
	OrderValue decimal.Decimal `json:"order_value"`
	Channel    string          `json:"channel"`
}

// ValidateCoupon 校验优惠券并返回折扣，不占用次数
func (h *Handler) ValidateCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.CouponService.Validate(service.CouponCheckInput{
		TenantID:   tenantID,
		Code:       req.Code,
		CustomerID: req.CustomerID,
		OrderValue: req.OrderValue,
		Channel:    req.Channel,
	})
	if err != nil {
		respondWithMappedError(c, err, shared.CouponErrorRules, response.CodeInternal, "error.coupon_fetch_failed")
		return
	}
	response.Success(c, quote)
}

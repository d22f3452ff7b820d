package shared

import (
	"errors"

	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Key    string
}

// RespondWithMappedError 按规则映射业务错误，未命中时使用兜底响应并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedHandlerErrors 合并多组映射规则。
func ConcatMappedHandlerErrors(groups ...[]MappedHandlerError) []MappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// CouponErrorRules 优惠券校验错误，具体子原因在前
var CouponErrorRules = []MappedHandlerError{
	{Target: service.ErrCouponNotFound, Code: response.CodeBadRequest, Key: "error.coupon_not_found"},
	{Target: service.ErrCouponInactive, Code: response.CodeBadRequest, Key: "error.coupon_inactive"},
	{Target: service.ErrCouponNotStarted, Code: response.CodeBadRequest, Key: "error.coupon_not_started"},
	{Target: service.ErrCouponExpired, Code: response.CodeBadRequest, Key: "error.coupon_expired"},
	{Target: service.ErrCouponUsageLimit, Code: response.CodeBadRequest, Key: "error.coupon_usage_limit"},
	{Target: service.ErrCouponPerUserLimit, Code: response.CodeBadRequest, Key: "error.coupon_per_user_limit"},
	{Target: service.ErrCouponMinAmount, Code: response.CodeBadRequest, Key: "error.coupon_min_amount"},
	{Target: service.ErrCouponChannel, Code: response.CodeBadRequest, Key: "error.coupon_channel"},
	{Target: service.ErrCouponNotAllowed, Code: response.CodeBadRequest, Key: "error.coupon_not_allowed"},
	{Target: service.ErrCouponInvalid, Code: response.CodeBadRequest, Key: "error.coupon_invalid"},
}

// CustomerErrorRules 客户相关错误
var CustomerErrorRules = []MappedHandlerError{
	{Target: service.ErrCustomerNotFound, Code: response.CodeNotFound, Key: "error.customer_not_found"},
	{Target: service.ErrCustomerPhoneRequired, Code: response.CodeBadRequest, Key: "error.customer_phone_required"},
	{Target: service.ErrCustomerExists, Code: response.CodeConflict, Key: "error.customer_exists"},
	{Target: service.ErrMalformedDate, Code: response.CodeBadRequest, Key: "error.customer_date_invalid"},
}

// LedgerErrorRules 积分与钱包相关错误
var LedgerErrorRules = []MappedHandlerError{
	{Target: service.ErrInvalidAmount, Code: response.CodeBadRequest, Key: "error.amount_invalid"},
	{Target: service.ErrInvalidPoints, Code: response.CodeBadRequest, Key: "error.points_invalid"},
	{Target: service.ErrInsufficientPoints, Code: response.CodeBadRequest, Key: "error.points_insufficient"},
	{Target: service.ErrRedeemBelowMinimum, Code: response.CodeBadRequest, Key: "error.points_below_minimum"},
	{Target: service.ErrInsufficientWallet, Code: response.CodeBadRequest, Key: "error.wallet_insufficient"},
	{Target: service.ErrOrderRefRequired, Code: response.CodeBadRequest, Key: "error.order_ref_required"},
}

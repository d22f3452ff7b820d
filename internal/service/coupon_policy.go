package service

import (
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"

	"github.com/shopspring/decimal"
)

// CouponCheckContext 优惠券校验上下文
type CouponCheckContext struct {
	OrderValue    decimal.Decimal
	Channel       string
	CustomerID    uint
	CustomerUsage int64 // 该客户已使用次数
	Now           time.Time
}

// CheckCoupon 按固定顺序校验优惠券，返回第一个失败原因
// 启用 -> 有效期 -> 总次数 -> 每人次数 -> 门槛 -> 渠道 -> 指定客户
func CheckCoupon(coupon *models.Coupon, ctx CouponCheckContext) error {
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if coupon.StartsAt != nil && ctx.Now.Before(*coupon.StartsAt) {
		return ErrCouponNotStarted
	}
	if coupon.EndsAt != nil && ctx.Now.After(*coupon.EndsAt) {
		return ErrCouponExpired
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return ErrCouponUsageLimit
	}
	if coupon.PerUserLimit > 0 && ctx.CustomerUsage >= int64(coupon.PerUserLimit) {
		return ErrCouponPerUserLimit
	}
	if ctx.OrderValue.LessThan(coupon.MinOrderValue.Decimal) {
		return ErrCouponMinAmount
	}
	if !coupon.ApplicableChannels.Contains(normalizeChannel(ctx.Channel)) {
		return ErrCouponChannel
	}
	if len(coupon.SpecificCustomerIDs) > 0 && !coupon.SpecificCustomerIDs.Contains(ctx.CustomerID) {
		return ErrCouponNotAllowed
	}
	return nil
}

// CouponDiscount 计算折扣金额，不超过订单金额
func CouponDiscount(coupon *models.Coupon, orderValue decimal.Decimal) decimal.Decimal {
	if coupon == nil || !orderValue.IsPositive() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypePercentage:
		discount = orderValue.Mul(coupon.Value.Decimal).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.CouponTypeFixed:
		discount = coupon.Value.Decimal
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(orderValue) {
		discount = orderValue
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}

// normalizeChannel 下单渠道归一化，未传时按堂食处理
func normalizeChannel(raw string) string {
	channel := strings.ToLower(strings.TrimSpace(raw))
	if channel == "" {
		return constants.ChannelDineIn
	}
	return channel
}

func isSupportedChannel(channel string) bool {
	switch channel {
	case constants.ChannelDelivery, constants.ChannelTakeaway, constants.ChannelDineIn:
		return true
	default:
		return false
	}
}

func allChannels() models.StringArray {
	return models.StringArray{constants.ChannelDelivery, constants.ChannelTakeaway, constants.ChannelDineIn}
}

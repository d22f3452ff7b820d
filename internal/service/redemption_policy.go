package service

import (
	"github.com/shopspring/decimal"
)

// RedemptionQuote 积分抵扣试算结果
type RedemptionQuote struct {
	RequestedPoints int64
	Points          int64           // 实际抵扣积分
	Value           decimal.Decimal // 实际抵扣金额
	Cap             decimal.Decimal // 本单可抵扣上限
	Capped          bool
}

// QuoteRedemption 计算积分抵扣
// 上限取 账单×比例、绝对上限（>0 时生效）、账单金额 三者最小值；超限时按上限向下折算积分
func QuoteRedemption(setting LoyaltySetting, balance int64, requested int64, billAmount decimal.Decimal) (RedemptionQuote, error) {
	quote := RedemptionQuote{RequestedPoints: requested}
	if requested <= 0 {
		return quote, ErrInvalidPoints
	}
	if requested > balance {
		return quote, ErrInsufficientPoints
	}
	if requested < setting.MinRedemptionPoints {
		return quote, ErrRedeemBelowMinimum
	}
	if billAmount.IsNegative() {
		return quote, ErrInvalidAmount
	}

	value := setting.RedemptionValue
	if !value.IsPositive() {
		return quote, ErrLoyaltyConfigInvalid
	}

	capAmount := billAmount.Mul(setting.MaxRedemptionPercent).Div(decimal.NewFromInt(100))
	if setting.MaxRedemptionAmount.IsPositive() && setting.MaxRedemptionAmount.LessThan(capAmount) {
		capAmount = setting.MaxRedemptionAmount
	}
	if billAmount.LessThan(capAmount) {
		capAmount = billAmount
	}
	quote.Cap = capAmount.Round(2)

	points := requested
	requestedValue := decimal.NewFromInt(requested).Mul(value)
	if requestedValue.GreaterThan(capAmount) {
		points = capAmount.Div(value).Floor().IntPart()
		quote.Capped = true
	}
	if points <= 0 || points < setting.MinRedemptionPoints {
		return quote, ErrRedeemBelowMinimum
	}
	quote.Points = points
	quote.Value = decimal.NewFromInt(points).Mul(value).Round(2)
	return quote, nil
}

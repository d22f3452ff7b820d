package service

import (
	"errors"
	"fmt"
)

// 客户相关错误
var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerPhoneRequired = errors.New("customer phone is required")
	ErrCustomerExists        = errors.New("customer already exists")
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrTenantInactive        = errors.New("tenant is inactive")
	ErrTenantInvalid         = errors.New("tenant name or api key invalid")
	ErrTenantExists          = errors.New("tenant already exists")
)

// 积分与钱包相关错误
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPoints       = errors.New("invalid points")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrRedeemBelowMinimum  = errors.New("points below minimum redemption")
	ErrInsufficientWallet  = errors.New("insufficient wallet balance")
	ErrOrderRefRequired    = errors.New("order reference is required")
	ErrBalanceInconsistent = errors.New("ledger balance inconsistent")
)

// 优惠券相关错误，所有子原因均包装 ErrCouponInvalid
var (
	ErrCouponInvalid      = errors.New("coupon invalid")
	ErrCouponNotFound     = fmt.Errorf("%w: not found", ErrCouponInvalid)
	ErrCouponInactive     = fmt.Errorf("%w: inactive", ErrCouponInvalid)
	ErrCouponNotStarted   = fmt.Errorf("%w: not started", ErrCouponInvalid)
	ErrCouponExpired      = fmt.Errorf("%w: expired", ErrCouponInvalid)
	ErrCouponUsageLimit   = fmt.Errorf("%w: usage limit reached", ErrCouponInvalid)
	ErrCouponPerUserLimit = fmt.Errorf("%w: per customer limit reached", ErrCouponInvalid)
	ErrCouponMinAmount    = fmt.Errorf("%w: order below minimum", ErrCouponInvalid)
	ErrCouponChannel      = fmt.Errorf("%w: channel not allowed", ErrCouponInvalid)
	ErrCouponNotAllowed   = fmt.Errorf("%w: customer not allowed", ErrCouponInvalid)
)

// 其它错误
var (
	ErrCouponCodeExists     = errors.New("coupon code already exists")
	ErrCouponConfigInvalid  = errors.New("coupon config invalid")
	ErrMalformedDate        = errors.New("malformed date")
	ErrLoyaltyConfigInvalid = errors.New("loyalty config invalid")
	ErrFeedbackInvalid      = errors.New("feedback invalid")
	ErrFeedbackNotFound     = errors.New("feedback not found")
	ErrJobAlreadyRunning    = errors.New("loyalty job already running")
	ErrJobStageUnknown      = errors.New("unknown loyalty job stage")
)

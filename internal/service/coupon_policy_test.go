package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"

	"github.com/shopspring/decimal"
)

func policyTestCoupon() *models.Coupon {
	return &models.Coupon{
		Code:                "SAVE20",
		Type:                constants.CouponTypePercentage,
		Value:               models.MustMoney("20"),
		MaxDiscount:         models.MustMoney("200"),
		MinOrderValue:       models.MustMoney("500"),
		UsageLimit:          10,
		PerUserLimit:        1,
		ApplicableChannels:  allChannels(),
		SpecificCustomerIDs: models.IDList{},
		IsActive:            true,
	}
}

func TestCouponDiscountPercentageCap(t *testing.T) {
	discount := CouponDiscount(policyTestCoupon(), decimal.NewFromInt(2000))
	if !discount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("discount want 200 got %s", discount)
	}
	if final := decimal.NewFromInt(2000).Sub(discount); !final.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("final want 1800 got %s", final)
	}
}

func TestCouponDiscountFixedNeverExceedsOrder(t *testing.T) {
	coupon := policyTestCoupon()
	coupon.Type = constants.CouponTypeFixed
	coupon.Value = models.MustMoney("300")
	if discount := CouponDiscount(coupon, decimal.NewFromInt(120)); !discount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("fixed discount should be capped at order value, got %s", discount)
	}
}

func TestCheckCouponOrder(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	base := CouponCheckContext{OrderValue: decimal.NewFromInt(1000), Channel: "dine_in", CustomerID: 7, Now: now}

	inactive := policyTestCoupon()
	inactive.IsActive = false
	inactive.UsedCount = 10
	if err := CheckCoupon(inactive, base); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("inactive should win first, got %v", err)
	}

	future := now.Add(time.Hour)
	notStarted := policyTestCoupon()
	notStarted.StartsAt = &future
	if err := CheckCoupon(notStarted, base); !errors.Is(err, ErrCouponNotStarted) {
		t.Fatalf("want not started, got %v", err)
	}

	past := now.Add(-time.Hour)
	expired := policyTestCoupon()
	expired.EndsAt = &past
	if err := CheckCoupon(expired, base); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("want expired, got %v", err)
	}

	used := policyTestCoupon()
	used.UsedCount = 10
	if err := CheckCoupon(used, base); !errors.Is(err, ErrCouponUsageLimit) {
		t.Fatalf("want usage limit, got %v", err)
	}

	perUser := base
	perUser.CustomerUsage = 1
	if err := CheckCoupon(policyTestCoupon(), perUser); !errors.Is(err, ErrCouponPerUserLimit) {
		t.Fatalf("want per user limit, got %v", err)
	}

	small := base
	small.OrderValue = decimal.NewFromInt(100)
	if err := CheckCoupon(policyTestCoupon(), small); !errors.Is(err, ErrCouponMinAmount) {
		t.Fatalf("want min amount, got %v", err)
	}

	channelCoupon := policyTestCoupon()
	channelCoupon.ApplicableChannels = models.StringArray{constants.ChannelDelivery}
	if err := CheckCoupon(channelCoupon, base); !errors.Is(err, ErrCouponChannel) {
		t.Fatalf("want channel, got %v", err)
	}

	allowList := policyTestCoupon()
	allowList.SpecificCustomerIDs = models.IDList{8}
	if err := CheckCoupon(allowList, base); !errors.Is(err, ErrCouponNotAllowed) {
		t.Fatalf("want not allowed, got %v", err)
	}
	if !errors.Is(ErrCouponNotAllowed, ErrCouponInvalid) {
		t.Fatalf("sub reasons must wrap ErrCouponInvalid")
	}

	if err := CheckCoupon(policyTestCoupon(), base); err != nil {
		t.Fatalf("valid coupon rejected: %v", err)
	}
}

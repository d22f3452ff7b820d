package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
)

func countPointsTransactions(t *testing.T, env *loyaltyTestEnv, customerID uint) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&models.PointsTransaction{}).Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	return count
}

func TestEarnBelowMinimumIsNoop(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, map[string]interface{}{"min_order_value": 100})
	customer := env.createCustomer(t, 1, "9000000001", 0)

	result, err := env.points.Earn(EarnInput{TenantID: 1, CustomerID: customer.ID, BillAmount: decimal.NewFromInt(99)})
	if err != nil {
		t.Fatalf("below minimum must not be an error: %v", err)
	}
	if !result.BelowMinimum || result.Points != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if count := countPointsTransactions(t, env, customer.ID); count != 0 {
		t.Fatalf("no transaction expected, got %d", count)
	}
	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != 0 {
		t.Fatalf("balance changed: %d", reloaded.PointsBalance)
	}
	if reloaded.TotalVisits != 1 {
		t.Fatalf("visit should still be recorded, got %d", reloaded.TotalVisits)
	}
}

func TestEarnAppliesTierPercentAndOffPeak(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, map[string]interface{}{
		"off_peak_bonus_enabled": true,
		"off_peak_start_time":    "14:00",
		"off_peak_end_time":      "17:00",
		"off_peak_bonus_type":    constants.OffPeakBonusMultiplier,
		"off_peak_bonus_value":   2,
	})
	env.setNow(time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC))
	customer := env.createCustomer(t, 1, "9000000002", 0)

	// Bronze 5%: 1000 -> 50 base, 50 off-peak
	result, err := env.points.Earn(EarnInput{TenantID: 1, CustomerID: customer.ID, BillAmount: decimal.NewFromInt(1000), OrderRef: "A-1"})
	if err != nil {
		t.Fatalf("earn failed: %v", err)
	}
	if result.BasePoints != 50 || result.OffPeakBonus != 50 || result.Points != 100 {
		t.Fatalf("unexpected earn: %+v", result)
	}
	if result.Transaction == nil || result.Transaction.BalanceAfter != 100 {
		t.Fatalf("balance after not recorded: %+v", result.Transaction)
	}
	if result.Transaction.Description != "Earned 5% on bill of 1000.00 + 50 off-peak bonus" {
		t.Fatalf("unexpected description: %s", result.Transaction.Description)
	}

	again, err := env.points.Earn(EarnInput{TenantID: 1, CustomerID: customer.ID, BillAmount: decimal.NewFromInt(1000), OrderRef: "A-1"})
	if err != nil {
		t.Fatalf("duplicate earn failed: %v", err)
	}
	if !again.Duplicate {
		t.Fatalf("same order ref should be deduplicated")
	}
	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != 100 || reloaded.TotalVisits != 1 {
		t.Fatalf("duplicate earn changed customer: balance=%d visits=%d", reloaded.PointsBalance, reloaded.TotalVisits)
	}
	if !reloaded.TotalSpent.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("total spent want 1000 got %s", reloaded.TotalSpent)
	}
	if env.publisher.countType(constants.LoyaltyEventPointsEarned) != 1 {
		t.Fatalf("expected exactly one earned event")
	}
}

func TestRedeemCapsAndUpdatesTier(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, map[string]interface{}{
		"redemption_value":       "0.25",
		"max_redemption_percent": 50,
		"max_redemption_amount":  500,
	})
	customer := env.createCustomer(t, 1, "9000000003", 6000)
	if err := env.db.Model(customer).Update("tier", constants.TierPlatinum).Error; err != nil {
		t.Fatalf("update tier failed: %v", err)
	}

	result, err := env.points.Redeem(RedeemInput{TenantID: 1, CustomerID: customer.ID, Points: 5000, BillAmount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Points != 2000 || !result.Value.Equal(decimal.NewFromInt(500)) || !result.Capped {
		t.Fatalf("unexpected redeem: %+v", result)
	}
	if result.Balance != 4000 || result.Tier != constants.TierGold {
		t.Fatalf("balance/tier not updated: %+v", result)
	}
	if result.Transaction.Points != -2000 || result.Transaction.BalanceAfter != 4000 {
		t.Fatalf("unexpected transaction: %+v", result.Transaction)
	}

	_, err = env.points.Redeem(RedeemInput{TenantID: 1, CustomerID: customer.ID, Points: 9000, BillAmount: decimal.NewFromInt(1000)})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("want insufficient points, got %v", err)
	}
}

func TestProcessOrderRedeemsOnPreEarnBalanceAndIsIdempotent(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, map[string]interface{}{
		"redemption_value":       1,
		"max_redemption_percent": 50,
		"max_redemption_amount":  0,
		"min_redemption_points":  50,
	})
	env.setNow(time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC))
	customer := env.createCustomer(t, 1, "9000000004", 100)
	if _, err := env.wallet.Credit(WalletChangeInput{TenantID: 1, CustomerID: customer.ID, Amount: decimal.NewFromInt(300)}); err != nil {
		t.Fatalf("wallet credit failed: %v", err)
	}
	if _, err := env.coupons.Create(1, CouponInput{
		Code:        "save20",
		Type:        constants.CouponTypePercentage,
		Value:       decimal.NewFromInt(20),
		MaxDiscount: decimal.NewFromInt(200),
	}); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	input := OrderInput{
		TenantID:     1,
		OrderRef:     "POS-1001",
		CustomerID:   customer.ID,
		BillAmount:   decimal.NewFromInt(2000),
		CouponCode:   "SAVE20",
		RedeemPoints: 100,
		WalletAmount: decimal.NewFromInt(300),
	}
	result, err := env.points.ProcessOrder(input)
	if err != nil {
		t.Fatalf("process order failed: %v", err)
	}
	receipt := result.Receipt
	if result.Duplicate {
		t.Fatalf("first submission should not be duplicate")
	}
	if !receipt.CouponDiscount.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("coupon discount want 200 got %s", receipt.CouponDiscount)
	}
	if receipt.PointsRedeemed != 100 || !receipt.RedeemValue.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected redemption: %+v", receipt)
	}
	if !receipt.WalletUsed.Decimal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("wallet used want 300 got %s", receipt.WalletUsed)
	}
	if !receipt.FinalAmount.Decimal.Equal(decimal.NewFromInt(1400)) {
		t.Fatalf("final amount want 1400 got %s", receipt.FinalAmount)
	}
	// 消费积分按原始账单计算：2000 * 5% = 100
	if receipt.PointsEarned != 100 {
		t.Fatalf("points earned want 100 got %d", receipt.PointsEarned)
	}
	if receipt.BalanceAfter != 100 {
		t.Fatalf("balance after want 100 got %d", receipt.BalanceAfter)
	}

	again, err := env.points.ProcessOrder(input)
	if err != nil {
		t.Fatalf("duplicate order failed: %v", err)
	}
	if !again.Duplicate || again.Receipt.ID != receipt.ID {
		t.Fatalf("duplicate order should return the original receipt")
	}
	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != 100 || !reloaded.WalletBalance.Decimal.IsZero() {
		t.Fatalf("duplicate order changed balances: points=%d wallet=%s", reloaded.PointsBalance, reloaded.WalletBalance)
	}
	var coupon models.Coupon
	if err := env.db.Where("code = ?", "SAVE20").First(&coupon).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if coupon.UsedCount != 1 {
		t.Fatalf("coupon should be applied exactly once, got %d", coupon.UsedCount)
	}
}

func TestProcessOrderRollsBackOnInvalidCoupon(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, nil)
	customer := env.createCustomer(t, 1, "9000000005", 500)

	_, err := env.points.ProcessOrder(OrderInput{
		TenantID:     1,
		OrderRef:     "POS-2001",
		CustomerID:   customer.ID,
		BillAmount:   decimal.NewFromInt(1000),
		CouponCode:   "MISSING",
		RedeemPoints: 100,
	})
	if !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("want coupon not found, got %v", err)
	}
	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != 500 {
		t.Fatalf("failed order must not touch balance, got %d", reloaded.PointsBalance)
	}
	if count := countPointsTransactions(t, env, customer.ID); count != 0 {
		t.Fatalf("failed order must not write transactions, got %d", count)
	}
}

func TestConcurrentEarnsKeepBalanceConsistent(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, map[string]interface{}{"min_order_value": 0})
	customer := env.createCustomer(t, 1, "9000000006", 0)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.points.Earn(EarnInput{
				TenantID:   1,
				CustomerID: customer.ID,
				BillAmount: decimal.NewFromInt(200),
				OrderRef:   fmt.Sprintf("C-%d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent earn failed: %v", err)
		}
	}

	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != workers*10 {
		t.Fatalf("lost update: want %d got %d", workers*10, reloaded.PointsBalance)
	}
	replay, err := env.points.ReplayBalance(1, customer.ID)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Consistent || replay.Entries != workers {
		t.Fatalf("replay inconsistent: %+v", replay)
	}
}

func TestManualTransactionAndReplay(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, nil)
	customer := env.createCustomer(t, 1, "9000000007", 0)

	if _, err := env.points.ManualTransaction(ManualTransactionInput{
		TenantID: 1, CustomerID: customer.ID, Type: "earn", Points: 700, BillAmount: decimal.NewFromInt(350),
	}); err != nil {
		t.Fatalf("manual earn failed: %v", err)
	}
	if _, err := env.points.ManualTransaction(ManualTransactionInput{
		TenantID: 1, CustomerID: customer.ID, Type: "redeem", Points: 1000,
	}); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("want insufficient points, got %v", err)
	}
	entry, err := env.points.ManualTransaction(ManualTransactionInput{
		TenantID: 1, CustomerID: customer.ID, Type: "redeem", Points: 300,
	})
	if err != nil {
		t.Fatalf("manual redeem failed: %v", err)
	}
	if entry.BalanceAfter != 400 {
		t.Fatalf("balance after want 400 got %d", entry.BalanceAfter)
	}

	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.TotalVisits != 1 || reloaded.Tier != constants.TierBronze {
		t.Fatalf("unexpected customer state: visits=%d tier=%s", reloaded.TotalVisits, reloaded.Tier)
	}

	replay, err := env.points.ReplayBalance(1, customer.ID)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Consistent || replay.ReplayedBalance != 400 {
		t.Fatalf("unexpected replay: %+v", replay)
	}

	items, total, err := env.points.ListTransactions(repository.PointsTransactionFilter{TenantID: 1, CustomerID: customer.ID, Page: 1, PageSize: 10})
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("list transactions: total=%d len=%d err=%v", total, len(items), err)
	}
}

func TestReplayBalanceDetectsDrift(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, nil)
	customer := env.createCustomer(t, 1, "9000000017", 0)
	if _, err := env.points.ManualTransaction(ManualTransactionInput{
		TenantID: 1, CustomerID: customer.ID, Type: "earn", Points: 250,
	}); err != nil {
		t.Fatalf("manual earn failed: %v", err)
	}

	// 绕过账本直接改余额
	if err := env.db.Model(&models.Customer{}).Where("id = ?", customer.ID).Update("points_balance", 900).Error; err != nil {
		t.Fatalf("corrupt balance failed: %v", err)
	}

	replay, err := env.points.ReplayBalance(1, customer.ID)
	if !errors.Is(err, ErrBalanceInconsistent) {
		t.Fatalf("want inconsistent error, got %v", err)
	}
	if replay == nil || replay.Consistent {
		t.Fatalf("replay should be reported as inconsistent: %+v", replay)
	}
	if replay.StoredBalance != 900 || replay.ReplayedBalance != 250 || replay.SummedBalance != 250 {
		t.Fatalf("unexpected replay: %+v", replay)
	}
}

package service

import (
	"testing"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"
)

func TestExpirePointsCappedAtBalance(t *testing.T) {
	env := setupLoyaltyTest(t)
	setting := env.saveSetting(t, 1, map[string]interface{}{
		"points_expiry_months": 12,
		"expiry_reminder_days": 30,
	})
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	env.setNow(now)

	// 已抵扣 70 分，只剩 30 分可过期
	customer := env.createCustomer(t, 1, "9200000001", 30)
	source := env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 100, now.AddDate(0, 0, -400))
	recent := env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 10, now.AddDate(0, 0, -10))

	result, err := env.expiry.ExpirePoints(1, setting)
	if err != nil {
		t.Fatalf("expire points failed: %v", err)
	}
	if result.CustomersAffected != 1 || result.PointsExpired != 30 {
		t.Fatalf("unexpected result: %+v", result)
	}
	reloaded := env.reloadCustomer(t, customer.ID)
	if reloaded.PointsBalance != 0 || reloaded.LastPointsExpiryAt == nil {
		t.Fatalf("unexpected customer: balance=%d expiry=%v", reloaded.PointsBalance, reloaded.LastPointsExpiryAt)
	}

	var expired models.PointsTransaction
	if err := env.db.Where("customer_id = ? AND type = ?", customer.ID, constants.PointsTxnTypeExpired).First(&expired).Error; err != nil {
		t.Fatalf("load expired entry failed: %v", err)
	}
	if expired.Points != -30 || expired.BalanceAfter != 0 {
		t.Fatalf("unexpected expired entry: %+v", expired)
	}
	if len(expired.SourceTransactionIDs) != 1 || expired.SourceTransactionIDs[0] != source.ID {
		t.Fatalf("unexpected source ids: %v", expired.SourceTransactionIDs)
	}

	var reloadedSource, reloadedRecent models.PointsTransaction
	env.db.First(&reloadedSource, source.ID)
	env.db.First(&reloadedRecent, recent.ID)
	if reloadedSource.ExpiredAt == nil {
		t.Fatalf("source entry should be marked expired")
	}
	if reloadedRecent.ExpiredAt != nil {
		t.Fatalf("recent entry must stay active")
	}

	again, err := env.expiry.ExpirePoints(1, setting)
	if err != nil {
		t.Fatalf("second expiry failed: %v", err)
	}
	if again.PointsExpired != 0 {
		t.Fatalf("second run must be a no-op: %+v", again)
	}
}

func TestExpiryDisabledWhenMonthsZero(t *testing.T) {
	env := setupLoyaltyTest(t)
	setting := env.saveSetting(t, 1, map[string]interface{}{"points_expiry_months": 0})
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	env.setNow(now)
	customer := env.createCustomer(t, 1, "9200000002", 100)
	env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 100, now.AddDate(-3, 0, 0))

	result, err := env.expiry.ExpirePoints(1, setting)
	if err != nil {
		t.Fatalf("expire points failed: %v", err)
	}
	if result.PointsExpired != 0 {
		t.Fatalf("expiry disabled but points expired: %+v", result)
	}
	if reloaded := env.reloadCustomer(t, customer.ID); reloaded.PointsBalance != 100 {
		t.Fatalf("balance changed: %d", reloaded.PointsBalance)
	}
}

func TestSendRemindersOncePerMonth(t *testing.T) {
	env := setupLoyaltyTest(t)
	setting := env.saveSetting(t, 1, map[string]interface{}{
		"points_expiry_months": 12,
		"expiry_reminder_days": 30,
	})
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	env.setNow(now)

	customer := env.createCustomer(t, 1, "9200000003", 150)
	env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 100, now.AddDate(0, 0, -350))
	env.seedTransaction(t, customer, constants.PointsTxnTypeBonus, 50, now.AddDate(0, 0, -100))

	result, err := env.expiry.SendReminders(1, setting)
	if err != nil {
		t.Fatalf("send reminders failed: %v", err)
	}
	if result.CustomersReminded != 1 || result.PointsExpiring != 100 {
		t.Fatalf("unexpected reminders: %+v", result)
	}
	if env.publisher.countType(constants.LoyaltyEventExpiryReminder) != 1 {
		t.Fatalf("expected one reminder event")
	}
	if reloaded := env.reloadCustomer(t, customer.ID); reloaded.PointsBalance != 150 || reloaded.LastExpiryReminderAt == nil {
		t.Fatalf("reminder must not change balance: %+v", reloaded)
	}

	env.setNow(now.AddDate(0, 0, 5))
	again, err := env.expiry.SendReminders(1, setting)
	if err != nil {
		t.Fatalf("second reminder run failed: %v", err)
	}
	if again.CustomersReminded != 0 {
		t.Fatalf("customer reminded twice in one month: %+v", again)
	}

	summary, err := env.expiry.CustomerExpirySummary(1, customer.ID, setting)
	if err != nil {
		t.Fatalf("expiry summary failed: %v", err)
	}
	if summary.ExpiringSoon != 100 || summary.EarliestExpiry == nil || summary.ExpiryMonths != 12 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCustomerExpirySummary(t *testing.T) {
	env := setupLoyaltyTest(t)
	setting := env.saveSetting(t, 1, map[string]interface{}{
		"points_expiry_months": 12,
		"expiry_reminder_days": 30,
	})
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	env.setNow(now)

	customer := env.createCustomer(t, 1, "9200000009", 65)
	soon := now.AddDate(0, 0, -350)
	env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 40, soon)
	env.seedTransaction(t, customer, constants.PointsTxnTypeBonus, 25, now.AddDate(0, 0, -10))
	env.seedTransaction(t, customer, constants.PointsTxnTypeExpired, -15, now.AddDate(0, 0, -40))

	summary, err := env.expiry.CustomerExpirySummary(1, customer.ID, setting)
	if err != nil {
		t.Fatalf("expiry summary failed: %v", err)
	}
	if summary.Balance != 65 || summary.ExpiringSoon != 40 || summary.AlreadyExpired != 15 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	expected := soon.Add(360 * 24 * time.Hour)
	if summary.EarliestExpiry == nil || !summary.EarliestExpiry.Equal(expected) {
		t.Fatalf("unexpected earliest expiry: %v want %v", summary.EarliestExpiry, expected)
	}

	if _, err := env.expiry.CustomerExpirySummary(1, 9999, setting); err != ErrCustomerNotFound {
		t.Fatalf("want customer not found, got %v", err)
	}
}

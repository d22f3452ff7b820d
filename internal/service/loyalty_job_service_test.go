package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"
)

func TestLoyaltyJobRunAllAggregatesTenants(t *testing.T) {
	env := setupLoyaltyTest(t)
	now := time.Date(2026, 6, 10, 0, 30, 0, 0, time.UTC)
	env.setNow(now)
	env.saveSetting(t, 1, map[string]interface{}{
		"birthday_bonus_enabled":    true,
		"birthday_bonus_points":     100,
		"birthday_bonus_days_after": 7,
		"points_expiry_months":      6,
	})
	env.saveSetting(t, 2, map[string]interface{}{"points_expiry_months": 6})

	birthday := env.createCustomer(t, 1, "9400000001", 0)
	if err := env.db.Model(birthday).Update("date_of_birth", "1988-06-08").Error; err != nil {
		t.Fatalf("update dob failed: %v", err)
	}
	expiring := env.createCustomer(t, 2, "9400000002", 40)
	env.seedTransaction(t, expiring, constants.PointsTxnTypeEarn, 40, now.AddDate(-1, 0, 0))

	summary, err := env.jobs.RunAll(context.Background(), constants.JobTriggerManual)
	if err != nil {
		t.Fatalf("run all failed: %v", err)
	}
	if summary.Status != constants.JobStatusSuccess || summary.TenantsProcessed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.BirthdayAwarded != 1 || summary.BirthdayPoints != 100 {
		t.Fatalf("birthday not aggregated: %+v", summary)
	}
	if summary.PointsExpired != 40 || summary.ExpiryCustomersAffected != 1 {
		t.Fatalf("expiry not aggregated: %+v", summary)
	}
	if summary.Trigger != constants.JobTriggerManual || summary.Scope != constants.JobScopeAll {
		t.Fatalf("unexpected trigger/scope: %s %s", summary.Trigger, summary.Scope)
	}

	status, err := env.jobs.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Running || status.LastRun == nil || status.LastRun.RunID != summary.RunID {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(status.RecentLogs) != 1 || status.RecentLogs[0].Status != constants.JobStatusSuccess {
		t.Fatalf("run log not persisted: %+v", status.RecentLogs)
	}
}

func TestLoyaltyJobRunTenantSkipsUnconfigured(t *testing.T) {
	env := setupLoyaltyTest(t)
	summary, err := env.jobs.RunTenant(context.Background(), 42, constants.JobTriggerManual)
	if err != nil {
		t.Fatalf("run tenant failed: %v", err)
	}
	if summary.Status != constants.JobStatusSkipped || summary.TenantID == nil || *summary.TenantID != 42 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	var count int64
	env.db.Model(&models.CronJobLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("skipped run must not write logs, got %d", count)
	}
}

func TestLoyaltyJobRunLogRetention(t *testing.T) {
	env := setupLoyaltyTest(t)
	env.saveSetting(t, 1, nil)
	base := time.Date(2026, 6, 10, 0, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		env.setNow(base.Add(time.Duration(i) * time.Minute))
		if _, err := env.jobs.RunTenant(context.Background(), 1, constants.JobTriggerSchedule); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}
	var count int64
	env.db.Model(&models.CronJobLog{}).Count(&count)
	if count != 3 {
		t.Fatalf("retention should keep 3 logs, got %d", count)
	}
	latest, err := env.jobs.logRepo.Latest(constants.JobNameLoyaltyDaily)
	if err != nil || latest == nil {
		t.Fatalf("latest log: %v", err)
	}
	if !latest.StartedAt.Equal(base.Add(4 * time.Minute)) {
		t.Fatalf("latest log should be the last run, got %s", latest.StartedAt)
	}
}

func TestLoyaltyJobStageFailureDoesNotStopOtherWork(t *testing.T) {
	env := setupLoyaltyTest(t)
	now := time.Date(2026, 6, 10, 0, 30, 0, 0, time.UTC)
	env.setNow(now)
	for tenantID := uint(1); tenantID <= 3; tenantID++ {
		env.saveSetting(t, tenantID, map[string]interface{}{
			"birthday_bonus_enabled":    true,
			"birthday_bonus_points":     100,
			"birthday_bonus_days_after": 7,
			"points_expiry_months":      6,
		})
		customer := env.createCustomer(t, tenantID, "941000000"+string(rune('0'+tenantID)), 40)
		if err := env.db.Model(customer).Update("date_of_birth", "1988-06-08").Error; err != nil {
			t.Fatalf("update dob failed: %v", err)
		}
		env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 40, now.AddDate(-1, 0, 0))
	}

	// 商户 1 生日阶段返回错误，商户 2 纪念日阶段 panic
	stages := env.jobs.defaultStages()
	birthday := stages[0].run
	stages[0].run = func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
		if tenantID == 1 {
			return errors.New("customer store unavailable")
		}
		return birthday(tenantID, setting, result)
	}
	anniversary := stages[1].run
	stages[1].run = func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
		if tenantID == 2 {
			panic("anniversary rule corrupted")
		}
		return anniversary(tenantID, setting, result)
	}
	env.jobs.stages = stages

	summary, err := env.jobs.RunAll(context.Background(), constants.JobTriggerSchedule)
	if err != nil {
		t.Fatalf("run all failed: %v", err)
	}
	if summary.Status != constants.JobStatusPartial || summary.TenantsProcessed != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected two recorded errors, got %+v", summary.Errors)
	}
	if summary.Errors[0].TenantID != 1 || summary.Errors[0].Stage != constants.JobStageBirthday {
		t.Fatalf("unexpected first error: %+v", summary.Errors[0])
	}
	if summary.Errors[1].TenantID != 2 || summary.Errors[1].Stage != constants.JobStageAnniversary {
		t.Fatalf("unexpected second error: %+v", summary.Errors[1])
	}
	if summary.BirthdayAwarded != 2 || summary.BirthdayPoints != 200 {
		t.Fatalf("other tenants' birthdays should still be awarded: %+v", summary)
	}
	if summary.PointsExpired != 120 || summary.ExpiryCustomersAffected != 3 {
		t.Fatalf("later stages should still expire points: %+v", summary)
	}
}

func TestLoyaltyJobRunStageOnly(t *testing.T) {
	env := setupLoyaltyTest(t)
	now := time.Date(2026, 6, 10, 0, 30, 0, 0, time.UTC)
	env.setNow(now)
	env.saveSetting(t, 1, map[string]interface{}{
		"birthday_bonus_enabled":    true,
		"birthday_bonus_points":     100,
		"birthday_bonus_days_after": 7,
		"points_expiry_months":      6,
	})
	customer := env.createCustomer(t, 1, "9420000001", 40)
	if err := env.db.Model(customer).Update("date_of_birth", "1988-06-08").Error; err != nil {
		t.Fatalf("update dob failed: %v", err)
	}
	env.seedTransaction(t, customer, constants.PointsTxnTypeEarn, 40, now.AddDate(-1, 0, 0))
	broken := env.createCustomer(t, 1, "9420000002", 0)
	if err := env.db.Model(broken).Update("date_of_birth", "31/02/1990").Error; err != nil {
		t.Fatalf("update dob failed: %v", err)
	}

	summary, err := env.jobs.RunStage(context.Background(), constants.JobStageExpiry, 1, constants.JobTriggerManual)
	if err != nil {
		t.Fatalf("run stage failed: %v", err)
	}
	if len(summary.Stages) != 1 || summary.Stages[0] != constants.JobStageExpiry {
		t.Fatalf("unexpected stages: %v", summary.Stages)
	}
	if summary.PointsExpired != 40 || summary.BirthdayAwarded != 0 {
		t.Fatalf("only expiry should run: %+v", summary)
	}
	if got := env.reloadCustomer(t, customer.ID).PointsBalance; got != 0 {
		t.Fatalf("unexpected balance after expiry stage: %d", got)
	}

	all, err := env.jobs.RunStage(context.Background(), constants.JobStageBirthday, 0, constants.JobTriggerManual)
	if err != nil {
		t.Fatalf("run birthday stage failed: %v", err)
	}
	if all.Scope != constants.JobScopeAll || all.BirthdayAwarded != 1 || all.BonusSkipped != 1 || all.PointsExpired != 0 {
		t.Fatalf("unexpected birthday stage summary: %+v", all)
	}

	if _, err := env.jobs.RunStage(context.Background(), "reindex", 1, constants.JobTriggerManual); !errors.Is(err, ErrJobStageUnknown) {
		t.Fatalf("want unknown stage error, got %v", err)
	}
}

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/service"
)

type stubRunner struct {
	calls   int
	trigger string
	err     error
}

func (r *stubRunner) RunAll(ctx context.Context, trigger string) (*service.JobRunSummary, error) {
	r.calls++
	r.trigger = trigger
	if r.err != nil {
		return nil, r.err
	}
	return &service.JobRunSummary{RunID: "run-1", Status: "success"}, nil
}

func TestNewCronServiceRejectsInvalidSchedule(t *testing.T) {
	_, err := NewCronService(config.LoyaltyConfig{Schedule: "every day"}, &stubRunner{})
	if err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	if _, err := NewCronService(config.LoyaltyConfig{Schedule: "30 0 * * *"}, nil); err == nil {
		t.Fatalf("expected nil runner error")
	}
}

func TestCronServiceRunDailyUsesScheduleTrigger(t *testing.T) {
	runner := &stubRunner{}
	svc, err := NewCronService(config.LoyaltyConfig{Schedule: "30 0 * * *", Timezone: "Asia/Kolkata"}, runner)
	if err != nil {
		t.Fatalf("new cron service failed: %v", err)
	}
	svc.runDaily()
	if runner.calls != 1 || runner.trigger != "schedule" {
		t.Fatalf("unexpected runner state: %+v", runner)
	}

	runner.err = service.ErrJobAlreadyRunning
	svc.runDaily()
	if runner.calls != 2 {
		t.Fatalf("expected second call, got %d", runner.calls)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestResolveLocationFallsBackToUTC(t *testing.T) {
	if loc := resolveLocation(""); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
	if loc := resolveLocation("Mars/Olympus"); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
	if loc := resolveLocation("Asia/Kolkata"); loc.String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location: %v", loc)
	}
}

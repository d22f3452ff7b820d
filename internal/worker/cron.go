package worker

import (
	"context"
	"errors"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/service"

	"github.com/robfig/cron/v3"
)

// DailyJobRunner 每日积分任务执行接口（*service.LoyaltyJobService 实现）
type DailyJobRunner interface {
	RunAll(ctx context.Context, trigger string) (*service.JobRunSummary, error)
}

// CronService 未启用队列时的进程内调度器
type CronService struct {
	name   string
	cron   *cron.Cron
	runner DailyJobRunner
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCronService 创建进程内调度服务
func NewCronService(cfg config.LoyaltyConfig, runner DailyJobRunner) (*CronService, error) {
	if runner == nil {
		return nil, errors.New("job runner is nil")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &CronService{
		name:   "cron",
		cron:   cron.New(cron.WithLocation(resolveLocation(cfg.Timezone))),
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.runDaily); err != nil {
		cancel()
		return nil, err
	}
	logger.Infow("cron_loyalty_daily_registered", "schedule", cfg.Schedule, "timezone", cfg.Timezone)
	return s, nil
}

// Name 服务名称
func (s *CronService) Name() string {
	if s == nil || s.name == "" {
		return "cron"
	}
	return s.name
}

// Start 启动调度，阻塞到 ctx 结束
func (s *CronService) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("cron not initialized")
	}
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止调度并等待正在运行的任务结束
func (s *CronService) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *CronService) runDaily() {
	summary, err := s.runner.RunAll(s.ctx, constants.JobTriggerSchedule)
	if err != nil {
		if errors.Is(err, service.ErrJobAlreadyRunning) {
			logger.Infow("cron_loyalty_daily_skip_running")
			return
		}
		logger.Errorw("cron_loyalty_daily_failed", "error", err)
		return
	}
	logger.Infow("cron_loyalty_daily_done",
		"run_id", summary.RunID,
		"status", summary.Status,
		"tenants", summary.TenantsProcessed,
	)
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务（消费者 + 每日任务调度器）
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	consumer  *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler, err := newDailyScheduler(opt, cfg.Loyalty)
	if err != nil {
		return nil, err
	}
	return &Service{
		name:      "worker",
		server:    server,
		mux:       mux,
		scheduler: scheduler,
		consumer:  consumer,
	}, nil
}

// newDailyScheduler 按配置的 cron 表达式周期投递每日积分任务
func newDailyScheduler(opt asynq.RedisClientOpt, cfg config.LoyaltyConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: resolveLocation(cfg.Timezone),
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Warnw("worker_loyalty_daily_enqueue_failed", "error", err)
				return
			}
			logger.Infow("worker_loyalty_daily_enqueued", "task_id", info.ID, "queue", info.Queue)
		},
	})
	task, err := queue.NewLoyaltyDailyTask(queue.LoyaltyDailyPayload{Trigger: "schedule"})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(cfg.Schedule, task,
		asynq.Queue(queue.CriticalQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Hour),
	)
	if err != nil {
		return nil, err
	}
	logger.Infow("worker_loyalty_daily_registered",
		"entry_id", entryID,
		"schedule", cfg.Schedule,
		"timezone", cfg.Timezone,
	)
	return scheduler, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()
	return nil
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("worker_timezone_invalid", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinepoints/internal/cache"
	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/metrics"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"

	"github.com/google/uuid"
)

const (
	jobStageSetting = "setting"

	lastRunCacheTTL  = 7 * 24 * time.Hour
	recentLogsLimit  = 5
	jobLockDayLayout = "2006-01-02"
)

// LoyaltyJobService 每日积分任务编排：生日 -> 纪念日 -> 过期提醒 -> 积分过期
type LoyaltyJobService struct {
	settingSvc *SettingService
	bonusSvc   *BonusService
	expirySvc  *ExpiryService
	logRepo    repository.CronJobLogRepository
	cfg        config.LoyaltyConfig

	stages  []jobStage
	running atomic.Bool
	mu      sync.RWMutex
	last    *JobRunSummary
	now     func() time.Time
}

// jobStage 每日任务中的一个阶段，可单独手动触发
type jobStage struct {
	name string
	run  func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error
}

// JobError 任务错误
type JobError struct {
	TenantID uint   `json:"tenant_id"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// TenantJobResult 单个商户的任务结果
type TenantJobResult struct {
	TenantID    uint               `json:"tenant_id"`
	Birthday    *BonusRunResult    `json:"birthday_bonus,omitempty"`
	Anniversary *BonusRunResult    `json:"anniversary_bonus,omitempty"`
	Reminders   *ReminderRunResult `json:"expiry_reminders,omitempty"`
	Expiry      *ExpiryRunResult   `json:"points_expiry,omitempty"`
	Errors      []JobError         `json:"errors,omitempty"`
}

// JobRunSummary 一次任务运行的汇总
type JobRunSummary struct {
	RunID      string    `json:"run_id"`
	JobName    string    `json:"job_name"`
	Scope      string    `json:"scope"`
	TenantID   *uint     `json:"tenant_id,omitempty"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	Stages                  []string `json:"stages"`
	TenantsProcessed        int      `json:"tenants_processed"`
	BirthdayAwarded         int      `json:"birthday_awarded"`
	BirthdayPoints          int64    `json:"birthday_points"`
	AnniversaryAwarded      int      `json:"anniversary_awarded"`
	AnniversaryPoints       int64    `json:"anniversary_points"`
	BonusSkipped            int      `json:"bonus_skipped"`
	CustomersReminded       int      `json:"customers_reminded"`
	PointsExpiring          int64    `json:"points_expiring"`
	PointsExpired           int64    `json:"points_expired"`
	ExpiryCustomersAffected int      `json:"expiry_customers_affected"`

	Tenants []TenantJobResult `json:"tenants"`
	Errors  []JobError        `json:"errors"`
}

// JobStatus 任务状态
type JobStatus struct {
	Running    bool                `json:"running"`
	Schedule   string              `json:"schedule"`
	Timezone   string              `json:"timezone"`
	LastRun    *JobRunSummary      `json:"last_run_summary"`
	RecentLogs []models.CronJobLog `json:"recent_logs"`
}

// NewLoyaltyJobService 创建任务编排服务
func NewLoyaltyJobService(
	settingSvc *SettingService,
	bonusSvc *BonusService,
	expirySvc *ExpiryService,
	logRepo repository.CronJobLogRepository,
	cfg config.LoyaltyConfig,
) *LoyaltyJobService {
	s := &LoyaltyJobService{
		settingSvc: settingSvc,
		bonusSvc:   bonusSvc,
		expirySvc:  expirySvc,
		logRepo:    logRepo,
		cfg:        cfg,
		now:        time.Now,
	}
	s.stages = s.defaultStages()
	return s
}

// defaultStages 阶段顺序固定：生日 -> 纪念日 -> 过期提醒 -> 积分过期
func (s *LoyaltyJobService) defaultStages() []jobStage {
	return []jobStage{
		{name: constants.JobStageBirthday, run: func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
			out, err := s.bonusSvc.AwardBirthdayBonuses(tenantID, setting)
			result.Birthday = out
			return err
		}},
		{name: constants.JobStageAnniversary, run: func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
			out, err := s.bonusSvc.AwardAnniversaryBonuses(tenantID, setting)
			result.Anniversary = out
			return err
		}},
		{name: constants.JobStageReminders, run: func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
			out, err := s.expirySvc.SendReminders(tenantID, setting)
			result.Reminders = out
			return err
		}},
		{name: constants.JobStageExpiry, run: func(tenantID uint, setting LoyaltySetting, result *TenantJobResult) error {
			out, err := s.expirySvc.ExpirePoints(tenantID, setting)
			result.Expiry = out
			return err
		}},
	}
}

func (s *LoyaltyJobService) selectStages(name string) ([]jobStage, error) {
	if name == "" {
		return s.stages, nil
	}
	for _, stage := range s.stages {
		if stage.name == name {
			return []jobStage{stage}, nil
		}
	}
	return nil, ErrJobStageUnknown
}

// StageNames 返回可单独触发的阶段，按执行顺序
func (s *LoyaltyJobService) StageNames() []string {
	return stageNames(s.stages)
}

// ValidateStage 校验阶段名称
func (s *LoyaltyJobService) ValidateStage(name string) error {
	if name == "" {
		return ErrJobStageUnknown
	}
	_, err := s.selectStages(name)
	return err
}

// RunAll 对所有已配置积分规则的商户执行每日任务
func (s *LoyaltyJobService) RunAll(ctx context.Context, trigger string) (*JobRunSummary, error) {
	tenantIDs, err := s.settingSvc.ListConfiguredTenantIDs()
	if err != nil {
		return nil, err
	}
	return s.run(ctx, constants.JobScopeAll, nil, tenantIDs, trigger, s.stages)
}

// RunStage 手动执行单个阶段；tenantID 为 0 时作用于全部已配置商户
func (s *LoyaltyJobService) RunStage(ctx context.Context, stage string, tenantID uint, trigger string) (*JobRunSummary, error) {
	stages, err := s.selectStages(stage)
	if err != nil {
		return nil, err
	}
	if tenantID == 0 {
		tenantIDs, err := s.settingSvc.ListConfiguredTenantIDs()
		if err != nil {
			return nil, err
		}
		return s.run(ctx, constants.JobScopeAll, nil, tenantIDs, trigger, stages)
	}
	return s.runOneTenant(ctx, tenantID, trigger, stages)
}

// RunTenant 对单个商户执行每日任务，未保存积分规则时跳过
func (s *LoyaltyJobService) RunTenant(ctx context.Context, tenantID uint, trigger string) (*JobRunSummary, error) {
	return s.runOneTenant(ctx, tenantID, trigger, s.stages)
}

func (s *LoyaltyJobService) runOneTenant(ctx context.Context, tenantID uint, trigger string, stages []jobStage) (*JobRunSummary, error) {
	if tenantID == 0 {
		return nil, ErrTenantNotFound
	}
	stored, err := s.settingSvc.HasStoredSetting(tenantID)
	if err != nil {
		return nil, err
	}
	id := tenantID
	if !stored {
		now := s.now()
		return &JobRunSummary{
			RunID:      uuid.NewString(),
			JobName:    constants.JobNameLoyaltyDaily,
			Scope:      constants.JobScopeTenant,
			TenantID:   &id,
			Trigger:    normalizeTrigger(trigger),
			Status:     constants.JobStatusSkipped,
			Stages:     stageNames(stages),
			StartedAt:  now,
			FinishedAt: now,
			Tenants:    []TenantJobResult{},
			Errors:     []JobError{},
		}, nil
	}
	return s.run(ctx, constants.JobScopeTenant, &id, []uint{tenantID}, trigger, stages)
}

func (s *LoyaltyJobService) run(ctx context.Context, scope string, tenantID *uint, tenantIDs []uint, trigger string, stages []jobStage) (*JobRunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrJobAlreadyRunning
	}
	defer s.running.Store(false)

	started := s.now()
	lockScope := scope
	if tenantID != nil {
		lockScope = fmt.Sprintf("%s:%d", scope, *tenantID)
	}
	if len(stages) == 1 {
		lockScope = lockScope + ":" + stages[0].name
	}
	lock, ok, err := cache.AcquireJobLock(ctx, constants.JobNameLoyaltyDaily, lockScope, started.UTC().Format(jobLockDayLayout), s.lockTTL())
	if err != nil {
		logger.Warnw("loyalty_job_lock_failed", "scope", lockScope, "error", err)
		return nil, err
	}
	if !ok {
		return nil, ErrJobAlreadyRunning
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warnw("loyalty_job_lock_release_failed", "scope", lockScope, "error", err)
		}
	}()

	summary := &JobRunSummary{
		RunID:     uuid.NewString(),
		JobName:   constants.JobNameLoyaltyDaily,
		Scope:     scope,
		TenantID:  tenantID,
		Trigger:   normalizeTrigger(trigger),
		StartedAt: started,
		Stages:    stageNames(stages),
		Tenants:   make([]TenantJobResult, 0, len(tenantIDs)),
		Errors:    []JobError{},
	}
	logger.Infow("loyalty_job_started",
		"run_id", summary.RunID,
		"scope", scope,
		"trigger", summary.Trigger,
		"tenants", len(tenantIDs),
	)

	failedTenants := 0
	for _, id := range tenantIDs {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, JobError{TenantID: id, Stage: "context", Error: err.Error()})
			failedTenants++
			continue
		}
		result := s.runTenant(id, stages)
		summary.add(result)
		if len(result.Errors) > 0 {
			failedTenants++
		}
	}

	summary.FinishedAt = s.now()
	summary.DurationMS = summary.FinishedAt.Sub(started).Milliseconds()
	summary.Status = resolveJobStatus(len(tenantIDs), failedTenants)
	metrics.RecordJobRun(scope, summary.Status, summary.FinishedAt.Sub(started).Seconds())

	s.remember(ctx, summary)
	logger.Infow("loyalty_job_finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"duration_ms", summary.DurationMS,
		"birthday_awarded", summary.BirthdayAwarded,
		"anniversary_awarded", summary.AnniversaryAwarded,
		"bonus_skipped", summary.BonusSkipped,
		"customers_reminded", summary.CustomersReminded,
		"points_expired", summary.PointsExpired,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// runTenant 依次执行单个商户的各阶段，阶段失败只记录错误，后续阶段继续
func (s *LoyaltyJobService) runTenant(tenantID uint, stages []jobStage) TenantJobResult {
	result := TenantJobResult{TenantID: tenantID, Errors: []JobError{}}
	setting, err := s.settingSvc.GetLoyaltySetting(tenantID)
	if err != nil {
		result.fail(jobStageSetting, err)
		return result
	}
	for _, stage := range stages {
		s.runStage(&result, stage.name, func() error {
			return stage.run(tenantID, setting, &result)
		})
	}
	return result
}

func (s *LoyaltyJobService) runStage(result *TenantJobResult, stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			result.fail(stage, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		result.fail(stage, err)
	}
}

func (r *TenantJobResult) fail(stage string, err error) {
	metrics.RecordJobError(stage)
	logger.Errorw("loyalty_job_tenant_failed", "tenant_id", r.TenantID, "stage", stage, "error", err)
	r.Errors = append(r.Errors, JobError{TenantID: r.TenantID, Stage: stage, Error: err.Error()})
}

func (s *JobRunSummary) add(result TenantJobResult) {
	s.TenantsProcessed++
	if result.Birthday != nil {
		s.BirthdayAwarded += result.Birthday.CustomersAwarded
		s.BirthdayPoints += result.Birthday.PointsAwarded
		s.BonusSkipped += result.Birthday.Skipped
		s.appendCustomerErrors(result.TenantID, constants.JobStageBirthday, result.Birthday.Errors)
	}
	if result.Anniversary != nil {
		s.AnniversaryAwarded += result.Anniversary.CustomersAwarded
		s.AnniversaryPoints += result.Anniversary.PointsAwarded
		s.BonusSkipped += result.Anniversary.Skipped
		s.appendCustomerErrors(result.TenantID, constants.JobStageAnniversary, result.Anniversary.Errors)
	}
	if result.Reminders != nil {
		s.CustomersReminded += result.Reminders.CustomersReminded
		s.PointsExpiring += result.Reminders.PointsExpiring
		s.appendCustomerErrors(result.TenantID, constants.JobStageReminders, result.Reminders.Errors)
	}
	if result.Expiry != nil {
		s.PointsExpired += result.Expiry.PointsExpired
		s.ExpiryCustomersAffected += result.Expiry.CustomersAffected
		s.appendCustomerErrors(result.TenantID, constants.JobStageExpiry, result.Expiry.Errors)
	}
	s.Errors = append(s.Errors, result.Errors...)
	s.Tenants = append(s.Tenants, result)
}

func (s *JobRunSummary) appendCustomerErrors(tenantID uint, stage string, errs []string) {
	for _, msg := range errs {
		s.Errors = append(s.Errors, JobError{TenantID: tenantID, Stage: stage, Error: msg})
	}
}

// remember 保存运行结果：内存、Redis、数据库日志
func (s *LoyaltyJobService) remember(ctx context.Context, summary *JobRunSummary) {
	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	if err := cache.SetJSON(ctx, cache.LoyaltyLastRunKey(summary.JobName), summary, lastRunCacheTTL); err != nil {
		logger.Warnw("loyalty_job_cache_set_failed", "run_id", summary.RunID, "error", err)
	}
	if s.logRepo == nil {
		return
	}
	record := &models.CronJobLog{
		RunID:       summary.RunID,
		JobName:     summary.JobName,
		Scope:       summary.Scope,
		TenantID:    summary.TenantID,
		Status:      summary.Status,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
		DurationMS:  summary.DurationMS,
		SummaryJSON: summaryToJSON(summary),
		ErrorCount:  len(summary.Errors),
		CreatedAt:   summary.FinishedAt,
	}
	if err := s.logRepo.Create(record); err != nil {
		logger.Warnw("loyalty_job_log_save_failed", "run_id", summary.RunID, "error", err)
		return
	}
	if err := s.logRepo.DeleteOlderThanKeep(summary.JobName, s.cfg.RunLogRetention); err != nil {
		logger.Warnw("loyalty_job_log_prune_failed", "error", err)
	}
}

// Status 查询任务状态与最近运行日志
func (s *LoyaltyJobService) Status(ctx context.Context) (*JobStatus, error) {
	status := &JobStatus{
		Running:    s.running.Load(),
		Schedule:   s.cfg.Schedule,
		Timezone:   s.cfg.Timezone,
		RecentLogs: []models.CronJobLog{},
	}
	status.LastRun = s.lastRun(ctx)
	if s.logRepo == nil {
		return status, nil
	}
	logs, _, err := s.logRepo.List(repository.CronJobLogListFilter{
		JobName:  constants.JobNameLoyaltyDaily,
		Page:     1,
		PageSize: recentLogsLimit,
	})
	if err != nil {
		return nil, err
	}
	status.RecentLogs = logs
	return status, nil
}

func (s *LoyaltyJobService) lastRun(ctx context.Context) *JobRunSummary {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last
	}
	var cached JobRunSummary
	if hit, err := cache.GetJSON(ctx, cache.LoyaltyLastRunKey(constants.JobNameLoyaltyDaily), &cached); err == nil && hit {
		return &cached
	}
	if s.logRepo == nil {
		return nil
	}
	latest, err := s.logRepo.Latest(constants.JobNameLoyaltyDaily)
	if err != nil || latest == nil {
		return nil
	}
	return summaryFromJSON(latest.SummaryJSON)
}

func (s *LoyaltyJobService) lockTTL() time.Duration {
	seconds := s.cfg.LockTTLSeconds
	if seconds <= 0 {
		seconds = 1800
	}
	return time.Duration(seconds) * time.Second
}

func resolveJobStatus(total, failed int) string {
	switch {
	case failed == 0:
		return constants.JobStatusSuccess
	case failed < total:
		return constants.JobStatusPartial
	default:
		return constants.JobStatusFailed
	}
}

func stageNames(stages []jobStage) []string {
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, stage.name)
	}
	return names
}

func normalizeTrigger(trigger string) string {
	if trigger == constants.JobTriggerManual {
		return constants.JobTriggerManual
	}
	return constants.JobTriggerSchedule
}

func summaryToJSON(summary *JobRunSummary) models.JSON {
	raw, err := json.Marshal(summary)
	if err != nil {
		return models.JSON{}
	}
	result := models.JSON{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.JSON{}
	}
	return result
}

func summaryFromJSON(value models.JSON) *JobRunSummary {
	if len(value) == 0 {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var summary JobRunSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

package repository

import (
	"errors"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// CronJobLogRepository 任务日志数据访问接口
type CronJobLogRepository interface {
	Create(log *models.CronJobLog) error
	Latest(jobName string) (*models.CronJobLog, error)
	List(filter CronJobLogListFilter) ([]models.CronJobLog, int64, error)
	DeleteOlderThanKeep(jobName string, keep int) error
}

// GormCronJobLogRepository GORM 实现
type GormCronJobLogRepository struct {
	db *gorm.DB
}

// NewCronJobLogRepository 创建任务日志仓库
func NewCronJobLogRepository(db *gorm.DB) *GormCronJobLogRepository {
	return &GormCronJobLogRepository{db: db}
}

// Create 写入任务日志
func (r *GormCronJobLogRepository) Create(log *models.CronJobLog) error {
	return r.db.Create(log).Error
}

// Latest 获取最近一次任务日志
func (r *GormCronJobLogRepository) Latest(jobName string) (*models.CronJobLog, error) {
	var log models.CronJobLog
	if err := r.db.Where("job_name = ?", jobName).Order("id desc").First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// List 分页查询任务日志
func (r *GormCronJobLogRepository) List(filter CronJobLogListFilter) ([]models.CronJobLog, int64, error) {
	query := r.db.Model(&models.CronJobLog{})
	if filter.JobName != "" {
		query = query.Where("job_name = ?", filter.JobName)
	}
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.CronJobLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DeleteOlderThanKeep 仅保留最近 keep 条日志
func (r *GormCronJobLogRepository) DeleteOlderThanKeep(jobName string, keep int) error {
	if keep <= 0 {
		return nil
	}
	var ids []uint
	if err := r.db.Model(&models.CronJobLog{}).
		Where("job_name = ?", jobName).
		Order("id desc").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) <= keep {
		return nil
	}
	return r.db.Where("id IN ?", ids[keep:]).Delete(&models.CronJobLog{}).Error
}

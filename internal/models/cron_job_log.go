package models

import "time"

// CronJobLog 定时任务运行日志
type CronJobLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	RunID       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"run_id"`
	JobName     string    `gorm:"type:varchar(64);not null;index" json:"job_name"`
	Scope       string    `gorm:"type:varchar(16);not null" json:"scope"`
	TenantID    *uint     `gorm:"index" json:"tenant_id,omitempty"`
	Status      string    `gorm:"type:varchar(16);not null" json:"status"`
	StartedAt   time.Time `gorm:"index" json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMS  int64     `json:"duration_ms"`
	SummaryJSON JSON      `gorm:"type:json" json:"summary"`
	ErrorCount  int       `gorm:"not null;default:0" json:"error_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (CronJobLog) TableName() string {
	return "cron_job_logs"
}

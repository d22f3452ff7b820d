package models

import "time"

// Feedback 顾客反馈
type Feedback struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	CustomerID  *uint     `gorm:"index" json:"customer_id,omitempty"`
	Rating      int       `gorm:"not null" json:"rating"`
	Message     string    `gorm:"type:text" json:"message"`
	Status      string    `gorm:"type:varchar(16);not null;index" json:"status"`
	BonusPoints int64     `gorm:"not null;default:0" json:"bonus_points"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Feedback) TableName() string {
	return "feedbacks"
}

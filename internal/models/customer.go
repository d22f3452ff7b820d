package models

import "time"

// Customer 会员客户
type Customer struct {
	ID                       uint       `gorm:"primarykey" json:"id"`
	TenantID                 uint       `gorm:"not null;uniqueIndex:idx_customers_tenant_phone;index" json:"tenant_id"`
	Name                     string     `gorm:"type:varchar(120)" json:"name"`
	Phone                    string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_customers_tenant_phone" json:"phone"`
	Email                    string     `gorm:"type:varchar(255)" json:"email"`
	DateOfBirth              string     `gorm:"type:varchar(32)" json:"dob"`         // YYYY-MM-DD
	Anniversary              string     `gorm:"type:varchar(32)" json:"anniversary"` // YYYY-MM-DD
	PointsBalance            int64      `gorm:"not null;default:0" json:"total_points"`
	WalletBalance            Money      `gorm:"type:decimal(20,2);not null;default:0" json:"wallet_balance"`
	Tier                     string     `gorm:"type:varchar(16);not null;index" json:"tier"`
	TotalVisits              int        `gorm:"not null;default:0" json:"total_visits"`
	TotalSpent               Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_spent"`
	LastBirthdayBonusYear    int        `gorm:"not null;default:0" json:"last_birthday_bonus_year"`
	LastAnniversaryBonusYear int        `gorm:"not null;default:0" json:"last_anniversary_bonus_year"`
	FirstVisitBonusAwarded   bool       `gorm:"not null;default:false" json:"first_visit_bonus_awarded"`
	LastVisitAt              *time.Time `json:"last_visit"`
	LastExpiryReminderAt     *time.Time `json:"last_expiry_reminder"`
	LastPointsExpiryAt       *time.Time `json:"last_points_expiry"`
	CreatedAt                time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

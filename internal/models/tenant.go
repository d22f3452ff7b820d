package models

import "time"

// Tenant 商户（餐厅）
type Tenant struct {
	ID        uint      `gorm:"primarykey" json:"id"`                            // 主键
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`          // 商户名称
	APIKey    string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"` // POS 接入密钥
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`          // 是否启用
	CreatedAt time.Time `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}

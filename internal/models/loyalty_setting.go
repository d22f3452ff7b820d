package models

import "time"

// LoyaltySetting 商户积分规则（每个商户一行，值为 JSON）
type LoyaltySetting struct {
	TenantID  uint      `gorm:"primarykey;autoIncrement:false" json:"tenant_id"`
	ValueJSON JSON      `gorm:"type:json" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (LoyaltySetting) TableName() string {
	return "loyalty_settings"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                                      // 主键
	TenantID            uint           `gorm:"not null;uniqueIndex:idx_coupons_tenant_code" json:"tenant_id"`             // 商户ID
	Code                string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_coupons_tenant_code" json:"code"` // 优惠码（大写）
	Description         string         `gorm:"type:varchar(255)" json:"description"`                                      // 描述
	Type                string         `gorm:"type:varchar(16);not null" json:"discount_type"`                            // percentage/fixed
	Value               Money          `gorm:"type:decimal(20,2);not null" json:"discount_value"`                         // 折扣百分比或固定金额
	MinOrderValue       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_value"`              // 使用门槛
	MaxDiscount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"`                 // 最大优惠（仅百分比，0 不限制）
	UsageLimit          int            `gorm:"not null;default:0" json:"usage_limit"`                                     // 总使用上限（0 不限制）
	PerUserLimit        int            `gorm:"not null;default:0" json:"per_user_limit"`                                  // 每人使用上限（0 不限制）
	UsedCount           int            `gorm:"not null;default:0" json:"total_used"`                                      // 已使用次数
	ApplicableChannels  StringArray    `gorm:"type:json" json:"applicable_channels"`                                      // 适用渠道
	SpecificCustomerIDs IDList         `gorm:"type:json" json:"specific_users"`                                           // 指定客户（空为不限）
	StartsAt            *time.Time     `gorm:"index" json:"start_date"`                                                   // 生效时间
	EndsAt              *time.Time     `gorm:"index" json:"end_date"`                                                     // 失效时间
	IsActive            bool           `gorm:"not null;default:true" json:"is_active"`                                    // 是否启用
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                                   // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                            // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

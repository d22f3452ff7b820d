package models

import "time"

// CouponUsage 优惠券使用记录（只追加）
type CouponUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                // 主键
	TenantID       uint      `gorm:"not null;index" json:"tenant_id"`                                     // 商户ID
	CouponID       uint      `gorm:"not null;index:idx_coupon_usages_coupon_customer" json:"coupon_id"`   // 优惠券ID
	CustomerID     uint      `gorm:"not null;index:idx_coupon_usages_coupon_customer" json:"customer_id"` // 客户ID
	OrderRef       string    `gorm:"type:varchar(128);index" json:"order_ref"`                            // POS 订单号
	Channel        string    `gorm:"type:varchar(16)" json:"channel"`                                     // 下单渠道
	OrderValue     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"order_value"`            // 订单金额
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_applied"`       // 优惠金额
	CreatedAt      time.Time `gorm:"index" json:"used_at"`                                                // 使用时间
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}

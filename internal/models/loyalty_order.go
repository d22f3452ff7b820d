package models

import "time"

// LoyaltyOrder POS 订单积分回执（按商户 + 订单号去重）
type LoyaltyOrder struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	TenantID       uint      `gorm:"not null;uniqueIndex:idx_loyalty_orders_tenant_ref" json:"tenant_id"`
	OrderRef       string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_loyalty_orders_tenant_ref" json:"order_ref"`
	CustomerID     uint      `gorm:"not null;index" json:"customer_id"`
	Channel        string    `gorm:"type:varchar(16)" json:"channel"`
	BillAmount     Money     `gorm:"type:decimal(20,2);not null" json:"original_bill"`
	CouponCode     string    `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	CouponDiscount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"coupon_discount"`
	PointsRedeemed int64     `gorm:"not null;default:0" json:"points_redeemed"`
	RedeemValue    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"points_discount"`
	WalletUsed     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"wallet_used"`
	FinalAmount    Money     `gorm:"type:decimal(20,2);not null" json:"final_amount"`
	PointsEarned   int64     `gorm:"not null;default:0" json:"points_earned"`
	EarnPercent    Money     `gorm:"type:decimal(10,2);not null;default:0" json:"earn_percent"`
	OffPeakBonus   int64     `gorm:"not null;default:0" json:"off_peak_bonus"`
	BalanceAfter   int64     `gorm:"not null" json:"new_balance"`
	TierAfter      string    `gorm:"type:varchar(16)" json:"tier"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (LoyaltyOrder) TableName() string {
	return "loyalty_orders"
}

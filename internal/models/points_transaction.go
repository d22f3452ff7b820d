package models

import "time"

// PointsTransaction 积分流水（只追加，过期仅打标记）
type PointsTransaction struct {
	ID                   uint       `gorm:"primarykey" json:"id"`                                                                 // 主键（自增，决定流水顺序）
	TenantID             uint       `gorm:"not null;index" json:"tenant_id"`                                                      // 商户ID
	CustomerID           uint       `gorm:"not null;index;uniqueIndex:idx_points_txn_customer_ref" json:"customer_id"`            // 客户ID
	Type                 string     `gorm:"type:varchar(16);not null;index" json:"transaction_type"`                              // earn/redeem/bonus/expired
	BonusKind            string     `gorm:"type:varchar(32)" json:"bonus_kind,omitempty"`                                         // 奖励类型
	Points               int64      `gorm:"not null" json:"points"`                                                               // 积分变动（带符号）
	BillAmount           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"bill_amount"`                             // 关联账单金额
	Description          string     `gorm:"type:varchar(255)" json:"description"`                                                 // 描述
	BalanceAfter         int64      `gorm:"not null" json:"balance_after"`                                                        // 记账后余额
	Reference            *string    `gorm:"type:varchar(128);uniqueIndex:idx_points_txn_customer_ref" json:"reference,omitempty"` // 幂等键
	OrderRef             string     `gorm:"type:varchar(128);index" json:"order_ref,omitempty"`                                   // POS 订单号
	PointsExpired        bool       `gorm:"not null;default:false;index" json:"points_expired"`                                   // 是否已过期
	ExpiredAt            *time.Time `json:"expired_at,omitempty"`                                                                 // 过期时间
	SourceTransactionIDs IDList     `gorm:"type:json" json:"source_transaction_ids,omitempty"`                                    // 过期来源流水
	CreatedAt            time.Time  `gorm:"not null;index" json:"created_at"`                                                     // 创建时间
}

// TableName 指定表名
func (PointsTransaction) TableName() string {
	return "points_transactions"
}

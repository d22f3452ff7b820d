package models

import "time"

// WalletTransaction 钱包流水
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TenantID      uint      `gorm:"not null;index" json:"tenant_id"`
	CustomerID    uint      `gorm:"not null;index;uniqueIndex:idx_wallet_txn_customer_ref" json:"customer_id"`
	Type          string    `gorm:"type:varchar(16);not null;index" json:"transaction_type"` // credit/debit/order_pay
	Amount        Money     `gorm:"type:decimal(20,2);not null" json:"amount"`               // 带符号金额
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	Reference     *string   `gorm:"type:varchar(128);uniqueIndex:idx_wallet_txn_customer_ref" json:"reference,omitempty"`
	Description   string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

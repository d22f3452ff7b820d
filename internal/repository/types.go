package repository

import "time"

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page     int
	PageSize int
	TenantID uint
	Tier     string
	Keyword  string
}

// PointsTransactionFilter 查询积分流水的过滤条件
type PointsTransactionFilter struct {
	Page        int
	PageSize    int
	TenantID    uint
	CustomerID  uint
	Types       []string
	OnlyActive  bool // 仅未过期
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	CreatedLT   *time.Time // 严格早于
	OrderAsc    bool
}

// CouponUsageListFilter 查询优惠券使用记录列表的过滤条件
type CouponUsageListFilter struct {
	Page       int
	PageSize   int
	TenantID   uint
	CouponID   uint
	CustomerID uint
}

// WalletTransactionListFilter 查询钱包流水列表的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	TenantID    uint
	CustomerID  uint
	Type        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// FeedbackListFilter 查询反馈列表的过滤条件
type FeedbackListFilter struct {
	Page       int
	PageSize   int
	TenantID   uint
	CustomerID uint
	Status     string
}

// CronJobLogListFilter 查询任务日志列表的过滤条件
type CronJobLogListFilter struct {
	Page     int
	PageSize int
	JobName  string
	TenantID uint
}

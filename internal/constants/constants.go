package constants

// 会员等级常量
const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// 积分流水类型常量
const (
	PointsTxnTypeEarn    = "earn"
	PointsTxnTypeRedeem  = "redeem"
	PointsTxnTypeBonus   = "bonus"
	PointsTxnTypeExpired = "expired"
)

// 奖励类型常量
const (
	BonusKindBirthday    = "birthday"
	BonusKindAnniversary = "anniversary"
	BonusKindFirstVisit  = "first_visit"
	BonusKindFeedback    = "feedback"
)

// 时段奖励类型常量
const (
	OffPeakBonusMultiplier = "multiplier"
	OffPeakBonusFlat       = "flat"
)

// 优惠券类型常量
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// 下单渠道常量
const (
	ChannelDelivery = "delivery"
	ChannelTakeaway = "takeaway"
	ChannelDineIn   = "dine_in"
)

// 钱包流水类型常量
const (
	WalletTxnTypeCredit   = "credit"
	WalletTxnTypeDebit    = "debit"
	WalletTxnTypeOrderPay = "order_pay"
)

// 反馈状态常量
const (
	FeedbackStatusPending  = "pending"
	FeedbackStatusResolved = "resolved"
)

// 会员事件类型常量（供下游通知服务消费）
const (
	LoyaltyEventPointsEarned    = "points_earned"
	LoyaltyEventPointsRedeemed  = "points_redeemed"
	LoyaltyEventBonusAwarded    = "bonus_awarded"
	LoyaltyEventPointsExpired   = "points_expired"
	LoyaltyEventExpiryReminder  = "expiry_reminder"
	LoyaltyEventWalletChanged   = "wallet_changed"
	LoyaltyEventCouponRedeemed  = "coupon_redeemed"
	LoyaltyEventTierChanged     = "tier_changed"
	LoyaltyEventCustomerCreated = "customer_created"
)

// 定时任务常量
const (
	JobNameLoyaltyDaily = "loyalty_daily"
	JobScopeAll         = "all"
	JobScopeTenant      = "tenant"
	JobStatusSuccess    = "success"
	JobStatusPartial    = "partial"
	JobStatusFailed     = "failed"
	JobStatusSkipped    = "skipped"
	JobTriggerSchedule  = "schedule"
	JobTriggerManual    = "manual"

	JobStageBirthday    = "birthday_bonus"
	JobStageAnniversary = "anniversary_bonus"
	JobStageReminders   = "expiry_reminders"
	JobStageExpiry      = "points_expiry"
)

// 异步队列常量
const (
	QueueDefault           = "default"
	QueueCritical          = "critical"
	TaskLoyaltyDaily       = "loyalty:daily"
	TaskLoyaltyTenantDaily = "loyalty:tenant_daily"
	TaskLoyaltyEvent       = "loyalty:event"
)

// 默认配置常量
const (
	DefaultTenantTimezone = "Asia/Kolkata"
	DaysPerMonth          = 30
)

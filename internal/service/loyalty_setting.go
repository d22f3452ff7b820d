package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能缺少系统时区库

	"github.com/dinepoints/internal/cache"
	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	loyaltyPercentMin       = 0
	loyaltyPercentMax       = 100
	loyaltyExpiryMonthsMax  = 120
	loyaltyReminderDaysMax  = 365
	loyaltyBonusWindowMax   = 60
	loyaltyClockLayout      = "15:04"
	loyaltyMaxBonusPoints   = 1000000
	loyaltyMaxOffPeakFactor = 10
)

// BonusRule 单项奖励规则
type BonusRule struct {
	Enabled    bool
	Points     int64
	DaysBefore int
	DaysAfter  int
}

// LoyaltySetting 商户积分规则
// 等级阈值应保持 silver < gold < platinum，乱序时等级判定结果未定义（不做强制校验）
type LoyaltySetting struct {
	MinOrderValue       decimal.Decimal `json:"min_order_value"`
	BronzeEarnPercent   decimal.Decimal `json:"bronze_earn_percent"`
	SilverEarnPercent   decimal.Decimal `json:"silver_earn_percent"`
	GoldEarnPercent     decimal.Decimal `json:"gold_earn_percent"`
	PlatinumEarnPercent decimal.Decimal `json:"platinum_earn_percent"`

	RedemptionValue      decimal.Decimal `json:"redemption_value"`
	MinRedemptionPoints  int64           `json:"min_redemption_points"`
	MaxRedemptionPercent decimal.Decimal `json:"max_redemption_percent"`
	MaxRedemptionAmount  decimal.Decimal `json:"max_redemption_amount"` // 0 表示不设绝对上限

	PointsExpiryMonths int `json:"points_expiry_months"` // 0 表示不过期
	ExpiryReminderDays int `json:"expiry_reminder_days"`

	TierSilverMin   int64 `json:"tier_silver_min"`
	TierGoldMin     int64 `json:"tier_gold_min"`
	TierPlatinumMin int64 `json:"tier_platinum_min"`

	BirthdayBonusEnabled    bool  `json:"birthday_bonus_enabled"`
	BirthdayBonusPoints     int64 `json:"birthday_bonus_points"`
	BirthdayBonusDaysBefore int   `json:"birthday_bonus_days_before"`
	BirthdayBonusDaysAfter  int   `json:"birthday_bonus_days_after"`

	AnniversaryBonusEnabled    bool  `json:"anniversary_bonus_enabled"`
	AnniversaryBonusPoints     int64 `json:"anniversary_bonus_points"`
	AnniversaryBonusDaysBefore int   `json:"anniversary_bonus_days_before"`
	AnniversaryBonusDaysAfter  int   `json:"anniversary_bonus_days_after"`

	FirstVisitBonusEnabled bool  `json:"first_visit_bonus_enabled"`
	FirstVisitBonusPoints  int64 `json:"first_visit_bonus_points"`

	OffPeakBonusEnabled bool            `json:"off_peak_bonus_enabled"`
	OffPeakStartTime    string          `json:"off_peak_start_time"` // HH:MM，商户本地时间
	OffPeakEndTime      string          `json:"off_peak_end_time"`
	OffPeakBonusType    string          `json:"off_peak_bonus_type"` // multiplier / flat
	OffPeakBonusValue   decimal.Decimal `json:"off_peak_bonus_value"`

	FeedbackBonusEnabled bool  `json:"feedback_bonus_enabled"`
	FeedbackBonusPoints  int64 `json:"feedback_bonus_points"`

	Timezone string `json:"timezone"` // IANA 时区
}

// LoyaltyDefaultSetting 默认积分规则（奖励类功能默认关闭）
func LoyaltyDefaultSetting() LoyaltySetting {
	return NormalizeLoyaltySetting(LoyaltySetting{
		MinOrderValue:             decimal.NewFromInt(100),
		BronzeEarnPercent:         decimal.NewFromInt(5),
		SilverEarnPercent:         decimal.NewFromInt(7),
		GoldEarnPercent:           decimal.NewFromInt(10),
		PlatinumEarnPercent:       decimal.NewFromInt(15),
		RedemptionValue:           decimal.NewFromInt(1),
		MinRedemptionPoints:       50,
		MaxRedemptionPercent:      decimal.NewFromInt(50),
		MaxRedemptionAmount:       decimal.NewFromInt(500),
		PointsExpiryMonths:        6,
		ExpiryReminderDays:        30,
		TierSilverMin:             500,
		TierGoldMin:               1500,
		TierPlatinumMin:           5000,
		BirthdayBonusPoints:       100,
		BirthdayBonusDaysAfter:    7,
		AnniversaryBonusPoints:    150,
		AnniversaryBonusDaysAfter: 7,
		FirstVisitBonusPoints:     50,
		OffPeakStartTime:          "14:00",
		OffPeakEndTime:            "17:00",
		OffPeakBonusType:          constants.OffPeakBonusMultiplier,
		OffPeakBonusValue:         decimal.NewFromInt(2),
		FeedbackBonusPoints:       25,
		Timezone:                  constants.DefaultTenantTimezone,
	})
}

// NormalizeLoyaltySetting 归一化积分规则
func NormalizeLoyaltySetting(setting LoyaltySetting) LoyaltySetting {
	setting.MinOrderValue = clampDecimalMin(setting.MinOrderValue, decimal.Zero).Round(2)
	setting.BronzeEarnPercent = clampPercent(setting.BronzeEarnPercent)
	setting.SilverEarnPercent = clampPercent(setting.SilverEarnPercent)
	setting.GoldEarnPercent = clampPercent(setting.GoldEarnPercent)
	setting.PlatinumEarnPercent = clampPercent(setting.PlatinumEarnPercent)

	if !setting.RedemptionValue.IsPositive() {
		setting.RedemptionValue = decimal.NewFromInt(1)
	}
	setting.RedemptionValue = setting.RedemptionValue.Round(4)
	setting.MinRedemptionPoints = clampInt64(setting.MinRedemptionPoints, 0, loyaltyMaxBonusPoints)
	setting.MaxRedemptionPercent = clampPercent(setting.MaxRedemptionPercent)
	setting.MaxRedemptionAmount = clampDecimalMin(setting.MaxRedemptionAmount, decimal.Zero).Round(2)

	setting.PointsExpiryMonths = clampInt(setting.PointsExpiryMonths, 0, loyaltyExpiryMonthsMax)
	setting.ExpiryReminderDays = clampInt(setting.ExpiryReminderDays, 0, loyaltyReminderDaysMax)

	if setting.TierSilverMin < 0 {
		setting.TierSilverMin = 0
	}
	if setting.TierGoldMin < 0 {
		setting.TierGoldMin = 0
	}
	if setting.TierPlatinumMin < 0 {
		setting.TierPlatinumMin = 0
	}

	setting.BirthdayBonusPoints = clampInt64(setting.BirthdayBonusPoints, 0, loyaltyMaxBonusPoints)
	setting.BirthdayBonusDaysBefore = clampInt(setting.BirthdayBonusDaysBefore, 0, loyaltyBonusWindowMax)
	setting.BirthdayBonusDaysAfter = clampInt(setting.BirthdayBonusDaysAfter, 0, loyaltyBonusWindowMax)
	setting.AnniversaryBonusPoints = clampInt64(setting.AnniversaryBonusPoints, 0, loyaltyMaxBonusPoints)
	setting.AnniversaryBonusDaysBefore = clampInt(setting.AnniversaryBonusDaysBefore, 0, loyaltyBonusWindowMax)
	setting.AnniversaryBonusDaysAfter = clampInt(setting.AnniversaryBonusDaysAfter, 0, loyaltyBonusWindowMax)
	setting.FirstVisitBonusPoints = clampInt64(setting.FirstVisitBonusPoints, 0, loyaltyMaxBonusPoints)
	setting.FeedbackBonusPoints = clampInt64(setting.FeedbackBonusPoints, 0, loyaltyMaxBonusPoints)

	if _, err := time.Parse(loyaltyClockLayout, strings.TrimSpace(setting.OffPeakStartTime)); err != nil {
		setting.OffPeakStartTime = "14:00"
	}
	if _, err := time.Parse(loyaltyClockLayout, strings.TrimSpace(setting.OffPeakEndTime)); err != nil {
		setting.OffPeakEndTime = "17:00"
	}
	setting.OffPeakStartTime = strings.TrimSpace(setting.OffPeakStartTime)
	setting.OffPeakEndTime = strings.TrimSpace(setting.OffPeakEndTime)
	setting.OffPeakBonusType = strings.ToLower(strings.TrimSpace(setting.OffPeakBonusType))
	if setting.OffPeakBonusType != constants.OffPeakBonusFlat {
		setting.OffPeakBonusType = constants.OffPeakBonusMultiplier
	}
	setting.OffPeakBonusValue = clampDecimalMin(setting.OffPeakBonusValue, decimal.Zero)
	if setting.OffPeakBonusType == constants.OffPeakBonusMultiplier &&
		setting.OffPeakBonusValue.GreaterThan(decimal.NewFromInt(loyaltyMaxOffPeakFactor)) {
		setting.OffPeakBonusValue = decimal.NewFromInt(loyaltyMaxOffPeakFactor)
	}

	setting.Timezone = strings.TrimSpace(setting.Timezone)
	if setting.Timezone == "" {
		setting.Timezone = constants.DefaultTenantTimezone
	}
	if _, err := time.LoadLocation(setting.Timezone); err != nil {
		setting.Timezone = constants.DefaultTenantTimezone
	}
	return setting
}

// ValidateLoyaltySetting 校验管理端提交的积分规则
func ValidateLoyaltySetting(setting LoyaltySetting) error {
	if !setting.RedemptionValue.IsPositive() {
		return fmt.Errorf("%w: redemption_value must be positive", ErrLoyaltyConfigInvalid)
	}
	for name, value := range map[string]decimal.Decimal{
		"bronze_earn_percent":    setting.BronzeEarnPercent,
		"silver_earn_percent":    setting.SilverEarnPercent,
		"gold_earn_percent":      setting.GoldEarnPercent,
		"platinum_earn_percent":  setting.PlatinumEarnPercent,
		"max_redemption_percent": setting.MaxRedemptionPercent,
	} {
		if value.LessThan(decimal.NewFromInt(loyaltyPercentMin)) || value.GreaterThan(decimal.NewFromInt(loyaltyPercentMax)) {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrLoyaltyConfigInvalid, name)
		}
	}
	if setting.PointsExpiryMonths < 0 || setting.ExpiryReminderDays < 0 {
		return fmt.Errorf("%w: expiry window must not be negative", ErrLoyaltyConfigInvalid)
	}
	if _, err := time.Parse(loyaltyClockLayout, strings.TrimSpace(setting.OffPeakStartTime)); err != nil {
		return fmt.Errorf("%w: off_peak_start_time must be HH:MM", ErrLoyaltyConfigInvalid)
	}
	if _, err := time.Parse(loyaltyClockLayout, strings.TrimSpace(setting.OffPeakEndTime)); err != nil {
		return fmt.Errorf("%w: off_peak_end_time must be HH:MM", ErrLoyaltyConfigInvalid)
	}
	switch strings.ToLower(strings.TrimSpace(setting.OffPeakBonusType)) {
	case constants.OffPeakBonusMultiplier, constants.OffPeakBonusFlat:
	default:
		return fmt.Errorf("%w: off_peak_bonus_type must be multiplier or flat", ErrLoyaltyConfigInvalid)
	}
	if tz := strings.TrimSpace(setting.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrLoyaltyConfigInvalid, tz)
		}
	}
	return nil
}

// Location 商户时区
func (s LoyaltySetting) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc, err = time.LoadLocation(constants.DefaultTenantTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// Bonus 按奖励类型返回规则
func (s LoyaltySetting) Bonus(kind string) BonusRule {
	switch kind {
	case constants.BonusKindBirthday:
		return BonusRule{
			Enabled:    s.BirthdayBonusEnabled,
			Points:     s.BirthdayBonusPoints,
			DaysBefore: s.BirthdayBonusDaysBefore,
			DaysAfter:  s.BirthdayBonusDaysAfter,
		}
	case constants.BonusKindAnniversary:
		return BonusRule{
			Enabled:    s.AnniversaryBonusEnabled,
			Points:     s.AnniversaryBonusPoints,
			DaysBefore: s.AnniversaryBonusDaysBefore,
			DaysAfter:  s.AnniversaryBonusDaysAfter,
		}
	case constants.BonusKindFirstVisit:
		return BonusRule{Enabled: s.FirstVisitBonusEnabled, Points: s.FirstVisitBonusPoints}
	case constants.BonusKindFeedback:
		return BonusRule{Enabled: s.FeedbackBonusEnabled, Points: s.FeedbackBonusPoints}
	default:
		return BonusRule{}
	}
}

// TierThresholds 等级阈值
func (s LoyaltySetting) TierThresholds() TierThresholds {
	return TierThresholds{
		SilverMin:   s.TierSilverMin,
		GoldMin:     s.TierGoldMin,
		PlatinumMin: s.TierPlatinumMin,
	}
}

// LoyaltySettingToMap 将积分规则转换为存储结构
func LoyaltySettingToMap(setting LoyaltySetting) map[string]interface{} {
	normalized := NormalizeLoyaltySetting(setting)
	raw, err := json.Marshal(normalized)
	if err != nil {
		return map[string]interface{}{}
	}
	result := make(map[string]interface{})
	if err := json.Unmarshal(raw, &result); err != nil {
		return map[string]interface{}{}
	}
	return result
}

// loyaltySettingFromJSON 以 fallback 为底合并存储值，未知或非法字段保持默认
func loyaltySettingFromJSON(raw models.JSON, fallback LoyaltySetting) LoyaltySetting {
	result := fallback
	if len(raw) == 0 {
		return NormalizeLoyaltySetting(result)
	}
	for key, value := range raw {
		patch, err := json.Marshal(map[string]interface{}{key: value})
		if err != nil {
			continue
		}
		candidate := result
		if err := json.Unmarshal(patch, &candidate); err != nil {
			continue
		}
		result = candidate
	}
	return NormalizeLoyaltySetting(result)
}

// SettingService 商户积分规则服务
type SettingService struct {
	repo            repository.LoyaltySettingRepository
	defaultTimezone string
}

// NewSettingService 创建积分规则服务，defaultTimezone 为空时使用内置默认时区
func NewSettingService(repo repository.LoyaltySettingRepository, defaultTimezone string) *SettingService {
	return &SettingService{repo: repo, defaultTimezone: strings.TrimSpace(defaultTimezone)}
}

// Defaults 商户未保存规则时使用的默认值
func (s *SettingService) Defaults() LoyaltySetting {
	setting := LoyaltyDefaultSetting()
	if s != nil && s.defaultTimezone != "" {
		if _, err := time.LoadLocation(s.defaultTimezone); err == nil {
			setting.Timezone = s.defaultTimezone
		}
	}
	return setting
}

// GetLoyaltySetting 获取商户积分规则（无记录时回退默认值，从不因缺失而报错）
func (s *SettingService) GetLoyaltySetting(tenantID uint) (LoyaltySetting, error) {
	fallback := s.Defaults()
	if s == nil || s.repo == nil || tenantID == 0 {
		return fallback, nil
	}

	ctx := context.Background()
	var cached LoyaltySetting
	if hit, err := cache.GetJSON(ctx, cache.LoyaltySettingKey(tenantID), &cached); err == nil && hit {
		return NormalizeLoyaltySetting(cached), nil
	}

	row, err := s.repo.GetByTenant(tenantID)
	if err != nil {
		return fallback, err
	}
	if row == nil {
		return fallback, nil
	}
	setting := loyaltySettingFromJSON(row.ValueJSON, fallback)
	if err := cache.SetJSON(ctx, cache.LoyaltySettingKey(tenantID), setting, cache.LoyaltySettingTTL()); err != nil {
		logger.Warnw("loyalty_setting_cache_set_failed", "tenant_id", tenantID, "error", err)
	}
	return setting, nil
}

// UpdateLoyaltySetting 合并更新商户积分规则
func (s *SettingService) UpdateLoyaltySetting(tenantID uint, patch map[string]interface{}) (LoyaltySetting, error) {
	if tenantID == 0 {
		return s.Defaults(), ErrTenantNotFound
	}
	current, err := s.GetLoyaltySetting(tenantID)
	if err != nil {
		return current, err
	}

	merged := current
	if len(patch) > 0 {
		raw, err := json.Marshal(patch)
		if err != nil {
			return current, fmt.Errorf("%w: %v", ErrLoyaltyConfigInvalid, err)
		}
		if err := json.Unmarshal(raw, &merged); err != nil {
			return current, fmt.Errorf("%w: %v", ErrLoyaltyConfigInvalid, err)
		}
	}
	if err := ValidateLoyaltySetting(merged); err != nil {
		return current, err
	}
	normalized := NormalizeLoyaltySetting(merged)
	if _, err := s.repo.Upsert(tenantID, models.JSON(LoyaltySettingToMap(normalized))); err != nil {
		return current, err
	}
	if err := cache.Del(context.Background(), cache.LoyaltySettingKey(tenantID)); err != nil {
		logger.Warnw("loyalty_setting_cache_del_failed", "tenant_id", tenantID, "error", err)
	}
	return normalized, nil
}

// HasStoredSetting 商户是否保存过积分规则
func (s *SettingService) HasStoredSetting(tenantID uint) (bool, error) {
	row, err := s.repo.GetByTenant(tenantID)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

// ListConfiguredTenantIDs 已保存积分规则的商户
func (s *SettingService) ListConfiguredTenantIDs() ([]uint, error) {
	return s.repo.ListTenantIDs()
}

func clampPercent(value decimal.Decimal) decimal.Decimal {
	if value.LessThan(decimal.NewFromInt(loyaltyPercentMin)) {
		return decimal.NewFromInt(loyaltyPercentMin)
	}
	if value.GreaterThan(decimal.NewFromInt(loyaltyPercentMax)) {
		return decimal.NewFromInt(loyaltyPercentMax)
	}
	return value.Round(2)
}

func clampDecimalMin(value, min decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampInt64(value, min, max int64) int64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

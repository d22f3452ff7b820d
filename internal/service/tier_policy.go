package service

import (
	"github.com/dinepoints/internal/constants"

	"github.com/shopspring/decimal"
)

// TierThresholds 等级积分阈值（升序）
type TierThresholds struct {
	SilverMin   int64
	GoldMin     int64
	PlatinumMin int64
}

// CalculateTier 根据积分余额自上而下判定会员等级
// 阈值乱序时结果未定义，调用方负责保证 silver <= gold <= platinum
func CalculateTier(balance int64, thresholds TierThresholds) string {
	switch {
	case balance >= thresholds.PlatinumMin:
		return constants.TierPlatinum
	case balance >= thresholds.GoldMin:
		return constants.TierGold
	case balance >= thresholds.SilverMin:
		return constants.TierSilver
	default:
		return constants.TierBronze
	}
}

// TierRank 等级序号，Bronze < Silver < Gold < Platinum，未知等级视为 Bronze
func TierRank(tier string) int {
	switch tier {
	case constants.TierSilver:
		return 1
	case constants.TierGold:
		return 2
	case constants.TierPlatinum:
		return 3
	default:
		return 0
	}
}

// EarnPercentForTier 等级对应的积分比例
func EarnPercentForTier(setting LoyaltySetting, tier string) decimal.Decimal {
	switch tier {
	case constants.TierSilver:
		return setting.SilverEarnPercent
	case constants.TierGold:
		return setting.GoldEarnPercent
	case constants.TierPlatinum:
		return setting.PlatinumEarnPercent
	default:
		return setting.BronzeEarnPercent
	}
}

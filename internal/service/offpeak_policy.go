package service

import (
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"

	"github.com/shopspring/decimal"
)

// OffPeakBonus 计算时段奖励积分
// now 按商户时区换算为本地时刻，窗口两端均包含；起始晚于结束时视为跨午夜
func OffPeakBonus(setting LoyaltySetting, basePoints int64, now time.Time) int64 {
	if !setting.OffPeakBonusEnabled || basePoints <= 0 {
		return 0
	}
	if !inOffPeakWindow(setting, now) {
		return 0
	}
	switch setting.OffPeakBonusType {
	case constants.OffPeakBonusFlat:
		return setting.OffPeakBonusValue.Floor().IntPart()
	default:
		factor := setting.OffPeakBonusValue.Sub(decimal.NewFromInt(1))
		if !factor.IsPositive() {
			return 0
		}
		return decimal.NewFromInt(basePoints).Mul(factor).Floor().IntPart()
	}
}

func inOffPeakWindow(setting LoyaltySetting, now time.Time) bool {
	start, ok := parseClockMinutes(setting.OffPeakStartTime)
	if !ok {
		return false
	}
	end, ok := parseClockMinutes(setting.OffPeakEndTime)
	if !ok {
		return false
	}
	local := now.In(setting.Location())
	current := local.Hour()*60 + local.Minute()
	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}

func parseClockMinutes(raw string) (int, bool) {
	parsed, err := time.Parse(loyaltyClockLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}

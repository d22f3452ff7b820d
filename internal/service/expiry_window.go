package service

import (
	"time"

	"github.com/dinepoints/internal/constants"
)

// ExpiryWindow 积分过期窗口（按每月 30 天近似）
type ExpiryWindow struct {
	Enabled        bool
	Cutoff         time.Time // 早于该时间的积分已过期
	ReminderCutoff time.Time // [Cutoff, ReminderCutoff] 内的积分即将过期
	Months         int
}

// NewExpiryWindow 根据当前时间与规则计算过期窗口，months 为 0 时不启用
func NewExpiryWindow(setting LoyaltySetting, now time.Time) ExpiryWindow {
	months := setting.PointsExpiryMonths
	if months <= 0 {
		return ExpiryWindow{}
	}
	cutoff := now.Add(-monthsToDuration(months))
	return ExpiryWindow{
		Enabled:        true,
		Cutoff:         cutoff,
		ReminderCutoff: cutoff.Add(time.Duration(setting.ExpiryReminderDays) * 24 * time.Hour),
		Months:         months,
	}
}

// ExpiresAt 某笔积分的到期时间
func (w ExpiryWindow) ExpiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(monthsToDuration(w.Months))
}

func monthsToDuration(months int) time.Duration {
	return time.Duration(months*constants.DaysPerMonth) * 24 * time.Hour
}

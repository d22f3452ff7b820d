package service

import (
	"fmt"
	"strings"
	"time"
)

const anchorDateLayout = "2006-01-02"

// bonusWindow 年度奖励窗口（商户本地日期，两端包含）
type bonusWindow struct {
	Anchor time.Time
	Start  time.Time
	End    time.Time
}

// parseAnchorDate 解析生日/纪念日，只取前 10 位 YYYY-MM-DD（兼容带时间的 ISO 字符串）
func parseAnchorDate(raw string) (month time.Month, day int, err error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > len(anchorDateLayout) {
		trimmed = trimmed[:len(anchorDateLayout)]
	}
	parsed, err := time.Parse(anchorDateLayout, trimmed)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	return parsed.Month(), parsed.Day(), nil
}

// anchorInYear 将锚点日期换算到指定年份，当年不存在该日（如非闰年 2 月 29 日）时取当月 28 日
func anchorInYear(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// resolveBonusWindow 计算今年的奖励窗口
func resolveBonusWindow(raw string, rule BonusRule, today time.Time) (bonusWindow, error) {
	month, day, err := parseAnchorDate(raw)
	if err != nil {
		return bonusWindow{}, err
	}
	anchor := anchorInYear(today.Year(), month, day, today.Location())
	return bonusWindow{
		Anchor: anchor,
		Start:  anchor.AddDate(0, 0, -rule.DaysBefore),
		End:    anchor.AddDate(0, 0, rule.DaysAfter),
	}, nil
}

// Contains 判断本地日期是否落在窗口内
func (w bonusWindow) Contains(today time.Time) bool {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

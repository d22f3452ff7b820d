package service

import (
	"errors"
	"testing"
	"time"
)

func TestAnchorInYearClampsLeapDay(t *testing.T) {
	anchor := anchorInYear(2027, time.February, 29, time.UTC)
	if anchor.Month() != time.February || anchor.Day() != 28 {
		t.Fatalf("want Feb 28 got %s", anchor.Format(anchorDateLayout))
	}
	leap := anchorInYear(2028, time.February, 29, time.UTC)
	if leap.Day() != 29 {
		t.Fatalf("leap year should keep Feb 29, got %s", leap.Format(anchorDateLayout))
	}
}

func TestResolveBonusWindowInclusive(t *testing.T) {
	rule := BonusRule{Enabled: true, Points: 100, DaysBefore: 2, DaysAfter: 7}
	today := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	window, err := resolveBonusWindow("1990-06-12T00:00:00", rule, today)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !window.Contains(today) {
		t.Fatalf("window start should be inclusive")
	}
	if !window.Contains(time.Date(2026, 6, 19, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("window end should be inclusive")
	}
	if window.Contains(time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after window end should be outside")
	}
}

func TestParseAnchorDateMalformed(t *testing.T) {
	for _, raw := range []string{"12/06/1990", "not-a-date", "1990-13-01"} {
		if _, _, err := parseAnchorDate(raw); !errors.Is(err, ErrMalformedDate) {
			t.Fatalf("%q: want ErrMalformedDate, got %v", raw, err)
		}
	}
}

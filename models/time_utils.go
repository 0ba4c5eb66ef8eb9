package models

import (
	"fmt"
	"time"
)

// ReportDateLayout is DD-MM-YYYY
const ReportDateLayout = "02-01-2006"

// CalendarDaysForBars estimates how many calendar days cover the given number
// of bars at an interval. Used by sources that only accept date windows.
func CalendarDaysForBars(interval string, bars int) int {
	var days float64

	switch interval {
	case "1min":
		days = float64(bars) / (6.5 * 60)
	case "5min":
		days = float64(bars) / (6.5 * 12)
	case "15min":
		days = float64(bars) / (6.5 * 4)
	case "30min":
		days = float64(bars) / (6.5 * 2)
	case "1h":
		days = float64(bars) / 6.5
	case "1day":
		// 252 trading days in 365 calendar days
		days = float64(bars) * 365 / 252
	case "1week":
		days = float64(bars) * 7
	case "1month":
		days = float64(bars) * 31
	default:
		days = float64(bars) * 365 / 252
	}

	// buffer for holidays and half sessions
	return int(days*1.1) + 1
}

// Window resolves a lookback to a concrete [start, end] in loc
func (l Lookback) Window(interval string, now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	end := l.End
	if end.IsZero() {
		end = now
	}
	if l.IsWindow() {
		return l.Start.In(loc), end.In(loc)
	}
	start := end.AddDate(0, 0, -CalendarDaysForBars(interval, l.Bars))
	return start.In(loc), end.In(loc)
}

// ParseDate parses a YYYY-MM-DD date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

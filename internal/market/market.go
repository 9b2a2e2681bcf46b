// Package market holds the US equity session calendar.
package market

import (
	"fmt"
	"time"
)

// Schedule is the regular session in US Eastern Time.
type Schedule struct {
	OpenHour  int // 9
	OpenMin   int // 30
	CloseHour int // 16
	CloseMin  int // 0
}

// DefaultSchedule is the NYSE/NASDAQ regular session.
func DefaultSchedule() Schedule {
	return Schedule{
		OpenHour:  9,
		OpenMin:   30,
		CloseHour: 16,
		CloseMin:  0,
	}
}

// Status describes the market at one instant.
type Status struct {
	IsOpen        bool
	CurrentTimeET time.Time
	OpenTime      time.Time
	CloseTime     time.Time
	TimeToOpen    time.Duration
	TimeToClose   time.Duration
	Reason        string // "open", "weekend", "holiday", "pre-market", "after-hours"
}

// ETLocation returns America/New_York, or a fixed EST zone if tzdata is
// missing.
func ETLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// GetStatus reports the session state at now.
func GetStatus(now time.Time, schedule Schedule) Status {
	loc := ETLocation()
	now = now.In(loc)

	status := Status{CurrentTimeET: now}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	status.OpenTime = schedule.at(today, loc)
	status.CloseTime = time.Date(today.Year(), today.Month(), today.Day(), schedule.CloseHour, schedule.CloseMin, 0, 0, loc)

	if !IsTradingDay(today) {
		status.Reason = "holiday"
		if wd := today.Weekday(); wd == time.Saturday || wd == time.Sunday {
			status.Reason = "weekend"
		}
		status.TimeToOpen = schedule.at(NextTradingDay(today), loc).Sub(now)
		return status
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	openMinutes := schedule.OpenHour*60 + schedule.OpenMin
	closeMinutes := schedule.CloseHour*60 + schedule.CloseMin

	switch {
	case currentMinutes < openMinutes:
		status.Reason = "pre-market"
		status.TimeToOpen = status.OpenTime.Sub(now)
	case currentMinutes >= closeMinutes:
		status.Reason = "after-hours"
		status.TimeToOpen = schedule.at(NextTradingDay(today), loc).Sub(now)
	default:
		status.IsOpen = true
		status.Reason = "open"
		status.TimeToClose = status.CloseTime.Sub(now)
	}
	return status
}

func (s Schedule) at(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.OpenHour, s.OpenMin, 0, 0, loc)
}

// IsTradingDay reports whether t's calendar date is a weekday that is not a
// US market holiday.
func IsTradingDay(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !IsUSHoliday(t)
}

// NextTradingDay returns the first trading day after t's date.
func NextTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// SessionDate returns the ET calendar date of now as midnight UTC, the key
// used for report file names.
func SessionDate(now time.Time) time.Time {
	et := now.In(ETLocation())
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDuration renders d as "Xh Ym" or "Ym".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Full-day NYSE closures.
var usHolidays = map[string]bool{
	"2024-01-01": true, // New Year's Day
	"2024-01-15": true, // MLK Day
	"2024-02-19": true, // Presidents Day
	"2024-03-29": true, // Good Friday
	"2024-05-27": true, // Memorial Day
	"2024-06-19": true, // Juneteenth
	"2024-07-04": true, // Independence Day
	"2024-09-02": true, // Labor Day
	"2024-11-28": true, // Thanksgiving
	"2024-12-25": true, // Christmas

	"2025-01-01": true,
	"2025-01-09": true, // National Day of Mourning
	"2025-01-20": true,
	"2025-02-17": true,
	"2025-04-18": true,
	"2025-05-26": true,
	"2025-06-19": true,
	"2025-07-04": true,
	"2025-09-01": true,
	"2025-11-27": true,
	"2025-12-25": true,

	"2026-01-01": true,
	"2026-01-19": true,
	"2026-02-16": true,
	"2026-04-03": true,
	"2026-05-25": true,
	"2026-06-19": true,
	"2026-07-03": true, // Independence Day (observed)
	"2026-09-07": true,
	"2026-11-26": true,
	"2026-12-25": true,

	"2027-01-01": true,
	"2027-01-18": true,
	"2027-02-15": true,
	"2027-03-26": true,
	"2027-05-31": true,
	"2027-06-18": true, // Juneteenth (observed)
	"2027-07-05": true, // Independence Day (observed)
	"2027-09-06": true,
	"2027-11-25": true,
	"2027-12-24": true, // Christmas (observed)
}

// IsUSHoliday reports whether t's calendar date is a listed market holiday.
func IsUSHoliday(t time.Time) bool {
	return usHolidays[t.Format("2006-01-02")]
}

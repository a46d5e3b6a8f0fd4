package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// CalendarFX selects the round-the-clock FX session (closed Friday 21:00 UTC to Sunday 21:00 UTC).
const CalendarFX = "fx"

// fxRollHour is the UTC hour at which the FX week closes on Friday and reopens on Sunday.
const fxRollHour = 21

// maxOpenSearch bounds the minute scan in NextOpen for exchange calendars.
const maxOpenSearch = 14 * 24 * time.Hour

// TradingCalendar answers market-hours questions, either for the FX week or
// for an exchange calendar from scmhub/calendar.
type TradingCalendar struct {
	Name     string
	Calendar *calendar.Calendar
	FX       bool
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar returns the calendar for "fx" or an ISO 10383 MIC such as "xnys".
func GetCalendar(name string) *TradingCalendar {
	mic := strings.ToLower(strings.TrimSpace(name))
	if mic == "" || mic == CalendarFX {
		return &TradingCalendar{Name: CalendarFX, FX: true, Timezone: time.UTC}
	}

	// scmhub/calendar.GetCalendar returns a calendar by MIC
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC // Worst case
		}
		return &TradingCalendar{Name: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Name: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	// Normalize to timezone if available
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.FX || tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	// Library handles IsHoliday / IsBusinessDay
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.FX {
		return !isFXWeekend(t)
	}

	// Normalize to timezone if available
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// NextOpen returns t if the market is open, otherwise the first instant it reopens.
// The zero time is returned when no opening is found within two weeks.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	if tc.IsOpenOnMinute(t) {
		return t
	}

	if tc.FX {
		return nextFXOpen(t)
	}

	cursor := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(maxOpenSearch)
	for cursor.Before(limit) {
		if tc.IsOpenOnMinute(cursor) {
			return cursor
		}
		cursor = cursor.Add(time.Minute)
	}
	return time.Time{}
}

// -----------------------------------------------------------------------------

func isFXWeekend(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Friday:
		return t.Hour() >= fxRollHour
	case time.Saturday:
		return true
	case time.Sunday:
		return t.Hour() < fxRollHour
	default:
		return false
	}
}

// nextFXOpen returns the Sunday 21:00 UTC following a weekend instant t.
func nextFXOpen(t time.Time) time.Time {
	t = t.UTC()
	daysUntilSunday := (int(time.Sunday) - int(t.Weekday()) + 7) % 7
	sunday := time.Date(t.Year(), t.Month(), t.Day()+daysUntilSunday, fxRollHour, 0, 0, 0, time.UTC)
	return sunday
}

package utils

import (
	"sync"
	"time"

	"candle-stream/src/logger"
)

// MarketScheduler tracks the trading calendar that gates quote fetching.
type MarketScheduler struct {
	Calendar *TradingCalendar
	Logger   *logger.Logger
	Now      func() time.Time
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(calendarName string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Logger: l,
		Now:    time.Now,
	}
	ms.SetCalendar(calendarName)
	return ms
}

// -----------------------------------------------------------------------------

// SetCalendar swaps the calendar, e.g. after a config reload.
func (ms *MarketScheduler) SetCalendar(calendarName string) {
	cal := GetCalendar(calendarName)

	ms.mu.Lock()
	ms.Calendar = cal
	ms.mu.Unlock()

	if ms.Logger != nil {
		ms.Logger.Info("MarketScheduler: using calendar '%s'", cal.Name)
	}
}

// -----------------------------------------------------------------------------

// IsOpen checks whether the market is open right now
func (ms *MarketScheduler) IsOpen() bool {
	open, _ := ms.Status()
	return open
}

// -----------------------------------------------------------------------------

// Status reports whether the market is open and, if not, when it reopens.
func (ms *MarketScheduler) Status() (bool, time.Time) {
	now := ms.Now().UTC()

	ms.mu.RLock()
	cal := ms.Calendar
	ms.mu.RUnlock()

	if cal.IsOpenOnMinute(now) {
		return true, time.Time{}
	}
	return false, cal.NextOpen(now)
}

package utils

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/scmhub/calendar"
)

// TradingCalendar decides whether the market is open from fixed weekday and
// hour rules. Exchange holidays are ignored unless a holiday calendar is
// attached with WithHolidays.
type TradingCalendar struct {
	Timezone    *time.Location
	OpenMinute  int // minutes after midnight, inclusive
	CloseMinute int // minutes after midnight, exclusive

	holidays *calendar.Calendar
}

// -----------------------------------------------------------------------------

func NewTradingCalendar(timezone string, openMinute, closeMinute int) (*TradingCalendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown market timezone %q: %w", timezone, err)
	}
	if closeMinute <= openMinute {
		return nil, fmt.Errorf("close minute %d must be after open minute %d", closeMinute, openMinute)
	}
	return &TradingCalendar{
		Timezone:    loc,
		OpenMinute:  openMinute,
		CloseMinute: closeMinute,
	}, nil
}

// -----------------------------------------------------------------------------

// WithHolidays attaches the scmhub/calendar exchange calendar for the given
// MIC (e.g. "xnys") so exchange holidays count as closed days.
func (tc *TradingCalendar) WithHolidays(mic string) error {
	cal := calendar.GetCalendar(strings.ToLower(mic))
	if cal == nil {
		return fmt.Errorf("no exchange calendar for MIC %q", mic)
	}
	tc.holidays = cal
	return nil
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.Timezone)

	weekday := date.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}
	if tc.holidays != nil {
		return tc.holidays.IsBusinessDay(date)
	}
	return true
}

// -----------------------------------------------------------------------------

// IsMarketOpen checks if the market is open at the given instant.
func (tc *TradingCalendar) IsMarketOpen(now time.Time) bool {
	now = now.In(tc.Timezone)
	if !tc.IsTradingDay(now) {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	return minute >= tc.OpenMinute && minute < tc.CloseMinute
}

// -----------------------------------------------------------------------------

// Hours renders the trading window, e.g. "9:30 - 16:00".
func (tc *TradingCalendar) Hours() string {
	return fmt.Sprintf("%d:%02d - %d:%02d",
		tc.OpenMinute/60, tc.OpenMinute%60, tc.CloseMinute/60, tc.CloseMinute%60)
}

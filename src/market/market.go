// Package market reports which asset classes are open and the current New York trading session.
package market

import (
	"time"

	"demotrader/src/model"
)

type Session string

const (
	SessionWeekendHoliday Session = "weekend_holiday"
	SessionDeadZone       Session = "dead_zone"
	SessionAsia           Session = "asia_session"
	SessionLondon         Session = "london_session"
	SessionUS             Session = "us_session"
)

const (
	daysPerWeek    = 7
	thirdWeek      = 2
	fourthWeek     = 3
	fxCloseHour    = 17
	equityOpenMin  = 9*60 + 30
	equityCloseMin = 16 * 60
)

type Status struct {
	Markets    map[model.InstrumentType]bool `json:"status"`
	Session    Session                       `json:"session"`
	ServerTime string                        `json:"server_time"`
	Timezone   string                        `json:"timezone"`
}

// Clock evaluates market hours on the New York clock and renders server time in loc.
type Clock struct {
	ny  *time.Location
	loc *time.Location
}

// NewClock falls back to UTC when the tz database lacks a zone.
func NewClock(displayTimezone string) *Clock {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		ny = time.UTC
	}
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &Clock{ny: ny, loc: loc}
}

func (c *Clock) Status(now time.Time) Status {
	et := now.In(c.ny)

	fx := !fxWeekendClosed(et)
	equities := equitiesOpen(et)

	return Status{
		Markets: map[model.InstrumentType]bool{
			model.InstrumentTypeForex:       fx,
			model.InstrumentTypeCrypto:      true,
			model.InstrumentTypeStocks:      equities,
			model.InstrumentTypeIndices:     equities,
			model.InstrumentTypeCommodities: fx,
		},
		Session:    DetectSession(et),
		ServerTime: now.In(c.loc).Format("2006-01-02 15:04:05"),
		Timezone:   c.loc.String(),
	}
}

// fxWeekendClosed is true from Friday 17:00 to Sunday 17:00 New York time.
func fxWeekendClosed(et time.Time) bool {
	switch et.Weekday() {
	case time.Friday:
		return et.Hour() >= fxCloseHour
	case time.Saturday:
		return true
	case time.Sunday:
		return et.Hour() < fxCloseHour
	default:
		return false
	}
}

func equitiesOpen(et time.Time) bool {
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday || IsHoliday(et) {
		return false
	}
	minute := et.Hour()*60 + et.Minute()
	return minute >= equityOpenMin && minute < equityCloseMin
}

// DetectSession labels a New York wall-clock time.
func DetectSession(et time.Time) Session {
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday || IsHoliday(et) {
		return SessionWeekendHoliday
	}

	h := et.Hour()
	switch {
	case h >= 17 && h < 20:
		return SessionDeadZone
	case h >= 20 || h < 3:
		return SessionAsia
	case h < 9:
		return SessionLondon
	default:
		return SessionUS
	}
}

// IsHoliday reports US market holidays on the date of t.
func IsHoliday(t time.Time) bool {
	day := t.Format("2006-01-02")
	for _, h := range holidays(t.Year()) {
		if h.Format("2006-01-02") == day {
			return true
		}
	}
	return false
}

func holidays(year int) []time.Time {
	memorial := time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	for memorial.Weekday() != time.Monday {
		memorial = memorial.AddDate(0, 0, -1)
	}

	return []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.January, time.Monday, thirdWeek),
		nthWeekday(year, time.February, time.Monday, thirdWeek),
		memorial,
		observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)),
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.September, time.Monday, 0),
		nthWeekday(year, time.November, time.Thursday, fourthWeek),
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)),
	}
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

// nthWeekday returns the weekday of the month after skipping n whole weeks.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday-first.Weekday()+daysPerWeek) % daysPerWeek
	return first.AddDate(0, 0, offset+n*daysPerWeek)
}

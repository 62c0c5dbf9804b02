package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TradingSession is one [Start, End) interval in "HH:MM" or "H:MM" (UTC). End may be "24:00".
type TradingSession struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// TradingHours maps a lowercase weekday name ("monday") to its sessions.
// An empty calendar means the instrument trades around the clock.
type TradingHours map[string][]TradingSession

// IsOpen checks t against the calendar. A weekday missing from a non-empty calendar is closed.
func (h TradingHours) IsOpen(t time.Time) bool {
	if len(h) == 0 {
		return true
	}

	t = t.UTC()
	sessions, ok := h[strings.ToLower(t.Weekday().String())]
	if !ok {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	for _, s := range sessions {
		start, okStart := clockMinutes(s.Start)
		end, okEnd := clockMinutes(s.End)
		if okStart && okEnd && start <= minute && minute < end {
			return true
		}
	}

	return false
}

// clockMinutes parses "H:MM" or "HH:MM" into minutes since midnight, up to "24:00".
func clockMinutes(v string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}

func (h TradingHours) Value() (driver.Value, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *TradingHours) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("TradingHours: unsupported scan type %T", value)
	}

	if len(raw) == 0 {
		*h = nil
		return nil
	}

	var out TradingHours
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("TradingHours: invalid json: %w", err)
	}
	*h = out
	return nil
}

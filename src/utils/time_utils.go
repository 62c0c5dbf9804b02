package utils

import (
	"time"

	logger "github.com/sirupsen/logrus"
)

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
// Pass "day" to reset to midnight in the location of t.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		logger.WithField("granularity", granularity).Warn("Invalid granularity. Please use 'minute', 'hour' or 'day'.")
		return t
	}
}

// StartOfDay returns midnight of t's calendar day as seen in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return ResetTime(t.In(loc), "day")
}

// AlignToInterval floors t to a wall-clock boundary of the given width, in UTC.
// 12:07 with 5m => 12:05.
func AlignToInterval(t time.Time, interval time.Duration) time.Time {
	step := int64(interval.Seconds())
	if step <= 0 {
		return t.UTC()
	}
	secs := t.Unix()
	return time.Unix((secs/step)*step, 0).UTC()
}

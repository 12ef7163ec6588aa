package model

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" in 24-hour notation.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Kitchen formats the time as "9:00AM".
func (c ClockTime) Kitchen() string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("3:04PM")
}

// DayHours is the opening window for a single weekday. A nil *DayHours in a
// Schedule means the day is closed.
type DayHours struct {
	Open  ClockTime
	Close ClockTime
}

// Schedule maps each weekday to its opening window.
type Schedule map[time.Weekday]*DayHours

// Weekdays lists the days of the week Monday first, the order used when
// presenting a schedule.
var Weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// DefaultSchedule returns Monday through Friday, 09:00 to 17:00.
func DefaultSchedule() Schedule {
	nineToFive := func() *DayHours {
		return &DayHours{Open: ClockTime{Hour: 9}, Close: ClockTime{Hour: 17}}
	}
	return Schedule{
		time.Monday:    nineToFive(),
		time.Tuesday:   nineToFive(),
		time.Wednesday: nineToFive(),
		time.Thursday:  nineToFive(),
		time.Friday:    nineToFive(),
		time.Saturday:  nil,
		time.Sunday:    nil,
	}
}

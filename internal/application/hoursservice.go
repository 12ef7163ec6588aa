package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// DayPart is one row of the presented weekly schedule.
type DayPart struct {
	Day   string
	Hours string
}

// HoursService decides whether the website accepts submissions right now.
type HoursService struct {
	enabled  bool
	schedule model.Schedule
	loc      *time.Location
	now      func() time.Time
}

// NewHoursService creates an HoursService. A disabled service is always open.
// A nil loc means UTC.
func NewHoursService(enabled bool, schedule model.Schedule, loc *time.Location) *HoursService {
	if loc == nil {
		loc = time.UTC
	}
	if schedule == nil {
		schedule = model.DefaultSchedule()
	}
	return &HoursService{
		enabled:  enabled,
		schedule: schedule,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *HoursService) WithClock(now func() time.Time) *HoursService {
	cp := *s
	cp.now = now
	return &cp
}

// Enabled reports whether operating hours are enforced.
func (s *HoursService) Enabled() bool { return s.enabled }

// OpenNow reports whether the current instant, in the configured zone, falls
// inside today's window. Both ends are inclusive.
func (s *HoursService) OpenNow() bool {
	if !s.enabled {
		return true
	}
	return s.OpenAt(s.now())
}

// OpenAt reports whether t falls inside the schedule, ignoring Enabled.
func (s *HoursService) OpenAt(t time.Time) bool {
	t = t.In(s.loc)
	hours := s.schedule[t.Weekday()]
	if hours == nil {
		return false
	}

	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	open := time.Duration(hours.Open.Minutes()) * time.Minute
	closing := time.Duration(hours.Close.Minutes()) * time.Minute
	return open <= sinceMidnight && sinceMidnight <= closing
}

// DailyParts returns the schedule Monday first, with "Closed" for days
// without a window.
func (s *HoursService) DailyParts() []DayPart {
	parts := make([]DayPart, 0, len(model.Weekdays))
	for _, day := range model.Weekdays {
		hours := s.schedule[day]
		if hours == nil {
			parts = append(parts, DayPart{Day: day.String(), Hours: "Closed"})
			continue
		}
		parts = append(parts, DayPart{
			Day:   day.String(),
			Hours: hours.Open.Kitchen() + "-" + hours.Close.Kitchen(),
		})
	}
	return parts
}

// Summary renders the schedule on one line:
// "Monday 9:00AM-5:00PM, ..., Sunday Closed".
func (s *HoursService) Summary() string {
	parts := s.DailyParts()
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Day+" "+p.Hours)
	}
	return strings.Join(out, ", ")
}

// ClosedDetail is the message returned to clients outside operating hours.
func (s *HoursService) ClosedDetail() string {
	return fmt.Sprintf("This website is currently closed. Our operating hours are: %s.", s.Summary())
}

// Package calendar turns calendar sources into the per-day events consumed
// by the availability resolver.
package calendar

import (
	"time"

	"findmeeting/internal/model"
)

// StartOfDay returns midnight of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseDay parses "YYYY-MM-DD" as midnight in loc. An empty string means
// today.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return StartOfDay(time.Now(), loc), nil
	}
	return time.ParseInLocation(time.DateOnly, s, loc)
}

// DayEvents clips occurrences to the calendar day starting at day (in loc)
// and converts them to minute ranges. Partial minutes are widened: starts
// are floored and ends are ceiled. Occurrences that miss the day or have no
// attendees are dropped; all-day occurrences block the whole day.
func DayEvents(occurrences []model.Occurrence, day time.Time, loc *time.Location) []model.Event {
	dayStart := StartOfDay(day, loc)
	// AddDate keeps DST days at their real length.
	dayEnd := dayStart.AddDate(0, 0, 1)

	events := make([]model.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		if len(occ.Attendees) == 0 {
			continue
		}

		var when model.TimeRange
		if occ.AllDay {
			if !occursOnDate(occ, dayStart, loc) {
				continue
			}
			when = model.WholeDay
		} else {
			if !occ.Start.Before(dayEnd) || !dayStart.Before(occ.End) {
				continue
			}
			when = model.TimeRange{
				Start: minuteOfDay(maxTime(occ.Start, dayStart), dayStart, false),
				End:   minuteOfDay(minTime(occ.End, dayEnd), dayStart, true),
			}
		}

		events = append(events, model.Event{
			ID:        occ.UID + "#" + occ.InstanceKey,
			Title:     occ.Summary,
			When:      when,
			Attendees: model.NewAttendees(occ.Attendees...),
		})
	}
	return events
}

// occursOnDate reports whether an all-day occurrence covers the date of
// dayStart. All-day bounds are compared by calendar date so that a floating
// DATE value is not shifted by the display timezone.
func occursOnDate(occ model.Occurrence, dayStart time.Time, loc *time.Location) bool {
	first := dateOf(occ.Start)
	last := dateOf(occ.End)
	if last.After(first) {
		last = last.AddDate(0, 0, -1)
	}
	d := dateOf(dayStart.In(loc))
	return !d.Before(first) && !d.After(last)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// minuteOfDay converts t into minutes since dayStart, clamped to the day.
func minuteOfDay(t, dayStart time.Time, ceil bool) int {
	d := t.Sub(dayStart)
	m := int(d / time.Minute)
	if ceil && d%time.Minute != 0 {
		m++
	}
	return min(max(m, 0), model.MinutesPerDay)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

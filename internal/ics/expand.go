package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "findmeeting/internal/log"
	"findmeeting/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the half-open window [RangeStart, RangeEnd).
	// Occurrences overlapping the window are returned unclipped.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion per event. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []model.Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands parsed events into concrete occurrences
// overlapping the configured window. It handles single events, RRULE
// recurrence, EXDATE exclusions, RECURRENCE-ID overrides and all-day events.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	var uids []string

	seen := make(map[string]bool)
	for _, ev := range events {
		if !seen[ev.UID] {
			seen[ev.UID] = true
			uids = append(uids, ev.UID)
		}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	result.Occurrences = make([]model.Occurrence, 0)

	// Iterate in input order so results are deterministic.
	for _, uid := range uids {
		overrides := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			var occ []model.Occurrence
			hitCap := false
			if ev.RawRRule == "" {
				occ = expandSingle(ev, overrides, cfg)
			} else {
				occ, hitCap = expandRecurring(ev, overrides, cfg)
			}
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		result.Occurrences = append(result.Occurrences, expandOverrides(overrides, cfg)...)

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

// expandSingle emits a non-recurring event unless an override replaces it.
func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	if _, ok := findOverride(overrides, ev.Start); ok {
		return nil
	}
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(ev, ev.Start, ev.End, cfg.DisplayLocation)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	span := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	// An instance starting up to span before the window still overlaps it.
	from := cfg.RangeStart.Add(-span).In(loc)
	to := cfg.RangeEnd.In(loc)

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.AddDate(0, 0, 1)
		} else {
			e = s.Add(span)
		}

		// Overridden instances are emitted by expandOverrides at their new time.
		if _, ok := findOverride(overrides, s); ok {
			continue
		}
		if !overlaps(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(ev, s, e, cfg.DisplayLocation))
	}

	return out, hitCap
}

// expandOverrides emits the overrides of one UID whose own [Start, End)
// overlaps the window, wherever their RECURRENCE-ID falls. Of several
// overrides for the same instance, the highest SEQUENCE wins, then the last.
func expandOverrides(overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	latest := make(map[int64]ParsedEvent, len(overrides))
	var order []int64
	for _, ov := range overrides {
		key := ov.Recurrence.UnixNano()
		prev, ok := latest[key]
		if !ok {
			order = append(order, key)
		} else if ov.Seq < prev.Seq {
			continue
		}
		latest[key] = ov
	}

	out := make([]model.Occurrence, 0, len(order))
	for _, key := range order {
		ov := latest[key]
		if !overlaps(ov.Start, ov.End, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(ov, ov.Start, ov.End, cfg.DisplayLocation))
	}
	return out
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	var startLocal, endLocal time.Time
	if ev.AllDay {
		// Dates are not instants: keep the calendar date, move to displayLoc.
		startLocal = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		endLocal = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, displayLoc)
	} else {
		startLocal = start.In(displayLoc)
		endLocal = end.In(displayLoc)
	}
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: startLocal.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		AllDay:      ev.AllDay,
		Start:       startLocal,
		End:         endLocal,
		Attendees:   append([]string(nil), ev.Attendees...),
	}
}

// overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

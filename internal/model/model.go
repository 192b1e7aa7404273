package model

import (
	"errors"
	"fmt"
	"sort"
)

// MinutesPerDay is the length of the scheduling day. An End equal to
// MinutesPerDay means "until midnight".
const MinutesPerDay = 24 * 60

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrNegativeDuration = errors.New("negative meeting duration")
	ErrInvalidClock     = errors.New("invalid clock value")
)

// TimeRange is a half-open interval [Start, End) measured in minutes from
// midnight. Values built through NewTimeRange satisfy
// 0 <= Start <= End <= MinutesPerDay.
type TimeRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// WholeDay spans the entire day.
var WholeDay = TimeRange{Start: 0, End: MinutesPerDay}

// NewTimeRange validates the bounds and returns the range.
func NewTimeRange(start, end int) (TimeRange, error) {
	if start < 0 || end > MinutesPerDay || start > end {
		return TimeRange{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidTimeRange, start, end)
	}
	return TimeRange{Start: start, End: end}, nil
}

// FromStartDuration builds [start, start+duration).
func FromStartDuration(start, duration int) (TimeRange, error) {
	return NewTimeRange(start, start+duration)
}

func (r TimeRange) Duration() int {
	return r.End - r.Start
}

// Contains reports whether minute lies inside [Start, End).
func (r TimeRange) Contains(minute int) bool {
	return minute >= r.Start && minute < r.End
}

// Overlaps reports whether the two ranges share at least one minute.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Less orders ranges by start, then by end.
func (r TimeRange) Less(other TimeRange) bool {
	if r.Start != other.Start {
		return r.Start < other.Start
	}
	return r.End < other.End
}

func (r TimeRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

// SortRanges sorts in place by start, then end.
func SortRanges(ranges []TimeRange) {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Less(ranges[j]) })
}

// Attendees is a set of attendee identifiers. Identifiers are compared by
// exact string equality.
type Attendees map[string]struct{}

func NewAttendees(ids ...string) Attendees {
	set := make(Attendees, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (a Attendees) Len() int {
	return len(a)
}

func (a Attendees) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// Disjoint reports whether a and other share no identifier.
func (a Attendees) Disjoint(other Attendees) bool {
	small, large := a, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return false
		}
	}
	return true
}

// Union returns a new set holding the members of both sets.
func (a Attendees) Union(other Attendees) Attendees {
	out := make(Attendees, len(a)+len(other))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the identifiers in ascending order.
func (a Attendees) Sorted() []string {
	out := make([]string, 0, len(a))
	for id := range a {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Event is a booked occurrence on the queried day.
type Event struct {
	ID        string
	Title     string
	When      TimeRange
	Attendees Attendees
}

// MeetingRequest describes the meeting to be placed.
type MeetingRequest struct {
	Required Attendees
	Optional Attendees
	// Duration is the meeting length in minutes. It may exceed a day, in
	// which case no window can satisfy it.
	Duration int
}

// NewMeetingRequest validates the duration and builds the attendee sets.
func NewMeetingRequest(required, optional []string, duration int) (MeetingRequest, error) {
	if duration < 0 {
		return MeetingRequest{}, fmt.Errorf("%w: %d", ErrNegativeDuration, duration)
	}
	return MeetingRequest{
		Required: NewAttendees(required...),
		Optional: NewAttendees(optional...),
		Duration: duration,
	}, nil
}

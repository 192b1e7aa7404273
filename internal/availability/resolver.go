// Package availability finds the windows of a single day in which a meeting
// can take place given the attendees' booked events.
package availability

import (
	"findmeeting/internal/model"
)

// Pass identifies which attendee set produced a result.
type Pass int

const (
	// PassWithOptional means every optional attendee could be accommodated.
	PassWithOptional Pass = iota
	// PassRequiredOnly means optional attendees' conflicts were ignored.
	PassRequiredOnly
)

func (p Pass) String() string {
	switch p {
	case PassWithOptional:
		return "with_optional"
	case PassRequiredOnly:
		return "required_only"
	default:
		return "unknown"
	}
}

// Result is the outcome of a query together with the attendee sets that
// were actually applied.
type Result struct {
	Ranges []model.TimeRange
	Pass   Pass

	// Required is the effective required set (optional attendees promoted
	// when the request had no required attendees).
	Required model.Attendees
	// Optional is the effective optional set; empty after promotion.
	Optional model.Attendees
}

// Resolver holds no state; the zero value is ready to use and may be shared
// between goroutines.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Query returns every maximal free window of at least req.Duration minutes,
// ordered by start time.
func (r *Resolver) Query(events []model.Event, req model.MeetingRequest) []model.TimeRange {
	return r.Explain(events, req).Ranges
}

// Explain runs the same computation as Query and reports which pass produced
// the ranges.
//
// Optional attendees are all-or-nothing: if any window fits everyone, only
// those windows are returned; otherwise optional attendees are dropped.
func (r *Resolver) Explain(events []model.Event, req model.MeetingRequest) Result {
	required, optional := req.Required, req.Optional
	if required.Len() == 0 {
		required, optional = optional, model.NewAttendees()
	}
	if required == nil {
		required = model.NewAttendees()
	}
	if optional == nil {
		optional = model.NewAttendees()
	}

	res := Result{Required: required, Optional: optional}

	if optional.Len() > 0 {
		ranges := freeRanges(events, required.Union(optional), req.Duration)
		if len(ranges) > 0 {
			res.Ranges = ranges
			res.Pass = PassWithOptional
			return res
		}
	}

	res.Ranges = freeRanges(events, required, req.Duration)
	res.Pass = PassRequiredOnly
	return res
}

// freeRanges marks the minutes blocked by events involving any member of
// blocking and extracts the free runs that fit duration.
func freeRanges(events []model.Event, blocking model.Attendees, duration int) []model.TimeRange {
	var day occupancy
	for _, ev := range events {
		if ev.Attendees.Disjoint(blocking) {
			continue
		}
		day.mark(ev.When)
	}
	return day.freeRuns(duration)
}

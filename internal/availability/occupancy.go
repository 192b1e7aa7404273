package availability

import "findmeeting/internal/model"

// occupancy has one slot per minute of the day plus a trailing sentinel
// slot, which is never occupied and closes a run ending at midnight.
type occupancy [model.MinutesPerDay + 1]bool

// mark flags [r.Start, r.End) as occupied. Bounds are clamped to the day.
func (o *occupancy) mark(r model.TimeRange) {
	start, end := max(r.Start, 0), min(r.End, model.MinutesPerDay)
	for i := start; i < end; i++ {
		o[i] = true
	}
}

// freeRuns scans left to right and returns each maximal free run whose
// length is at least duration. Shorter runs are dropped.
func (o *occupancy) freeRuns(duration int) []model.TimeRange {
	ranges := make([]model.TimeRange, 0)
	last := len(o) - 1

	prevFree := false
	start := 0
	for i, occupied := range o {
		free := !occupied
		if free && !prevFree {
			start = i
		}
		if prevFree && (!free || i == last) {
			if i-start >= duration {
				ranges = append(ranges, model.TimeRange{Start: start, End: i})
			}
		}
		prevFree = free
	}
	return ranges
}

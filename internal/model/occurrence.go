package model

import "time"

// Occurrence is a single concrete instance of a calendar event after
// recurrence expansion, expressed in the display timezone.
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey identifies one instance of a recurring event.
	InstanceKey string

	Summary string
	AllDay  bool

	Start time.Time
	End   time.Time

	Attendees []string
}

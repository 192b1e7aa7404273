package calendar

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"findmeeting/internal/model"
)

// fileEvent is one entry of an events file:
//
//	events:
//	  - title: Design review
//	    start: "09:30"
//	    end: "10:15"
//	    attendees: [alice, bob]
type fileEvent struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Start     string   `yaml:"start"`
	End       string   `yaml:"end"`
	Attendees []string `yaml:"attendees"`
}

type eventsFile struct {
	Events []fileEvent `yaml:"events"`
}

// LoadEventsFile reads fixed single-day events from a YAML file. Entries
// without an id get a random one.
func LoadEventsFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseEvents(data)
}

// ParseEvents decodes the events file format.
func ParseEvents(data []byte) ([]model.Event, error) {
	var f eventsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]model.Event, 0, len(f.Events))
	for i, fe := range f.Events {
		start, err := model.ParseClock(fe.Start)
		if err != nil {
			return nil, fmt.Errorf("event %d start: %w", i, err)
		}
		end, err := model.ParseClock(fe.End)
		if err != nil {
			return nil, fmt.Errorf("event %d end: %w", i, err)
		}
		when, err := model.NewTimeRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		id := fe.ID
		if id == "" {
			id = uuid.NewString()
		}
		events = append(events, model.Event{
			ID:        id,
			Title:     fe.Title,
			When:      when,
			Attendees: model.NewAttendees(fe.Attendees...),
		})
	}
	return events, nil
}

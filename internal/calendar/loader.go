package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"findmeeting/internal/config"
	"findmeeting/internal/ics"
	appLog "findmeeting/internal/log"
	"findmeeting/internal/model"
)

const maxOccurrencesPerEvent = 5000

// Snapshot is the parsed content of every configured source at one point in
// time. It is never mutated after construction.
type Snapshot struct {
	Parsed     []ics.ParsedEvent
	FileEvents []model.Event
	LoadedAt   time.Time
}

// Loader reads the configured calendar sources.
type Loader struct {
	fetcher    *ics.Fetcher
	sources    []ics.Source
	eventsFile string
	loc        *time.Location
}

// NewLoader builds a Loader from cfg. The timezone must be a valid IANA
// name.
func NewLoader(cfg *config.Config) (*Loader, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	sources := make([]ics.Source, 0, len(cfg.Calendars))
	for _, c := range cfg.Calendars {
		if c.URL == "" && c.Path == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL, Path: c.Path})
	}

	return &Loader{
		fetcher:    ics.NewFetcher(cfg.CacheDir),
		sources:    sources,
		eventsFile: cfg.EventsFile,
		loc:        loc,
	}, nil
}

// Location is the timezone in which days are cut.
func (l *Loader) Location() *time.Location {
	return l.loc
}

// Load fetches and parses every source. Failing sources are skipped and
// reported in the joined error; the snapshot holds whatever loaded.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Parsed:   make([]ics.ParsedEvent, 0),
		LoadedAt: time.Now(),
	}

	results, errs := l.fetcher.FetchAll(ctx, l.sources)
	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", res.Source.ID, err))
			continue
		}
		snap.Parsed = append(snap.Parsed, parsed...)
	}

	if l.eventsFile != "" {
		fileEvents, err := LoadEventsFile(l.eventsFile)
		if err != nil {
			errs = append(errs, fmt.Errorf("events file %s: %w", l.eventsFile, err))
		} else {
			snap.FileEvents = fileEvents
		}
	}

	appLog.Info("calendar sources loaded",
		"sources", len(l.sources),
		"parsed_events", len(snap.Parsed),
		"file_events", len(snap.FileEvents),
		"errors", len(errs),
	)
	return snap, errors.Join(errs...)
}

// Events returns the events of the given day from the snapshot.
func (s *Snapshot) Events(day time.Time, loc *time.Location) ([]model.Event, error) {
	dayStart := StartOfDay(day, loc)
	res, err := ics.ExpandOccurrences(s.Parsed, ics.ExpandConfig{
		DisplayLocation:        loc,
		RangeStart:             dayStart,
		RangeEnd:               dayStart.AddDate(0, 0, 1),
		MaxOccurrencesPerEvent: maxOccurrencesPerEvent,
	})
	if err != nil {
		return nil, err
	}

	events := DayEvents(res.Occurrences, dayStart, loc)
	events = append(events, s.FileEvents...)
	return events, nil
}

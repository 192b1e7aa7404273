package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "findmeeting/internal/log"
	"findmeeting/internal/model"
)

// loader is the part of Loader the Refresher needs.
type loader interface {
	Load(ctx context.Context) (*Snapshot, error)
	Location() *time.Location
}

// Refresher keeps the latest Snapshot in memory and reloads it on a cron
// schedule. Reads never block on a reload.
type Refresher struct {
	loader loader

	mu   sync.RWMutex
	snap *Snapshot

	// refreshMu serializes reloads triggered by cron and by callers.
	refreshMu sync.Mutex

	cron *cron.Cron
}

// NewRefresher returns a Refresher with an empty snapshot. Call Refresh or
// Start to populate it.
func NewRefresher(l loader) *Refresher {
	return &Refresher{
		loader: l,
		snap:   &Snapshot{},
	}
}

// Location is the timezone in which days are cut.
func (r *Refresher) Location() *time.Location {
	return r.loader.Location()
}

// Refresh reloads all sources and swaps in the new snapshot. Partial
// failures still replace the snapshot; the error reports what was missing.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	snap, err := r.loader.Load(ctx)
	if snap == nil {
		return err
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return err
}

// Snapshot returns the current snapshot.
func (r *Refresher) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// LoadedAt reports when the current snapshot was loaded. It is zero before
// the first refresh.
func (r *Refresher) LoadedAt() time.Time {
	return r.Snapshot().LoadedAt
}

// Events returns the events of day from the current snapshot.
func (r *Refresher) Events(day time.Time) ([]model.Event, error) {
	return r.Snapshot().Events(day, r.Location())
}

// Start performs an initial refresh and schedules further ones using a
// standard five-field cron spec. The schedule stops when ctx is done.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if r.cron != nil {
		return errors.New("refresher already started")
	}

	c := cron.New(cron.WithLocation(r.Location()))
	if _, err := c.AddFunc(spec, func() {
		if err := r.Refresh(ctx); err != nil {
			appLog.Error("scheduled calendar refresh incomplete", err, "schedule", spec)
		}
	}); err != nil {
		return err
	}
	r.cron = c

	if err := r.Refresh(ctx); err != nil {
		appLog.Error("initial calendar refresh incomplete", err)
	}

	c.Start()
	appLog.Info("calendar refresh scheduled", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Debug("calendar refresh stopped")
	}()
	return nil
}

package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"findmeeting/internal/availability"
	"findmeeting/internal/calendar"
	"findmeeting/internal/config"
	appLog "findmeeting/internal/log"
	"findmeeting/internal/model"
)

const eventsCacheTTL = 30 * time.Second

// EventSource supplies the booked events of a day.
type EventSource interface {
	Events(day time.Time) ([]model.Event, error)
	Refresh(ctx context.Context) error
	Location() *time.Location
	// LoadedAt identifies the data Events serves; it changes on every
	// reload, including scheduled ones.
	LoadedAt() time.Time
}

// Server exposes the availability resolver over HTTP.
type Server struct {
	cfg      *config.Config
	source   EventSource
	resolver *availability.Resolver
	mux      *http.ServeMux

	// Per-day event lists, so that repeated queries for the same day skip
	// recurrence expansion. An entry is only served while the source still
	// reports the LoadedAt it was built from.
	eventsMu    sync.RWMutex
	eventsCache map[string]eventsCacheEntry
}

type eventsCacheEntry struct {
	events    []model.Event
	loadedAt  time.Time
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, source EventSource) *Server {
	s := &Server{
		cfg:         cfg,
		source:      source,
		resolver:    availability.NewResolver(),
		mux:         http.NewServeMux(),
		eventsCache: make(map[string]eventsCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="findmeeting", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/availability", s.handleAvailability)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// dayEvents returns the events of day, served from the TTL cache when fresh
// and built from the source's current data.
func (s *Server) dayEvents(day time.Time) ([]model.Event, error) {
	key := day.Format(time.DateOnly)
	// Read before Events: snapshots only move forward, so an entry is never
	// stamped newer than the data it holds.
	loadedAt := s.source.LoadedAt()

	s.eventsMu.RLock()
	entry, ok := s.eventsCache[key]
	s.eventsMu.RUnlock()
	if ok && entry.loadedAt.Equal(loadedAt) && time.Since(entry.updatedAt) < eventsCacheTTL {
		return entry.events, nil
	}

	events, err := s.source.Events(day)
	if err != nil {
		return nil, err
	}

	s.eventsMu.Lock()
	s.eventsCache[key] = eventsCacheEntry{events: events, loadedAt: loadedAt, updatedAt: time.Now()}
	s.eventsMu.Unlock()
	return events, nil
}

func (s *Server) clearEventsCache() {
	s.eventsMu.Lock()
	s.eventsCache = make(map[string]eventsCacheEntry)
	s.eventsMu.Unlock()
}

// eventDTO is the JSON view of a booked event.
type eventDTO struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Label     string   `json:"label"`
	Attendees []string `json:"attendees"`
}

type eventsResponse struct {
	Date     string     `json:"date"`
	Timezone string     `json:"timezone"`
	Events   []eventDTO `json:"events"`
}

// handleEvents lists the booked events of a day.
//
// GET /api/events?date=2025-06-10 (default: today)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	loc := s.source.Location()
	day, err := calendar.ParseDay(r.URL.Query().Get("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	events, err := s.dayEvents(day)
	if err != nil {
		appLog.Error("api events: load failed", err, "date", day.Format(time.DateOnly))
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			ID:        ev.ID,
			Title:     ev.Title,
			Start:     ev.When.Start,
			End:       ev.When.End,
			Label:     ev.When.String(),
			Attendees: ev.Attendees.Sorted(),
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Date:     day.Format(time.DateOnly),
		Timezone: loc.String(),
		Events:   dtos,
	})
}

type availabilityRequest struct {
	Date     string   `json:"date"`
	Required []string `json:"required"`
	Optional []string `json:"optional"`
	Duration *int     `json:"duration"`
}

// rangeDTO is the JSON view of a free window.
type rangeDTO struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

type availabilityResponse struct {
	RequestID string     `json:"request_id"`
	Date      string     `json:"date"`
	Timezone  string     `json:"timezone"`
	Pass      string     `json:"pass"`
	Required  []string   `json:"required"`
	Optional  []string   `json:"optional"`
	Ranges    []rangeDTO `json:"ranges"`
}

// handleAvailability answers a meeting request for one day.
//
// POST /api/availability {"date": "2025-06-10", "required": [...], "optional": [...], "duration": 30}
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var body availabilityRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.Duration == nil {
		writeError(w, http.StatusBadRequest, "duration is required")
		return
	}

	req, err := model.NewMeetingRequest(body.Required, body.Optional, *body.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc := s.source.Location()
	day, err := calendar.ParseDay(body.Date, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	events, err := s.dayEvents(day)
	if err != nil {
		appLog.Error("api availability: load failed", err, "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	res := s.resolver.Explain(events, req)

	ranges := make([]rangeDTO, 0, len(res.Ranges))
	for _, tr := range res.Ranges {
		ranges = append(ranges, rangeDTO{Start: tr.Start, End: tr.End, Label: tr.String()})
	}

	appLog.Info("api availability",
		"request_id", requestID,
		"date", day.Format(time.DateOnly),
		"events", len(events),
		"duration", req.Duration,
		"pass", res.Pass.String(),
		"ranges", len(ranges),
	)

	writeJSON(w, http.StatusOK, availabilityResponse{
		RequestID: requestID,
		Date:      day.Format(time.DateOnly),
		Timezone:  loc.String(),
		Pass:      res.Pass.String(),
		Required:  res.Required.Sorted(),
		Optional:  res.Optional.Sorted(),
		Ranges:    ranges,
	})
}

// handleRefresh reloads every calendar source now.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.source.Refresh(r.Context())
	s.clearEventsCache()
	if err != nil {
		appLog.Error("api refresh incomplete", err)
		writeJSON(w, http.StatusOK, map[string]any{"refreshed": true, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

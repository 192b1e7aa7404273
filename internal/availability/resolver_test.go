package availability

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findmeeting/internal/model"
)

const (
	personA = "Person A"
	personB = "Person B"
	personC = "Person C"
)

func at(h, m int) int { return h*60 + m }

func event(id string, start, end int, attendees ...string) model.Event {
	return model.Event{
		ID:        id,
		Title:     id,
		When:      model.TimeRange{Start: start, End: end},
		Attendees: model.NewAttendees(attendees...),
	}
}

func request(t *testing.T, required, optional []string, duration int) model.MeetingRequest {
	t.Helper()
	req, err := model.NewMeetingRequest(required, optional, duration)
	require.NoError(t, err)
	return req
}

func rng(start, end int) model.TimeRange {
	return model.TimeRange{Start: start, End: end}
}

func TestQuery(t *testing.T) {
	twoPeople := []model.Event{
		event("1", at(8, 0), at(8, 30), personA),
		event("2", at(9, 0), at(9, 30), personB),
	}

	tests := []struct {
		name     string
		events   []model.Event
		required []string
		optional []string
		duration int
		want     []model.TimeRange
		wantPass Pass
	}{
		{
			name:     "no events",
			required: []string{personA},
			duration: 30,
			want:     []model.TimeRange{model.WholeDay},
			wantPass: PassRequiredOnly,
		},
		{
			name:     "no attendees and no duration",
			duration: 0,
			want:     []model.TimeRange{model.WholeDay},
			wantPass: PassRequiredOnly,
		},
		{
			name:     "duration longer than a day",
			required: []string{personA},
			duration: model.MinutesPerDay + 1,
			want:     []model.TimeRange{},
			wantPass: PassRequiredOnly,
		},
		{
			name:     "single event splits the day",
			events:   []model.Event{event("1", 60, 120, personA)},
			required: []string{personA},
			duration: 30,
			want:     []model.TimeRange{rng(0, 60), rng(120, model.MinutesPerDay)},
			wantPass: PassRequiredOnly,
		},
		{
			name: "back to back events leave no gap",
			events: []model.Event{
				event("1", 0, 600, personA),
				event("2", 600, model.MinutesPerDay, personA),
			},
			required: []string{personA},
			duration: 1,
			want:     []model.TimeRange{},
			wantPass: PassRequiredOnly,
		},
		{
			name:     "every attendee is considered",
			events:   twoPeople,
			required: []string{personA, personB},
			duration: 30,
			want: []model.TimeRange{
				rng(0, at(8, 0)),
				rng(at(8, 30), at(9, 0)),
				rng(at(9, 30), model.MinutesPerDay),
			},
			wantPass: PassRequiredOnly,
		},
		{
			name: "overlapping events merge",
			events: []model.Event{
				event("1", at(8, 30), at(9, 30), personA),
				event("2", at(9, 0), at(10, 0), personB),
			},
			required: []string{personA, personB},
			duration: 30,
			want:     []model.TimeRange{rng(0, at(8, 30)), rng(at(10, 0), model.MinutesPerDay)},
			wantPass: PassRequiredOnly,
		},
		{
			name: "nested events",
			events: []model.Event{
				event("1", at(8, 30), at(11, 0), personA),
				event("2", at(9, 0), at(10, 0), personB),
			},
			required: []string{personA, personB},
			duration: 30,
			want:     []model.TimeRange{rng(0, at(8, 30)), rng(at(11, 0), model.MinutesPerDay)},
			wantPass: PassRequiredOnly,
		},
		{
			name: "people not attending are ignored",
			events: []model.Event{
				event("1", at(8, 0), at(8, 30), personA),
				event("2", at(9, 0), at(9, 30), personA),
			},
			required: []string{personB},
			duration: 30,
			want:     []model.TimeRange{model.WholeDay},
			wantPass: PassRequiredOnly,
		},
		{
			name: "just enough room",
			events: []model.Event{
				event("1", 0, at(8, 30), personA),
				event("2", at(9, 0), model.MinutesPerDay, personA),
			},
			required: []string{personA},
			duration: 30,
			want:     []model.TimeRange{rng(at(8, 30), at(9, 0))},
			wantPass: PassRequiredOnly,
		},
		{
			name: "not enough room",
			events: []model.Event{
				event("1", 0, at(8, 30), personA),
				event("2", at(9, 0), model.MinutesPerDay, personB),
			},
			required: []string{personA, personB},
			duration: 60,
			want:     []model.TimeRange{},
			wantPass: PassRequiredOnly,
		},
		{
			name: "optional attendee busy all day is dropped",
			events: append(twoPeople,
				event("3", 0, model.MinutesPerDay, personC)),
			required: []string{personA, personB},
			optional: []string{personC},
			duration: 30,
			want: []model.TimeRange{
				rng(0, at(8, 0)),
				rng(at(8, 30), at(9, 0)),
				rng(at(9, 30), model.MinutesPerDay),
			},
			wantPass: PassRequiredOnly,
		},
		{
			name: "optional attendee is accommodated",
			events: append(twoPeople,
				event("3", at(8, 30), at(9, 0), personC)),
			required: []string{personA, personB},
			optional: []string{personC},
			duration: 30,
			want: []model.TimeRange{
				rng(0, at(8, 0)),
				rng(at(9, 30), model.MinutesPerDay),
			},
			wantPass: PassWithOptional,
		},
		{
			name: "optional attendee shrinks the only window below duration",
			events: []model.Event{
				event("1", 0, at(8, 30), personA),
				event("2", at(9, 0), model.MinutesPerDay, personA),
				event("3", at(8, 30), at(8, 45), personB),
			},
			required: []string{personA},
			optional: []string{personB},
			duration: 30,
			want:     []model.TimeRange{rng(at(8, 30), at(9, 0))},
			wantPass: PassRequiredOnly,
		},
		{
			name: "optional attendees only with gaps",
			events: []model.Event{
				event("1", 0, at(8, 0), personA),
				event("2", at(9, 0), model.MinutesPerDay, personB),
			},
			optional: []string{personA, personB},
			duration: 30,
			want:     []model.TimeRange{rng(at(8, 0), at(9, 0))},
			wantPass: PassRequiredOnly,
		},
		{
			name: "optional attendees only without gaps",
			events: []model.Event{
				event("1", 0, at(9, 0), personA),
				event("2", at(9, 0), model.MinutesPerDay, personB),
			},
			optional: []string{personA, personB},
			duration: 30,
			want:     []model.TimeRange{},
			wantPass: PassRequiredOnly,
		},
		{
			name:     "event without attendees never blocks",
			events:   []model.Event{event("1", 0, at(12, 0))},
			duration: 60,
			want:     []model.TimeRange{model.WholeDay},
			wantPass: PassRequiredOnly,
		},
		{
			name: "zero duration returns every free run",
			events: []model.Event{
				event("1", 0, 1, personA),
				event("2", 2, model.MinutesPerDay-1, personA),
			},
			required: []string{personA},
			duration: 0,
			want:     []model.TimeRange{rng(1, 2), rng(model.MinutesPerDay-1, model.MinutesPerDay)},
			wantPass: PassRequiredOnly,
		},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(t, tt.required, tt.optional, tt.duration)
			res := r.Explain(tt.events, req)
			assert.Equal(t, tt.want, res.Ranges)
			assert.Equal(t, tt.wantPass, res.Pass)
			assert.Equal(t, tt.want, r.Query(tt.events, req))
		})
	}
}

func TestExplainPromotesOptional(t *testing.T) {
	req := request(t, nil, []string{personA}, 30)
	res := NewResolver().Explain(nil, req)
	assert.Equal(t, []string{personA}, res.Required.Sorted())
	assert.Equal(t, 0, res.Optional.Len())
}

func TestPassString(t *testing.T) {
	assert.Equal(t, "with_optional", PassWithOptional.String())
	assert.Equal(t, "required_only", PassRequiredOnly.String())
	assert.Equal(t, "unknown", Pass(7).String())
}

func randomEvents(r *rand.Rand, people []string, n int) []model.Event {
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		start := r.IntN(model.MinutesPerDay)
		end := start + r.IntN(model.MinutesPerDay-start+1)
		var attendees []string
		for _, p := range people {
			if r.IntN(3) == 0 {
				attendees = append(attendees, p)
			}
		}
		events = append(events, event(fmt.Sprint(i), start, end, attendees...))
	}
	return events
}

func pick(r *rand.Rand, people []string) []string {
	var out []string
	for _, p := range people {
		if r.IntN(2) == 0 {
			out = append(out, p)
		}
	}
	return out
}

func TestQueryProperties(t *testing.T) {
	people := []string{"a", "b", "c", "d", "e"}
	src := rand.New(rand.NewPCG(1, 2))
	resolver := NewResolver()

	for i := 0; i < 300; i++ {
		events := randomEvents(src, people, src.IntN(8))
		req := request(t, pick(src, people), pick(src, people), src.IntN(240))

		res := resolver.Explain(events, req)

		blocking := res.Required
		if res.Pass == PassWithOptional {
			blocking = res.Required.Union(res.Optional)
		}

		var busy occupancy
		for _, ev := range events {
			if !ev.Attendees.Disjoint(blocking) {
				busy.mark(ev.When)
			}
		}

		for j, got := range res.Ranges {
			require.GreaterOrEqual(t, got.Duration(), req.Duration)
			require.Positive(t, got.Duration())
			for m := got.Start; m < got.End; m++ {
				require.False(t, busy[m], "minute %d of %s is occupied", m, got)
			}
			if got.Start > 0 {
				require.True(t, busy[got.Start-1], "%s can be extended left", got)
			}
			if got.End < model.MinutesPerDay {
				require.True(t, busy[got.End], "%s can be extended right", got)
			}
			if j > 0 {
				require.Less(t, res.Ranges[j-1].End, got.Start, "ranges must be sorted and separated")
			}
		}

		if req.Optional.Len() > 0 && req.Required.Len() > 0 {
			withOptional := freeRanges(events, req.Required.Union(req.Optional), req.Duration)
			if len(withOptional) > 0 {
				require.Equal(t, PassWithOptional, res.Pass)
				require.Equal(t, withOptional, res.Ranges)
			}
		}

		if req.Required.Len() == 0 {
			promoted := model.MeetingRequest{Required: req.Optional, Optional: model.NewAttendees(), Duration: req.Duration}
			require.Equal(t, resolver.Query(events, promoted), res.Ranges)
		}
	}
}

func TestQueryConcurrent(t *testing.T) {
	resolver := NewResolver()
	events := []model.Event{event("1", 60, 120, personA)}
	req := request(t, []string{personA}, nil, 30)
	want := []model.TimeRange{rng(0, 60), rng(120, model.MinutesPerDay)}

	done := make(chan []model.TimeRange)
	for i := 0; i < 8; i++ {
		go func() { done <- resolver.Query(events, req) }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

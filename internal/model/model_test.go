package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{name: "whole day", start: 0, end: MinutesPerDay},
		{name: "empty", start: 600, end: 600},
		{name: "start after end", start: 601, end: 600, wantErr: true},
		{name: "negative start", start: -1, end: 10, wantErr: true},
		{name: "past end of day", start: 0, end: MinutesPerDay + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewTimeRange(tt.start, tt.end)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TimeRange{Start: tt.start, End: tt.end}, r)
		})
	}
}

func TestTimeRangeHelpers(t *testing.T) {
	r, err := FromStartDuration(60, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, r.Duration())
	assert.True(t, r.Contains(60))
	assert.False(t, r.Contains(90))
	assert.True(t, r.Overlaps(TimeRange{Start: 89, End: 120}))
	assert.False(t, r.Overlaps(TimeRange{Start: 90, End: 120}))
	assert.Equal(t, "01:00-01:30", r.String())
	assert.Equal(t, "00:00-24:00", WholeDay.String())

	_, err = FromStartDuration(1430, 30)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestSortRanges(t *testing.T) {
	ranges := []TimeRange{{Start: 120, End: 180}, {Start: 0, End: 60}, {Start: 0, End: 30}}
	SortRanges(ranges)
	assert.Equal(t, []TimeRange{{Start: 0, End: 30}, {Start: 0, End: 60}, {Start: 120, End: 180}}, ranges)
}

func TestAttendees(t *testing.T) {
	a := NewAttendees("alice", "bob")
	b := NewAttendees("carol", "Alice")

	assert.True(t, a.Disjoint(b), "identifiers are case sensitive")
	assert.False(t, a.Disjoint(NewAttendees("bob")))
	assert.True(t, a.Disjoint(NewAttendees()))
	assert.Equal(t, []string{"Alice", "alice", "bob", "carol"}, a.Union(b).Sorted())
	assert.Equal(t, 2, a.Len())
}

func TestNewMeetingRequest(t *testing.T) {
	req, err := NewMeetingRequest([]string{"a"}, nil, 2000)
	require.NoError(t, err)
	assert.Equal(t, 2000, req.Duration)
	assert.True(t, req.Required.Has("a"))
	assert.Equal(t, 0, req.Optional.Len())

	_, err = NewMeetingRequest(nil, nil, -5)
	assert.ErrorIs(t, err, ErrNegativeDuration)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "9:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "24:00", want: MinutesPerDay},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "+1:00", wantErr: true},
		{in: "-0:30", wantErr: true},
		{in: "12:+5", wantErr: true},
		{in: "12:-5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "9:30" {
				assert.Equal(t, tt.in, FormatClock(got))
			}
		})
	}
}

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay{Hour: 9}, false},
		{"23:59:30", TimeOfDay{Hour: 23, Minute: 59, Second: 30}, false},
		{" 07:05 ", TimeOfDay{Hour: 7, Minute: 5}, false},
		{"24:00", TimeOfDay{}, true},
		{"9am", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, Interval(1))
	assert.Equal(t, 15*24*time.Hour, Interval(2))
	assert.Equal(t, 7*24*time.Hour+12*time.Hour, Interval(4))
	assert.Equal(t, 30*24*time.Hour, Interval(0))
}

func TestResolveLocation(t *testing.T) {
	loc, ok := ResolveLocation(nil)
	assert.True(t, ok)
	assert.Equal(t, time.UTC, loc)

	loc, ok = ResolveLocation(ptr("America/New_York"))
	assert.True(t, ok)
	assert.Equal(t, "America/New_York", loc.String())

	loc, ok = ResolveLocation(ptr("Mars/Olympus_Mons"))
	assert.False(t, ok)
	assert.Equal(t, time.UTC, loc)
}

func TestNextPostTime_PriorPost(t *testing.T) {
	last := time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)

	t.Run("two posts a month is exactly fifteen days", func(t *testing.T) {
		next := NextPostTime(last, &last, 2, time.UTC, nil)
		assert.True(t, next.Equal(last.Add(15*24*time.Hour)), next)
	})

	t.Run("preferred time replaces the time of day", func(t *testing.T) {
		next := NextPostTime(last, &last, 1, time.UTC, &TimeOfDay{Hour: 9})
		assert.True(t, next.Equal(time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)), next)
	})

	t.Run("preferred time applies in the preferred zone", func(t *testing.T) {
		ny, ok := ResolveLocation(ptr("America/New_York"))
		require.True(t, ok)
		next := NextPostTime(last, &last, 1, ny, &TimeOfDay{Hour: 9})
		assert.True(t, next.Equal(time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC)), next)
	})
}

func TestNextPostTime_FirstPost(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	nine := &TimeOfDay{Hour: 9}

	t.Run("before the preferred time posts today", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 8, 0, 0, 0, zone)
		next := NextPostTime(now, nil, 1, zone, nine)
		assert.True(t, next.Equal(time.Date(2025, 6, 10, 9, 0, 0, 0, zone)), next)
	})

	t.Run("after the preferred time posts tomorrow", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 10, 0, 0, 0, zone)
		next := NextPostTime(now, nil, 1, zone, nine)
		assert.True(t, next.Equal(time.Date(2025, 6, 11, 9, 0, 0, 0, zone)), next)
	})

	t.Run("local date decides today", func(t *testing.T) {
		// 03:00 UTC on the 11th is 22:00 on the 10th in the zone
		now := time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC)
		next := NextPostTime(now, nil, 1, zone, nine)
		assert.True(t, next.Equal(time.Date(2025, 6, 11, 9, 0, 0, 0, zone)), next)
	})

	t.Run("no preferred time waits five minutes", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
		next := NextPostTime(now, nil, 1, time.UTC, nil)
		assert.True(t, next.Equal(now.Add(5*time.Minute)), next)
	})
}

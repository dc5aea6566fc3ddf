package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/homehub/internal/weather"
)

func TestSnapshotStore_EmptyBeforeFirstSet(t *testing.T) {
	s := NewSnapshotStore()

	_, ok := s.Get()
	assert.False(t, ok)
}

func TestSnapshotStore_SetThenGet(t *testing.T) {
	s := NewSnapshotStore()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Set(weather.Snapshot{UpdatedAt: at, Today: weather.Day{Max: weather.Some(21)}})

	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, at, got.UpdatedAt)
	assert.Equal(t, 21, got.Today.Max.OrElse(0))
}

func TestSnapshotStore_LastWriteWins(t *testing.T) {
	s := NewSnapshotStore()

	s.Set(weather.Snapshot{Today: weather.Day{Max: weather.Some(1)}})
	s.Set(weather.Snapshot{Today: weather.Day{Max: weather.Some(2)}})

	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, 2, got.Today.Max.OrElse(0))
}

func TestSnapshotStore_ConcurrentReadersSeeWholeValues(t *testing.T) {
	s := NewSnapshotStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.Set(weather.Snapshot{
					Today:    weather.Day{Max: weather.Some(n)},
					Tomorrow: weather.Day{Max: weather.Some(n)},
				})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got, ok := s.Get(); ok {
					// Both days are written together, never half of one Set.
					assert.Equal(t, got.Today.Max, got.Tomorrow.Max)
				}
			}
		}()
	}
	wg.Wait()

	_, ok := s.Get()
	assert.True(t, ok)
}

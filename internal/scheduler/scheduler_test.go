package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/i474232898/homehub/internal/metrics"
)

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func TestCycle_SurvivesErrorAndPanic(t *testing.T) {
	var calls atomic.Int32
	s := New(Config{Interval: time.Hour}, refresherFunc(func(context.Context) error {
		switch calls.Add(1) {
		case 1:
			return errors.New("upstream down")
		case 2:
			panic("bad payload")
		}
		return nil
	}))

	failures := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("failure"))
	panics := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("panic"))

	assert.NotPanics(t, func() {
		s.Cycle(context.Background())
		s.Cycle(context.Background())
		s.Cycle(context.Background())
	})
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, failures+1, testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("failure")))
	assert.Equal(t, panics+1, testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("panic")))
}

func TestCycle_AppliesTimeout(t *testing.T) {
	s := New(Config{Interval: time.Hour, CycleTimeout: 10 * time.Millisecond}, refresherFunc(func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, time.Second)
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Cycle(context.Background())
}

func TestStart_WithoutDelayRunsImmediately(t *testing.T) {
	var calls atomic.Int32
	s := New(Config{Interval: time.Hour}, refresherFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_WithDelayWaits(t *testing.T) {
	var calls atomic.Int32
	s := New(Config{Interval: time.Hour, InitialDelay: time.Hour}, refresherFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, calls.Load())
}

func TestStart_RejectsNonPositiveInterval(t *testing.T) {
	s := New(Config{}, refresherFunc(func(context.Context) error { return nil }))
	assert.Error(t, s.Start())
}

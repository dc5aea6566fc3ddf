package chime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/metrics"
)

// Task is one background playback. Done is closed when it finishes.
type Task struct {
	src  Source
	done chan struct{}
	err  error
}

// Source returns the file being played.
func (t *Task) Source() Source { return t.src }

// Done is closed once playback has ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the playback error. Only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Service resolves and plays the doorbell chime in the background.
type Service struct {
	resolver *Resolver
	player   Player

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logrus.Entry
}

// NewService creates a chime service.
func NewService(resolver *Resolver, player Player) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		resolver: resolver,
		player:   player,
		ctx:      ctx,
		cancel:   cancel,
		log:      logging.WithComponent("chime"),
	}
}

// Resolve returns the chime file to play.
func (s *Service) Resolve() (Source, error) {
	return s.resolver.Resolve()
}

// Candidates lists the paths that are searched.
func (s *Service) Candidates() []string {
	return s.resolver.Candidates()
}

// PlayAsync starts playback in the background and returns its task.
func (s *Service) PlayAsync(src Source) *Task {
	t := &Task{src: src, done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(t.done)

		entry := s.log.WithFields(logrus.Fields{"source": src.Path, "format": src.Format})
		if err := s.player.Play(s.ctx, src); err != nil {
			t.err = err
			metrics.ChimePlaybacks.WithLabelValues("failed").Inc()
			entry.WithError(err).Error("chime playback failed")
			return
		}
		metrics.ChimePlaybacks.WithLabelValues("ok").Inc()
		entry.Debug("chime playback finished")
	}()

	return t
}

// Wait blocks until all in-flight playbacks finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight playbacks.
func (s *Service) Close() {
	s.cancel()
}

package weather

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/homehub/internal/logging"
)

// Service runs refresh cycles against a Fetcher and serves the cached snapshot.
type Service struct {
	fetcher   Fetcher
	store     Store
	publisher Publisher
	location  Location
	days      int
	clock     clockwork.Clock
	log       *logrus.Entry
}

// NewService creates a new Service. A nil clock means the real clock.
func NewService(fetcher Fetcher, store Store, publisher Publisher, loc Location, days int, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if days < 2 {
		days = 2
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		location:  loc,
		days:      days,
		clock:     clock,
		log:       logging.WithComponent("weather"),
	}
}

// Refresh performs one cycle: fetch, build, store, then push. On any failure
// the cached snapshot is left untouched and nothing is pushed.
func (s *Service) Refresh(ctx context.Context) error {
	resp, err := s.fetcher.FetchForecast(ctx, s.location, s.days)
	if err != nil {
		return fmt.Errorf("%s fetch for %s: %w", s.fetcher.Name(), s.location.Key(), err)
	}

	snap, err := BuildSnapshot(resp, s.clock.Now())
	if err != nil {
		return fmt.Errorf("%s response for %s: %w", s.fetcher.Name(), s.location.Key(), err)
	}

	// Store first: a pushed value must already be what Current returns.
	s.store.Set(snap)
	delivered := 0
	if s.publisher != nil {
		delivered = s.publisher.Push(snap)
	}

	s.log.WithFields(logrus.Fields{
		"location":     s.location.Key(),
		"delivered":    delivered,
		"today_max":    snap.Today.Max.OrElse(0),
		"tomorrow_max": snap.Tomorrow.Max.OrElse(0),
	}).Debug("weather refreshed")
	return nil
}

// Current returns the latest snapshot, or false before the first success.
func (s *Service) Current() (Snapshot, bool) {
	return s.store.Get()
}

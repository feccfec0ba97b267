// Package housekeeping runs the periodic jobs that keep checkout state
// honest: abandoned sessions are expired and lapsed memberships are closed.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/gym-storefront/internal/core/events"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultBatch    = 200
)

type SessionExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

type MembershipExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Sweeper struct {
	sessions    SessionExpirer
	memberships MembershipExpirer
	publisher   Publisher
	interval    time.Duration
	batch       int
	logger      *slog.Logger
	now         func() time.Time
}

// NewSweeper builds a sweeper. publisher may be nil.
func NewSweeper(sessions SessionExpirer, memberships MembershipExpirer, publisher Publisher, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Sweeper{
		sessions:    sessions,
		memberships: memberships,
		publisher:   publisher,
		interval:    interval,
		batch:       batch,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop(ctx, "sessions", s.SweepSessions) })
	g.Go(func() error { return s.loop(ctx, "memberships", s.SweepMemberships) })
	return g.Wait()
}

func (s *Sweeper) loop(ctx context.Context, name string, sweep func(context.Context) error) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "job", name, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepSessions expires sessions in batches until a batch comes back short.
func (s *Sweeper) SweepSessions(ctx context.Context) error {
	now := s.now()
	total := 0
	for {
		n, err := s.sessions.ExpireStale(ctx, now, s.batch)
		if err != nil {
			return err
		}
		total += n
		if n < s.batch || ctx.Err() != nil {
			break
		}
	}

	if total > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewSessionExpiredEvent(total)); err != nil {
			s.logger.Warn("failed to publish session expiry", "error", err)
		}
	}
	return nil
}

func (s *Sweeper) SweepMemberships(ctx context.Context) error {
	n, err := s.memberships.ExpireEnded(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("memberships expired", "count", n)
	}
	return nil
}

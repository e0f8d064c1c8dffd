package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

const (
	defaultSweepInterval = 10 * time.Second
	defaultSweepGrace    = 10 * time.Minute
)

// SweepStore is the slice of ReservationRepo the sweeper needs.
type SweepStore interface {
	FindOverdueUnstarted(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
	Finish(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error)
}

// Sweeper finalizes reservations that were never started within the
// grace period after their start time.  Finalized rows stop counting
// against location occupancy, so their places become free again.
type Sweeper struct {
	store    SweepStore
	interval time.Duration
	grace    time.Duration
}

// NewSweeper builds a sweeper.  Non-positive interval or grace values
// fall back to the defaults (10s, 10m).
func NewSweeper(store SweepStore, interval, grace time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if grace <= 0 {
		grace = defaultSweepGrace
	}
	return &Sweeper{store: store, interval: interval, grace: grace}
}

// Run loops until the context is cancelled.  The delay is measured
// from the end of one pass to the start of the next, so a slow pass
// never causes overlapping sweeps.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("sweeper: running every %s, grace %s", s.interval, s.grace)
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-time.After(s.interval):
		}
		s.SweepOnce(ctx, time.Now())
	}
}

// SweepOnce runs a single pass at the given instant and returns how
// many reservations it finalized.  A failure on one row is logged and
// does not stop the rest of the pass.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) int {
	overdue, err := s.store.FindOverdueUnstarted(ctx, now.Add(-s.grace))
	if err != nil {
		log.Printf("sweeper: query failed: %v", err)
		return 0
	}
	finalized := 0
	for _, r := range overdue {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.store.Finish(ctx, r.ID, now)
		if err != nil {
			log.Printf("sweeper: finalize %s failed: %v", r.ID, err)
			continue
		}
		if ok {
			finalized++
		}
	}
	if finalized > 0 {
		log.Printf("sweeper: finalized %d expired reservation(s)", finalized)
	}
	return finalized
}

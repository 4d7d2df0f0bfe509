package reservation

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/seatly/internal/clock"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultHoldBudget    = 5 * time.Minute
)

// Sweeper periodically cancels pending reservations that have outlived the
// hold budget.  It goes through Coordinator.Expire, so a sweep racing a
// confirm on the same record cannot both succeed.
type Sweeper struct {
	coord    *Coordinator
	ledger   Ledger
	clock    clock.Clock
	interval time.Duration
	budget   time.Duration
}

type SweeperOption func(*Sweeper)

// WithInterval overrides how often the sweeper runs.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithHoldBudget overrides how long a reservation may stay pending.
func WithHoldBudget(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.budget = d
		}
	}
}

func NewSweeper(coord *Coordinator, ledger Ledger, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		coord:    coord,
		ledger:   ledger,
		clock:    clk,
		interval: defaultSweepInterval,
		budget:   defaultHoldBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) Interval() time.Duration   { return s.interval }
func (s *Sweeper) HoldBudget() time.Duration { return s.budget }

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("sweeper: started (interval=%s budget=%s)", s.interval, s.budget)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if n, err := s.SweepOnce(ctx); err != nil {
			log.Printf("sweeper: %v", err)
		} else if n > 0 {
			log.Printf("sweeper: expired %d reservation(s)", n)
		}
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce expires every pending reservation created before now minus the
// hold budget and returns how many it cancelled.  A failure on one record
// is logged and does not stop the others; only a failed listing is
// returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.budget)
	recs, err := s.ledger.ListExpirable(ctx, cutoff)
	if err != nil {
		return 0, persistence(err)
	}
	n := 0
	for _, rec := range recs {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		expired, err := s.coord.Expire(ctx, rec)
		if err != nil {
			log.Printf("sweeper: expire %s (route=%s seat=%s): %v", rec.ID, rec.RouteID, rec.SeatNumber, err)
			continue
		}
		if expired {
			n++
		}
	}
	return n, nil
}

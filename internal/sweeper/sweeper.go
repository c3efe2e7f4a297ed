// Package sweeper drives the time-based booking lifecycle: it expires lapsed
// payment holds, reminds guests the day before arrival, starts stays on their
// check-in date and closes finished stays.
//
// Every change goes through the booking service, which re-checks the booking
// under the property lock and applies a compare-and-transition. Running several
// sweepers, or racing a payment confirmation, therefore never applies a
// transition twice.
package sweeper

import (
	"context"
	"time"

	"staybook/pkg/clock"
	"staybook/pkg/config"
	"staybook/pkg/model"
)

// Finder lists the bookings a pass works on.
type Finder interface {
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	FindUpcomingStays(ctx context.Context, day time.Time, limit int) ([]*model.Booking, error)
	FindStartingStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error)
	FindFinishedStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error)
}

// Transitioner applies the lifecycle changes.
type Transitioner interface {
	ExpireHold(ctx context.Context, id string) (bool, error)
	SendReminder(ctx context.Context, id string) (bool, error)
	StartStay(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
}

// Result counts the outcome of one pass.
type Result struct {
	Scanned   int `json:"scanned"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Reminded  int `json:"reminded"`
	CheckedIn int `json:"checked_in"`
	Completed int `json:"completed"`
}

type Sweeper struct {
	finder   Finder
	bookings Transitioner
	clock    clock.Clock
	cfg      *config.Config
}

func New(finder Finder, bookings Transitioner, clk clock.Clock, cfg *config.Config) *Sweeper {
	if clk == nil {
		clk = clock.System()
	}
	return &Sweeper{
		finder:   finder,
		bookings: bookings,
		clock:    clk,
		cfg:      cfg,
	}
}

// RunOnce performs a single pass. Per-booking failures are counted, not returned;
// the error reports only a failed listing.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	now := s.clock.Now()

	expired, err := s.finder.FindExpiredHolds(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to list expired holds", "error", err)
		return res, err
	}

	if err := s.each(ctx, &res, expired, "expire hold", s.bookings.ExpireHold, &res.Expired); err != nil {
		return res, err
	}

	today := model.Day(now)

	upcoming, err := s.finder.FindUpcomingStays(ctx, today.AddDate(0, 0, 1), s.cfg.SweepBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming stays", "error", err)
		return res, err
	}
	if err := s.each(ctx, &res, upcoming, "remind", s.bookings.SendReminder, &res.Reminded); err != nil {
		return res, err
	}

	// Listing runs a day ahead of UTC; the service starts a stay only once the
	// check-in date has come in the property's timezone. Check-in runs before
	// completion so a confirmed stay whose checkout has already passed is
	// closed in the same pass.
	starting, err := s.finder.FindStartingStays(ctx, today.AddDate(0, 0, 1), s.cfg.SweepBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to list starting stays", "error", err)
		return res, err
	}
	if err := s.each(ctx, &res, starting, "start stay", s.bookings.StartStay, &res.CheckedIn); err != nil {
		return res, err
	}

	finished, err := s.finder.FindFinishedStays(ctx, today, s.cfg.SweepBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to list finished stays", "error", err)
		return res, err
	}

	for _, b := range finished {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++

		if _, err := s.bookings.Complete(ctx, b.ID); err != nil {
			res.Failed++
			s.cfg.Log.Warn("Failed to complete stay", "id", b.ID, "property_id", b.PropertyID, "error", err)
			continue
		}
		res.Completed++
	}

	if res.Scanned > 0 {
		s.cfg.Log.Info("Sweep finished",
			"scanned", res.Scanned,
			"expired", res.Expired,
			"reminded", res.Reminded,
			"checked_in", res.CheckedIn,
			"completed", res.Completed,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}
	return res, nil
}

// each applies step to every booking, counting hits into done.
func (s *Sweeper) each(ctx context.Context, res *Result, bookings []*model.Booking, action string, step func(context.Context, string) (bool, error), done *int) error {
	for _, b := range bookings {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.Scanned++

		ok, err := step(ctx, b.ID)
		switch {
		case err != nil:
			res.Failed++
			s.cfg.Log.Warn("Sweep step failed", "action", action, "id", b.ID, "property_id", b.PropertyID, "error", err)
		case ok:
			*done++
		default:
			res.Skipped++
		}
	}
	return nil
}

// Start runs a pass immediately and then every SweepInterval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.cfg.Log.Info("Sweeper started", "interval", s.cfg.SweepInterval, "batch_size", s.cfg.SweepBatchSize)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.cfg.Log.Error("Sweep pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.cfg.Log.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

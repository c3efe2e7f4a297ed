package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/clock"
	"staybook/pkg/db/memory"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	clock    clock.Clock
}

func NewMemoryBookingRepository(clk clock.Clock) BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
		clock:    clk,
	}
}

func (r *memoryBookingRepository) NextID() string {
	return uuid.NewString()
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = r.NextID()
	}
	cp := *booking
	r.bookings[booking.ID] = &cp

	id := booking.ID
	memory.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.bookings, id)
	})
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryBookingRepository) FindByProperty(ctx context.Context, propertyID string, dr *model.DateRange, limit int, offset int64) ([]*model.Booking, error) {
	all := r.filter(func(b *model.Booking) bool {
		return b.PropertyID == propertyID && (dr == nil || b.Range.Overlaps(*dr))
	}, func(a, b *model.Booking) bool {
		if a.Range.Start.Equal(b.Range.Start) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Range.Start.Before(b.Range.Start)
	})

	if offset >= int64(len(all)) {
		return []*model.Booking{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryBookingRepository) CountByProperty(ctx context.Context, propertyID string, dr *model.DateRange) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, b := range r.bookings {
		if b.PropertyID == propertyID && (dr == nil || b.Range.Overlaps(*dr)) {
			n++
		}
	}
	return n, nil
}

func (r *memoryBookingRepository) Transition(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error) {
	return r.update(ctx, id, change.Matches, change.ApplyTo)
}

func (r *memoryBookingRepository) SetPayment(ctx context.Context, id string, paymentID string, status model.PaymentStatus) (*model.Booking, error) {
	now := r.clock.Now()
	return r.update(ctx, id,
		func(b *model.Booking) bool { return b.Status == model.StatusPendingPayment },
		func(b *model.Booking) {
			if paymentID != "" {
				b.PaymentID = paymentID
			}
			b.PaymentStatus = status
			b.UpdatedAt = now
		},
	)
}

func (r *memoryBookingRepository) RecordLatePayment(ctx context.Context, id string, status model.BookingStatus, paymentID string, at time.Time) (*model.Booking, error) {
	return r.update(ctx, id,
		func(b *model.Booking) bool {
			return b.Status == status && !slices.Contains(b.LatePaymentIDs, paymentID)
		},
		func(b *model.Booking) {
			b.LatePaymentIDs = append(slices.Clone(b.LatePaymentIDs), paymentID)
			b.UpdatedAt = at
		},
	)
}

func (r *memoryBookingRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	return r.update(ctx, id,
		func(b *model.Booking) bool { return b.Status == model.StatusConfirmed && b.ReminderSentAt == nil },
		func(b *model.Booking) {
			b.ReminderSentAt = &at
			b.UpdatedAt = at
		},
	)
}

func (r *memoryBookingRepository) update(ctx context.Context, id string, matches func(*model.Booking) bool, apply func(*model.Booking)) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !matches(b) {
		return nil, bookingserrors.ErrStatusChanged
	}

	previous := *b
	apply(b)

	memory.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		restored := previous
		r.bookings[id] = &restored
	})

	cp := *b
	return &cp, nil
}

func (r *memoryBookingRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	return r.limited(r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusPendingPayment && b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now)
	}, func(a, b *model.Booking) bool {
		return a.HoldExpiresAt.Before(*b.HoldExpiresAt)
	}), limit), nil
}

func (r *memoryBookingRepository) FindStartingStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error) {
	return r.limited(r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusConfirmed && !b.Range.Start.After(today)
	}, func(a, b *model.Booking) bool {
		return a.Range.Start.Before(b.Range.Start)
	}), limit), nil
}

func (r *memoryBookingRepository) FindUpcomingStays(ctx context.Context, day time.Time, limit int) ([]*model.Booking, error) {
	return r.limited(r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusConfirmed && b.ReminderSentAt == nil && b.Range.Start.Equal(day)
	}, func(a, b *model.Booking) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}), limit), nil
}

func (r *memoryBookingRepository) FindFinishedStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error) {
	return r.limited(r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusInProgress && !b.Range.End.After(today)
	}, func(a, b *model.Booking) bool {
		return a.Range.End.Before(b.Range.End)
	}), limit), nil
}

func (r *memoryBookingRepository) FindAwaitingPayment(ctx context.Context, limit int) ([]*model.Booking, error) {
	return r.limited(r.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusPendingPayment && b.PaymentID != "" && b.PaymentStatus == model.PaymentStatusPending
	}, func(a, b *model.Booking) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}), limit), nil
}

func (r *memoryBookingRepository) filter(keep func(*model.Booking) bool, less func(a, b *model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *memoryBookingRepository) limited(bookings []*model.Booking, limit int) []*model.Booking {
	if limit > 0 && len(bookings) > limit {
		return bookings[:limit]
	}
	return bookings
}

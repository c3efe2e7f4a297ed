package service

import (
	"context"
	"errors"
	"sync"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	calendarrepo "staybook/internal/calendar/repository"
	"staybook/internal/calendar/conflict"
	"staybook/internal/notifications"
	"staybook/internal/payments/gateway"
	pricingrepo "staybook/internal/pricing/repository"
	pricingservice "staybook/internal/pricing/service"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	"staybook/pkg/db"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByProperty(ctx context.Context, propertyID string, dr *model.DateRange, limit int, offset int64) ([]*model.Booking, int64, error)

	// ConfirmOnPayment confirms a live hold. A payment that arrives after the
	// hold deadline expires the booking and returns a HOLD_EXPIRED error; the
	// caller owes the guest a refund.
	ConfirmOnPayment(ctx context.Context, id string, paymentID string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, req *model.CancelBookingRequest) (*model.Booking, error)
	CheckIn(ctx context.Context, id string) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	// ExpireHold expires the booking if its hold deadline has passed. It reports
	// false when another writer got there first or the hold is still live.
	ExpireHold(ctx context.Context, id string) (bool, error)
	// StartStay checks in a confirmed booking once its check-in date has come
	// in the property's timezone, however late. It reports false when the stay
	// has not started or the booking is no longer confirmed.
	StartStay(ctx context.Context, id string) (bool, error)
	// SendReminder publishes the pre-arrival reminder at most once per booking.
	SendReminder(ctx context.Context, id string) (bool, error)

	InitiatePayment(ctx context.Context, id string) (*model.PaymentSession, error)
	RecordPaymentFailure(ctx context.Context, id string, paymentID string) (*model.Booking, error)
}

// Dependencies are the collaborators of the booking service.
type Dependencies struct {
	Bookings  repository.BookingRepository
	Calendar  calendarrepo.CalendarRepository
	Catalog   pricingrepo.CatalogRepository
	Pricing   pricingservice.PricingService
	Locker    lock.Locker
	Tx        db.TransactionManager
	Validator *validator.BookingValidator
	Notifier  notifications.Notifier
	Gateway   gateway.Gateway
	Fees      CancellationFeePolicy
	Clock     clock.Clock
}

type bookingService struct {
	repo      repository.BookingRepository
	calendar  calendarrepo.CalendarRepository
	catalog   pricingrepo.CatalogRepository
	pricing   pricingservice.PricingService
	locker    lock.Locker
	tx        db.TransactionManager
	validator *validator.BookingValidator
	notifier  notifications.Notifier
	gateway   gateway.Gateway
	fees      CancellationFeePolicy
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	if deps.Fees == nil {
		deps.Fees = TieredFeePolicy{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewLogNotifier(cfg.Log)
	}
	return &bookingService{
		repo:      deps.Bookings,
		calendar:  deps.Calendar,
		catalog:   deps.Catalog,
		pricing:   deps.Pricing,
		locker:    deps.Locker,
		tx:        deps.Tx,
		validator: deps.Validator,
		notifier:  deps.Notifier,
		gateway:   deps.Gateway,
		fees:      deps.Fees,
		clock:     deps.Clock,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	dr, err := model.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	property, settings, err := s.loadCatalog(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := conflict.CheckPolicy(dr, settings, now, property.Location()); err != nil {
		return nil, toAppError(err)
	}
	if err := conflict.CheckGuests(req.GuestCount, property.MaxGuests); err != nil {
		return nil, toAppError(err)
	}

	quote, err := s.pricing.QuoteFor(ctx, property, settings, dr)
	if err != nil {
		return nil, err
	}
	if err := s.pricing.ValidateStay(quote); err != nil {
		return nil, err
	}

	release, err := s.acquirePropertyLock(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	leaseCtx, cancel := lock.Lease(ctx, s.cfg.LockTTL)
	defer cancel()

	var booking *model.Booking
	err = s.tx.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		existing, err := s.calendar.ListBlocks(txCtx, property.ID, dr)
		if err != nil {
			return apperrors.Internal("Failed to read calendar", err)
		}
		if err := conflict.CheckConflict(dr, existing); err != nil {
			return toAppError(err)
		}

		now := s.clock.Now()
		expires := now.Add(s.cfg.HoldDuration)
		bookingID := s.repo.NextID()

		blockID, err := s.calendar.InsertBlock(txCtx, &model.CalendarBlock{
			PropertyID:     property.ID,
			Range:          dr,
			Kind:           model.BlockHold,
			OwnerBookingID: bookingID,
		})
		if err != nil {
			if f, ok := conflict.AsFailure(err); ok {
				return f.AppError()
			}
			return apperrors.Internal("Failed to hold dates", err)
		}

		booking = &model.Booking{
			ID:            bookingID,
			Code:          newBookingCode(),
			PropertyID:    property.ID,
			GuestID:       req.GuestID,
			Range:         dr,
			Status:        model.StatusPendingPayment,
			GuestCount:    req.GuestCount,
			TotalPrice:    quote.Total,
			Currency:      quote.Currency,
			BlockID:       blockID,
			HoldExpiresAt: &expires,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to create booking",
			"property_id", property.ID,
			"range", dr.String(),
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"code", booking.Code,
		"property_id", booking.PropertyID,
		"range", booking.Range.String(),
		"total_price", booking.TotalPrice,
		"hold_expires_at", booking.HoldExpiresAt,
	)
	s.publish(ctx, notifications.EventBookingCreated, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.load(ctx, id)
}

func (s *bookingService) ListByProperty(ctx context.Context, propertyID string, dr *model.DateRange, limit int, offset int64) ([]*model.Booking, int64, error) {
	if propertyID == "" {
		return nil, 0, apperrors.InvalidInput("Property ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByProperty(ctx, propertyID, dr)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "property_id", propertyID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByProperty(ctx, propertyID, dr, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"property_id", propertyID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) loadCatalog(ctx context.Context, propertyID string) (*model.Property, *model.CalendarSettings, error) {
	property, err := s.catalog.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrPropertyNotFound) {
			return nil, nil, apperrors.NotFoundWithID("Property", propertyID)
		}
		return nil, nil, apperrors.Internal("Failed to load property", err)
	}

	settings, err := s.catalog.GetSettings(ctx, propertyID)
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to load calendar settings", err)
	}
	if settings == nil {
		settings = model.DefaultCalendarSettings(propertyID)
	}
	return property, settings, nil
}

// acquirePropertyLock serializes calendar writers of one property.
func (s *bookingService) acquirePropertyLock(ctx context.Context, propertyID string) (lock.Release, error) {
	release, err := s.locker.Acquire(ctx, propertyID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			s.cfg.Log.Warn("Property lock wait timed out", "property_id", propertyID, "error", err)
			return nil, apperrors.Busy("Property is busy, please retry", err).WithCause(bookingserrors.ErrBusy)
		}
		return nil, apperrors.Internal("Failed to acquire property lock", err)
	}
	return release, nil
}

func (s *bookingService) publish(ctx context.Context, eventType string, b *model.Booking) {
	s.notifier.Notify(ctx, eventType, b.ID, model.NewBookingEvent(b, s.clock.Now()))
}

func toAppError(err error) error {
	if f, ok := conflict.AsFailure(err); ok {
		return f.AppError()
	}
	return err
}

// newBookingCode returns a short guest-facing reference.
func newBookingCode() string {
	id := uuid.New()
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	code := make([]byte, 8)
	for i := range code {
		code[i] = alphabet[int(id[i])%len(alphabet)]
	}
	return "SB-" + string(code)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	"staybook/internal/calendar/conflict"
	"staybook/internal/calendar/repository"
	pricingrepo "staybook/internal/pricing/repository"
	pricingservice "staybook/internal/pricing/service"
	"staybook/pkg/config"
	"staybook/pkg/db"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
)

const maxBlockReasonRunes = 255

type CalendarService interface {
	// ListAvailability returns one row per night of r with its occupancy and price.
	ListAvailability(ctx context.Context, propertyID string, r model.DateRange) ([]*model.DayAvailability, error)
	Quote(ctx context.Context, propertyID string, r model.DateRange) (*model.Quote, error)
	BlockDates(ctx context.Context, propertyID string, req *model.ManualBlockRequest) (*model.CalendarBlock, error)
	// UnblockDates removes an operator block. Blocks owned by bookings are left
	// to the booking lifecycle.
	UnblockDates(ctx context.Context, propertyID string, blockID string) error
}

type calendarService struct {
	repo      repository.CalendarRepository
	catalog   pricingrepo.CatalogRepository
	pricing   pricingservice.PricingService
	locker    lock.Locker
	tx        db.TransactionManager
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewCalendarService(
	repo repository.CalendarRepository,
	catalog pricingrepo.CatalogRepository,
	pricing pricingservice.PricingService,
	locker lock.Locker,
	tx db.TransactionManager,
	v *validator.BookingValidator,
	cfg *config.Config,
) CalendarService {
	return &calendarService{
		repo:      repo,
		catalog:   catalog,
		pricing:   pricing,
		locker:    locker,
		tx:        tx,
		validator: v,
		cfg:       cfg,
	}
}

func (s *calendarService) ListAvailability(ctx context.Context, propertyID string, r model.DateRange) ([]*model.DayAvailability, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	if err := r.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if r.Nights() > s.cfg.MaxAvailabilityDays {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Availability range cannot exceed %d days", s.cfg.MaxAvailabilityDays))
	}

	property, err := s.catalog.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrPropertyNotFound) {
			return nil, apperrors.NotFoundWithID("Property", propertyID)
		}
		return nil, apperrors.Internal("Failed to load property", err)
	}
	settings, err := s.catalog.GetSettings(ctx, propertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load calendar settings", err)
	}

	blocks, err := s.repo.ListBlocks(ctx, propertyID, r)
	if err != nil {
		s.cfg.Log.Error("Failed to list calendar blocks", "property_id", propertyID, "range", r.String(), "error", err)
		return nil, apperrors.Internal("Failed to read calendar", err)
	}

	quote, err := s.pricing.QuoteFor(ctx, property, settings, r)
	if err != nil {
		return nil, err
	}

	days := make([]*model.DayAvailability, 0, len(quote.Nights))
	for i, day := range r.Days() {
		night := quote.Nights[i]
		row := &model.DayAvailability{
			Date:      night.Date,
			Status:    model.DayAvailable,
			Price:     night.Price,
			Source:    night.Source,
			MinNights: night.MinNights,
		}
		if b := blockOn(blocks, day); b != nil {
			row.Status = dayStatus(b.Kind)
			row.BlockID = b.ID
			if b.Kind.OperatorKind() {
				row.Reason = b.Reason
				row.ColorCode = b.ColorCode
			}
		}
		days = append(days, row)
	}
	return days, nil
}

func (s *calendarService) Quote(ctx context.Context, propertyID string, r model.DateRange) (*model.Quote, error) {
	return s.pricing.ResolvePrice(ctx, propertyID, r)
}

func (s *calendarService) BlockDates(ctx context.Context, propertyID string, req *model.ManualBlockRequest) (*model.CalendarBlock, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	if err := s.validator.ValidateManualBlock(req); err != nil {
		s.cfg.Log.Warn("Manual block validation failed", "property_id", propertyID, "error", err)
		return nil, apperrors.Validation("Manual block validation failed", map[string]any{"error": err.Error()})
	}

	r, err := model.ParseDateRange(req.Start, req.End)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if _, err := s.catalog.GetProperty(ctx, propertyID); err != nil {
		if errors.Is(err, bookingserrors.ErrPropertyNotFound) {
			return nil, apperrors.NotFoundWithID("Property", propertyID)
		}
		return nil, apperrors.Internal("Failed to load property", err)
	}

	block := &model.CalendarBlock{
		PropertyID: propertyID,
		Range:      r,
		Kind:       req.Kind,
		Reason:     sanitizer.SanitizeFreeText(req.Reason, maxBlockReasonRunes),
		ColorCode:  sanitizer.SanitizeColorCode(req.ColorCode),
	}

	release, err := s.acquirePropertyLock(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	defer release()

	leaseCtx, cancel := lock.Lease(ctx, s.cfg.LockTTL)
	defer cancel()

	err = s.tx.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		id, err := s.repo.InsertBlock(txCtx, block)
		if err != nil {
			if f, ok := conflict.AsFailure(err); ok {
				return f.AppError()
			}
			return apperrors.Internal("Failed to block dates", err)
		}
		block.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Dates blocked",
		"property_id", propertyID,
		"block_id", block.ID,
		"kind", block.Kind,
		"range", r.String(),
	)
	return block, nil
}

func (s *calendarService) UnblockDates(ctx context.Context, propertyID string, blockID string) error {
	if propertyID == "" || blockID == "" {
		return apperrors.InvalidInput("Property ID and block ID are required")
	}

	release, err := s.acquirePropertyLock(ctx, propertyID)
	if err != nil {
		return err
	}
	defer release()

	leaseCtx, cancel := lock.Lease(ctx, s.cfg.LockTTL)
	defer cancel()

	return s.tx.ExecuteTransaction(leaseCtx, func(txCtx context.Context) error {
		block, err := s.repo.FindBlockByID(txCtx, blockID)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrBlockNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
				return apperrors.NotFoundWithID("Calendar block", blockID)
			}
			return apperrors.Internal("Failed to load calendar block", err)
		}
		if block.PropertyID != propertyID {
			return apperrors.NotFoundWithID("Calendar block", blockID)
		}
		if !block.Kind.OperatorKind() {
			return apperrors.Conflict("Block belongs to a booking, cancel the booking instead").
				WithDetails(map[string]any{"kind": block.Kind, "booking_id": block.OwnerBookingID})
		}

		if err := s.repo.ReleaseBlock(txCtx, blockID); err != nil {
			return apperrors.Internal("Failed to release calendar block", err)
		}
		s.cfg.Log.Info("Dates unblocked", "property_id", propertyID, "block_id", blockID, "range", block.Range.String())
		return nil
	})
}

func (s *calendarService) acquirePropertyLock(ctx context.Context, propertyID string) (lock.Release, error) {
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

// blockOn returns the block occupying day; blocks never overlap each other.
func blockOn(blocks []*model.CalendarBlock, day time.Time) *model.CalendarBlock {
	for _, b := range blocks {
		if b.Range.Contains(day) {
			return b
		}
	}
	return nil
}

func dayStatus(kind model.BlockKind) model.DayStatus {
	switch kind {
	case model.BlockHold:
		return model.DayHold
	case model.BlockConfirmed:
		return model.DayConfirmed
	case model.BlockMaintenance:
		return model.DayMaintenance
	default:
		return model.DayManualBlock
	}
}

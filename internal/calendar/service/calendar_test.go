package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	"staybook/internal/calendar/repository"
	pricingrepo "staybook/internal/pricing/repository"
	pricingservice "staybook/internal/pricing/service"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	"staybook/pkg/db/memory"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

func newTestService(t *testing.T) (CalendarService, repository.CalendarRepository, *pricingrepo.MemoryCatalogRepository) {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	cfg := &config.Config{
		LockWaitTimeout:     time.Second,
		DefaultCurrency:     "KZT",
		MaxStayNights:       30,
		MaxAvailabilityDays: 31,
		Log:                 log,
	}

	clk := clock.NewFake(time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	catalog := pricingrepo.NewMemoryCatalogRepository()
	catalog.PutProperty(&model.Property{ID: "prop-1", BasePrice: 25000, Currency: "KZT"})

	repo := repository.NewMemoryCalendarRepository(clk)
	svc := NewCalendarService(
		repo,
		catalog,
		pricingservice.NewPricingService(catalog, cfg),
		lock.NewKeyedMutex(cfg.LockWaitTimeout),
		memory.NewTransactionManager(),
		validator.NewBookingValidator(log),
		cfg,
	)
	return svc, repo, catalog
}

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	dr, err := model.ParseDateRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return dr
}

func TestListAvailability(t *testing.T) {
	svc, repo, catalog := newTestService(t)
	ctx := context.Background()

	catalog.PutSeasonalRate(&model.SeasonalRate{
		PropertyID:    "prop-1",
		Range:         mustRange(t, "2025-12-24", "2025-12-26"),
		PricePerNight: 45000,
		MinNights:     3,
		Priority:      1,
	})
	if _, err := repo.InsertBlock(ctx, &model.CalendarBlock{
		PropertyID: "prop-1", Range: mustRange(t, "2025-12-22", "2025-12-24"), Kind: model.BlockHold, OwnerBookingID: "b-1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertBlock(ctx, &model.CalendarBlock{
		PropertyID: "prop-1", Range: mustRange(t, "2025-12-25", "2025-12-26"), Kind: model.BlockMaintenance, Reason: "boiler",
	}); err != nil {
		t.Fatal(err)
	}

	days, err := svc.ListAvailability(ctx, "prop-1", mustRange(t, "2025-12-21", "2025-12-27"))
	if err != nil {
		t.Fatalf("ListAvailability() error = %v", err)
	}

	want := []struct {
		date   string
		status model.DayStatus
		price  int64
	}{
		{"2025-12-21", model.DayAvailable, 25000},
		{"2025-12-22", model.DayHold, 25000},
		{"2025-12-23", model.DayHold, 25000},
		{"2025-12-24", model.DayAvailable, 45000},
		{"2025-12-25", model.DayMaintenance, 45000},
		{"2025-12-26", model.DayAvailable, 25000},
	}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i, w := range want {
		d := days[i]
		if d.Date != w.date || d.Status != w.status || d.Price != w.price {
			t.Errorf("day %d = {%s %s %d}, want {%s %s %d}", i, d.Date, d.Status, d.Price, w.date, w.status, w.price)
		}
	}
	if days[3].Source != model.PriceSourceSeasonal || days[3].MinNights != 3 {
		t.Errorf("seasonal night not annotated: %+v", days[3])
	}
	if days[4].Reason != "boiler" {
		t.Errorf("maintenance reason = %q", days[4].Reason)
	}
}

func TestListAvailability_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		propertyID string
		r          model.DateRange
		wantCode   string
	}{
		{name: "span too long", propertyID: "prop-1", r: mustRange(t, "2025-12-01", "2026-02-01"), wantCode: apperrors.CodeInvalidInput},
		{name: "unknown property", propertyID: "nope", r: mustRange(t, "2025-12-01", "2025-12-02"), wantCode: apperrors.CodeNotFound},
		{name: "empty range", propertyID: "prop-1", r: model.DateRange{}, wantCode: apperrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListAvailability(ctx, tt.propertyID, tt.r)
			if apperrors.AsAppError(err).Code != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestBlockAndUnblockDates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	block, err := svc.BlockDates(ctx, "prop-1", &model.ManualBlockRequest{
		Start:     "2025-12-10",
		End:       "2025-12-12",
		Kind:      model.BlockManual,
		Reason:    "  owner   visiting ",
		ColorCode: "#FF0000",
	})
	if err != nil {
		t.Fatalf("BlockDates() error = %v", err)
	}
	if block.ID == "" || block.Reason != "owner visiting" || block.ColorCode != "#ff0000" {
		t.Errorf("unexpected block %+v", block)
	}

	_, err = svc.BlockDates(ctx, "prop-1", &model.ManualBlockRequest{Start: "2025-12-11", End: "2025-12-13", Kind: model.BlockMaintenance})
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict || !errors.Is(err, bookingserrors.ErrDateConflict) {
		t.Fatalf("overlapping block: expected CONFLICT, got %v", err)
	}

	if err := svc.UnblockDates(ctx, "prop-2", block.ID); apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("foreign property: expected NOT_FOUND, got %v", err)
	}

	if err := svc.UnblockDates(ctx, "prop-1", block.ID); err != nil {
		t.Fatalf("UnblockDates() error = %v", err)
	}
	blocks, _ := repo.ListBlocks(ctx, "prop-1", mustRange(t, "2025-12-01", "2025-12-31"))
	if len(blocks) != 0 {
		t.Errorf("expected no blocks after unblock, got %d", len(blocks))
	}

	if err := svc.UnblockDates(ctx, "prop-1", block.ID); apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("second unblock: expected NOT_FOUND, got %v", err)
	}
}

func TestBlockDates_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      model.ManualBlockRequest
		wantCode string
	}{
		{name: "booking kind", req: model.ManualBlockRequest{Start: "2025-12-10", End: "2025-12-12", Kind: model.BlockHold}, wantCode: apperrors.CodeValidation},
		{name: "end before start", req: model.ManualBlockRequest{Start: "2025-12-12", End: "2025-12-10", Kind: model.BlockManual}, wantCode: apperrors.CodeValidation},
		{name: "bad color", req: model.ManualBlockRequest{Start: "2025-12-10", End: "2025-12-12", Kind: model.BlockManual, ColorCode: "red"}, wantCode: apperrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.BlockDates(ctx, "prop-1", &req)
			if apperrors.AsAppError(err).Code != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestUnblockDates_BookingBlock(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	id, err := repo.InsertBlock(ctx, &model.CalendarBlock{
		PropertyID: "prop-1", Range: mustRange(t, "2025-12-10", "2025-12-12"), Kind: model.BlockConfirmed, OwnerBookingID: "b-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.UnblockDates(ctx, "prop-1", id); apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

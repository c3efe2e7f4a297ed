package repository

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"staybook/internal/bookings/validator"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

func TestLoadSeed(t *testing.T) {
	v := validator.NewBookingValidator(logger.New(logger.Config{Level: "error", Output: io.Discard}))
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	seed := `{
		"properties": [{"id":"prop-1","title":"  Seaside   Loft ","base_price":25000,"currency":"KZT","cancellation_policy":"moderate","max_guests":4}],
		"settings": [{"property_id":"prop-1","default_price":0,"advance_notice_days":0,"booking_window_days":365,"auto_apply_seasonal":true}],
		"seasonal_rates": [
			{"property_id":"prop-1","range":{"start":"2025-12-20","end":"2026-01-10"},"price_per_night":45000,"min_nights":3,"priority":10},
			{"property_id":"prop-1","range":{"start":"2025-12-20","end":"2026-01-10"},"price_per_night":50000,"priority":10}
		]
	}`

	repo := NewMemoryCatalogRepository()
	if err := repo.Load(strings.NewReader(seed), v, now); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx := context.Background()
	p, err := repo.GetProperty(ctx, "prop-1")
	if err != nil || p.BasePrice != 25000 || p.CancellationPolicy != model.PolicyModerate {
		t.Fatalf("GetProperty() = %+v, %v", p, err)
	}
	if p.Title != "Seaside Loft" {
		t.Errorf("Title = %q, want normalized", p.Title)
	}

	dr, _ := model.ParseDateRange("2025-12-21", "2025-12-24")
	rates, err := repo.ListSeasonalRates(ctx, "prop-1", dr)
	if err != nil || len(rates) != 2 {
		t.Fatalf("ListSeasonalRates() = %d rates, %v", len(rates), err)
	}
	if !rates[1].CreatedAt.After(rates[0].CreatedAt) && !rates[0].CreatedAt.After(rates[1].CreatedAt) {
		t.Error("seeded rates should get distinct creation times")
	}
}

func TestLoadSeed_RejectsInvalid(t *testing.T) {
	v := validator.NewBookingValidator(logger.New(logger.Config{Level: "error", Output: io.Discard}))

	tests := []struct {
		name string
		seed string
	}{
		{name: "malformed", seed: `{"properties":`},
		{name: "unknown field", seed: `{"listings":[]}`},
		{name: "negative price", seed: `{"properties":[{"id":"p","base_price":-1}]}`},
		{name: "max below min", seed: `{"seasonal_rates":[{"property_id":"p","range":{"start":"2025-12-20","end":"2025-12-30"},"price_per_night":100,"min_nights":5,"max_nights":2}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryCatalogRepository()
			if err := repo.Load(strings.NewReader(tt.seed), v, time.Now()); err == nil {
				t.Error("expected error")
			}
			if _, err := repo.GetProperty(context.Background(), "p"); err == nil {
				t.Error("nothing may be stored from a rejected seed")
			}
		})
	}
}

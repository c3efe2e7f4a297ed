package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

// ────────────────────────────────────────────────
// Mock catalog for testing
// ────────────────────────────────────────────────

type mockCatalog struct {
	property *model.Property
	settings *model.CalendarSettings
	rates    []*model.SeasonalRate

	listRatesFunc func(ctx context.Context, propertyID string, r model.DateRange) ([]*model.SeasonalRate, error)
}

func (m *mockCatalog) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	if m.property == nil || m.property.ID != propertyID {
		return nil, bookingserrors.ErrPropertyNotFound
	}
	return m.property, nil
}

func (m *mockCatalog) GetSettings(ctx context.Context, propertyID string) (*model.CalendarSettings, error) {
	return m.settings, nil
}

func (m *mockCatalog) ListSeasonalRates(ctx context.Context, propertyID string, r model.DateRange) ([]*model.SeasonalRate, error) {
	if m.listRatesFunc != nil {
		return m.listRatesFunc(ctx, propertyID, r)
	}
	return m.rates, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxStayNights:   30,
		DefaultCurrency: "KZT",
		Log:             logger.New(logger.Config{Level: "error", Output: io.Discard}),
	}
}

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	r, err := model.ParseDateRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func holidayCatalog(t *testing.T) *mockCatalog {
	return &mockCatalog{
		property: &model.Property{ID: "prop-1", BasePrice: 25000, Currency: "KZT"},
		settings: &model.CalendarSettings{PropertyID: "prop-1", AutoApplySeasonal: true},
		rates: []*model.SeasonalRate{{
			ID:            "rate-holidays",
			PropertyID:    "prop-1",
			Range:         mustRange(t, "2025-12-20", "2026-01-08"),
			PricePerNight: 45000,
			MinNights:     3,
		}},
	}
}

// ────────────────────────────────────────────────
// Tests for ResolvePrice()
// ────────────────────────────────────────────────

func TestResolvePrice_SeasonalMinimumStay(t *testing.T) {
	svc := NewPricingService(holidayCatalog(t), testConfig())
	ctx := context.Background()

	quote, err := svc.ResolvePrice(ctx, "prop-1", mustRange(t, "2025-12-24", "2025-12-27"))
	if err != nil {
		t.Fatalf("ResolvePrice() error = %v", err)
	}
	if quote.Total != 135000 {
		t.Errorf("Total = %d, want 135000", quote.Total)
	}
	if quote.AppliedMinNights != 3 {
		t.Errorf("AppliedMinNights = %d, want 3", quote.AppliedMinNights)
	}
	if err := svc.ValidateStay(quote); err != nil {
		t.Errorf("ValidateStay() for 3 nights error = %v", err)
	}

	short, err := svc.ResolvePrice(ctx, "prop-1", mustRange(t, "2025-12-24", "2025-12-26"))
	if err != nil {
		t.Fatalf("ResolvePrice() error = %v", err)
	}
	err = svc.ValidateStay(short)
	if !errors.Is(err, bookingserrors.ErrNightsConstraint) {
		t.Errorf("ValidateStay() for 2 nights error = %v, want nights constraint", err)
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("ValidateStay() code = %s, want %s", appErr.Code, apperrors.CodeValidation)
	}
}

func TestResolvePrice_MixedNights(t *testing.T) {
	svc := NewPricingService(holidayCatalog(t), testConfig())

	quote, err := svc.ResolvePrice(context.Background(), "prop-1", mustRange(t, "2025-12-18", "2025-12-22"))
	if err != nil {
		t.Fatalf("ResolvePrice() error = %v", err)
	}

	want := []struct {
		price  int64
		source model.PriceSource
	}{
		{25000, model.PriceSourceBase},
		{25000, model.PriceSourceBase},
		{45000, model.PriceSourceSeasonal},
		{45000, model.PriceSourceSeasonal},
	}
	if len(quote.Nights) != len(want) {
		t.Fatalf("len(Nights) = %d, want %d", len(quote.Nights), len(want))
	}
	for i, w := range want {
		if quote.Nights[i].Price != w.price || quote.Nights[i].Source != w.source {
			t.Errorf("night %d = %+v, want %d/%s", i, quote.Nights[i], w.price, w.source)
		}
	}
	if quote.Total != 140000 {
		t.Errorf("Total = %d, want 140000", quote.Total)
	}
}

func TestResolvePrice_RatePrecedence(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	tests := []struct {
		name      string
		rates     []*model.SeasonalRate
		wantPrice int64
		wantRate  string
	}{
		{
			name: "higher priority wins",
			rates: []*model.SeasonalRate{
				{ID: "low", Priority: 1, PricePerNight: 30000, CreatedAt: newer},
				{ID: "high", Priority: 5, PricePerNight: 50000, CreatedAt: older},
			},
			wantPrice: 50000,
			wantRate:  "high",
		},
		{
			name: "tie goes to most recent",
			rates: []*model.SeasonalRate{
				{ID: "old", Priority: 2, PricePerNight: 30000, CreatedAt: older},
				{ID: "new", Priority: 2, PricePerNight: 35000, CreatedAt: newer},
			},
			wantPrice: 35000,
			wantRate:  "new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range tt.rates {
				r.PropertyID = "prop-1"
				r.Range = mustRange(t, "2025-07-01", "2025-08-01")
			}
			catalog := &mockCatalog{
				property: &model.Property{ID: "prop-1", BasePrice: 20000},
				settings: &model.CalendarSettings{PropertyID: "prop-1", AutoApplySeasonal: true},
				rates:    tt.rates,
			}
			quote, err := NewPricingService(catalog, testConfig()).ResolvePrice(context.Background(), "prop-1", mustRange(t, "2025-07-10", "2025-07-11"))
			if err != nil {
				t.Fatalf("ResolvePrice() error = %v", err)
			}
			if quote.Nights[0].Price != tt.wantPrice || quote.Nights[0].RateID != tt.wantRate {
				t.Errorf("night = %+v, want %d from %s", quote.Nights[0], tt.wantPrice, tt.wantRate)
			}
			if quote.Currency != "KZT" {
				t.Errorf("Currency = %q, want default KZT", quote.Currency)
			}
		})
	}
}

func TestResolvePrice_SeasonalDisabled(t *testing.T) {
	catalog := holidayCatalog(t)
	catalog.settings.AutoApplySeasonal = false
	catalog.settings.DefaultPrice = 27000
	catalog.listRatesFunc = func(ctx context.Context, propertyID string, r model.DateRange) ([]*model.SeasonalRate, error) {
		t.Error("seasonal rates should not be loaded when disabled")
		return nil, nil
	}

	quote, err := NewPricingService(catalog, testConfig()).ResolvePrice(context.Background(), "prop-1", mustRange(t, "2025-12-24", "2025-12-26"))
	if err != nil {
		t.Fatalf("ResolvePrice() error = %v", err)
	}
	if quote.Total != 54000 || quote.AppliedMinNights != 0 {
		t.Errorf("quote = %+v, want 2 nights at default price and no minimum", quote)
	}
}

func TestResolvePrice_MaxNights(t *testing.T) {
	catalog := holidayCatalog(t)
	catalog.rates = append(catalog.rates, &model.SeasonalRate{
		ID:            "short-stays",
		PropertyID:    "prop-1",
		Range:         mustRange(t, "2025-12-25", "2025-12-26"),
		PricePerNight: 60000,
		MaxNights:     5,
	})
	svc := NewPricingService(catalog, testConfig())

	quote, err := svc.ResolvePrice(context.Background(), "prop-1", mustRange(t, "2025-12-21", "2025-12-28"))
	if err != nil {
		t.Fatalf("ResolvePrice() error = %v", err)
	}
	if quote.AppliedMinNights != 3 || quote.AppliedMaxNights != 5 {
		t.Errorf("applied constraint = %d..%d, want 3..5", quote.AppliedMinNights, quote.AppliedMaxNights)
	}
	if err := svc.ValidateStay(quote); !errors.Is(err, bookingserrors.ErrNightsConstraint) {
		t.Errorf("ValidateStay() for 7 nights error = %v, want nights constraint", err)
	}

	long, _ := svc.ResolvePrice(context.Background(), "prop-1", mustRange(t, "2025-03-01", "2025-04-05"))
	if long.AppliedMaxNights != 30 {
		t.Errorf("AppliedMaxNights = %d, want global cap 30", long.AppliedMaxNights)
	}
}

func TestResolvePrice_Errors(t *testing.T) {
	svc := NewPricingService(holidayCatalog(t), testConfig())

	_, err := svc.ResolvePrice(context.Background(), "missing", mustRange(t, "2025-12-24", "2025-12-27"))
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("missing property code = %s, want %s", appErr.Code, apperrors.CodeNotFound)
	}

	day := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	_, err = svc.ResolvePrice(context.Background(), "prop-1", model.DateRange{Start: day, End: day})
	if !errors.Is(err, bookingserrors.ErrPolicyViolation) {
		t.Errorf("empty range error = %v, want policy violation", err)
	}
}

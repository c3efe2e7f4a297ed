package service

import (
	"context"
	"errors"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/calendar/conflict"
	"staybook/internal/pricing/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
)

type PricingService interface {
	// ResolvePrice loads the catalog for propertyID and prices every night of r.
	ResolvePrice(ctx context.Context, propertyID string, r model.DateRange) (*model.Quote, error)
	// QuoteFor prices r for an already loaded property. settings may be nil.
	QuoteFor(ctx context.Context, property *model.Property, settings *model.CalendarSettings, r model.DateRange) (*model.Quote, error)
	// ValidateStay checks the quoted stay length against its applied nights constraint.
	ValidateStay(quote *model.Quote) error
}

type pricingService struct {
	catalog repository.CatalogRepository
	cfg     *config.Config
}

func NewPricingService(catalog repository.CatalogRepository, cfg *config.Config) PricingService {
	return &pricingService{
		catalog: catalog,
		cfg:     cfg,
	}
}

func (s *pricingService) ResolvePrice(ctx context.Context, propertyID string, r model.DateRange) (*model.Quote, error) {
	if propertyID == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}
	if err := conflict.CheckRange(r); err != nil {
		return nil, toAppError(err)
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

	return s.QuoteFor(ctx, property, settings, r)
}

func (s *pricingService) QuoteFor(ctx context.Context, property *model.Property, settings *model.CalendarSettings, r model.DateRange) (*model.Quote, error) {
	if settings == nil {
		settings = model.DefaultCalendarSettings(property.ID)
	}

	var rates []*model.SeasonalRate
	if settings.AutoApplySeasonal {
		var err error
		rates, err = s.catalog.ListSeasonalRates(ctx, property.ID, r)
		if err != nil {
			s.cfg.Log.Error("Failed to load seasonal rates", "property_id", property.ID, "error", err)
			return nil, apperrors.Internal("Failed to load seasonal rates", err)
		}
	}

	quote := resolve(property, settings, rates, r)
	quote.AppliedMaxNights = tighterMax(quote.AppliedMaxNights, s.cfg.MaxStayNights)
	if quote.Currency == "" {
		quote.Currency = s.cfg.DefaultCurrency
	}
	return quote, nil
}

func (s *pricingService) ValidateStay(quote *model.Quote) error {
	err := conflict.CheckNights(quote.Range.Nights(), quote.AppliedMinNights, quote.AppliedMaxNights)
	if err != nil {
		return toAppError(err)
	}
	return nil
}

func toAppError(err error) error {
	if f, ok := conflict.AsFailure(err); ok {
		return f.AppError()
	}
	return err
}

// resolve prices each night with the best covering rate, falling back to the
// property's default price. The nights constraint is the most restrictive
// combination over every rate covering any night of r.
func resolve(property *model.Property, settings *model.CalendarSettings, rates []*model.SeasonalRate, r model.DateRange) *model.Quote {
	defaultPrice := settings.DefaultPrice
	if defaultPrice == 0 {
		defaultPrice = property.BasePrice
	}

	quote := &model.Quote{
		PropertyID: property.ID,
		Range:      r,
		Currency:   property.Currency,
	}

	for _, day := range r.Days() {
		night := model.NightPrice{
			Date:   day.Format(model.DateLayout),
			Price:  defaultPrice,
			Source: model.PriceSourceBase,
		}

		var best *model.SeasonalRate
		for _, rate := range rates {
			if !rate.Range.Contains(day) {
				continue
			}
			quote.AppliedMinNights = max(quote.AppliedMinNights, rate.MinNights)
			quote.AppliedMaxNights = tighterMax(quote.AppliedMaxNights, rate.MaxNights)
			if best == nil || rate.Outranks(best) {
				best = rate
			}
		}

		if best != nil {
			night.Price = best.PricePerNight
			night.Source = model.PriceSourceSeasonal
			night.RateID = best.ID
			night.MinNights = best.MinNights
			night.MaxNights = best.MaxNights
		}

		quote.Nights = append(quote.Nights, night)
		quote.Total += night.Price
	}

	return quote
}

// tighterMax returns the smaller non-zero bound; zero means unbounded.
func tighterMax(a, b int) int {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	default:
		return min(a, b)
	}
}

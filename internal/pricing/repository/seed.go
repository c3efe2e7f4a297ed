package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"staybook/internal/bookings/validator"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
)

// Seed is the JSON document the in-memory catalog can be loaded from.
type Seed struct {
	Properties    []*model.Property         `json:"properties"`
	Settings      []*model.CalendarSettings `json:"settings"`
	SeasonalRates []*model.SeasonalRate     `json:"seasonal_rates"`
}

// Load validates every record of the seed before storing any of them.
func (r *MemoryCatalogRepository) Load(src io.Reader, v *validator.BookingValidator, now time.Time) error {
	var seed Seed
	decoder := json.NewDecoder(src)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&seed); err != nil {
		return fmt.Errorf("failed to decode catalog seed: %w", err)
	}

	for _, p := range seed.Properties {
		p.Title = sanitizer.NormalizeName(p.Title)
		if err := v.ValidateProperty(p); err != nil {
			return fmt.Errorf("property %q: %w", p.ID, err)
		}
	}
	for _, s := range seed.Settings {
		if err := v.ValidateSettings(s); err != nil {
			return fmt.Errorf("settings %q: %w", s.PropertyID, err)
		}
	}
	for i, rate := range seed.SeasonalRates {
		rate.Description = sanitizer.TrimAndNormalize(rate.Description)
		if err := v.ValidateSeasonalRate(rate); err != nil {
			return fmt.Errorf("seasonal rate #%d: %w", i, err)
		}
	}

	for _, p := range seed.Properties {
		r.PutProperty(p)
	}
	for _, s := range seed.Settings {
		r.PutSettings(s)
	}
	for i, rate := range seed.SeasonalRates {
		if rate.CreatedAt.IsZero() {
			// Later entries win priority ties, as if created later.
			rate.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		}
		r.PutSeasonalRate(rate)
	}
	return nil
}

func (r *MemoryCatalogRepository) LoadFile(path string, v *validator.BookingValidator, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog seed: %w", err)
	}
	defer f.Close()
	return r.Load(f, v, now)
}

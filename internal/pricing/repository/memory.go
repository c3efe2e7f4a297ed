package repository

import (
	"context"
	"sync"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

// MemoryCatalogRepository is a catalog held in process. The Put methods seed it.
type MemoryCatalogRepository struct {
	mu         sync.RWMutex
	properties map[string]*model.Property
	settings   map[string]*model.CalendarSettings
	rates      map[string][]*model.SeasonalRate
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		properties: make(map[string]*model.Property),
		settings:   make(map[string]*model.CalendarSettings),
		rates:      make(map[string][]*model.SeasonalRate),
	}
}

func (r *MemoryCatalogRepository) PutProperty(p *model.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.properties[p.ID] = &cp
}

func (r *MemoryCatalogRepository) PutSettings(s *model.CalendarSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings[s.PropertyID] = &cp
}

func (r *MemoryCatalogRepository) PutSeasonalRate(rate *model.SeasonalRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	cp := *rate
	r.rates[rate.PropertyID] = append(r.rates[rate.PropertyID], &cp)
}

func (r *MemoryCatalogRepository) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[propertyID]
	if !ok {
		return nil, bookingserrors.ErrPropertyNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryCatalogRepository) GetSettings(ctx context.Context, propertyID string) (*model.CalendarSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[propertyID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryCatalogRepository) ListSeasonalRates(ctx context.Context, propertyID string, dr model.DateRange) ([]*model.SeasonalRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.SeasonalRate
	for _, rate := range r.rates[propertyID] {
		if rate.Range.Overlaps(dr) {
			cp := *rate
			out = append(out, &cp)
		}
	}
	return out, nil
}

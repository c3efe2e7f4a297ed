package repository

import (
	"context"
	"staybook/pkg/model"
)

const (
	PropertiesCollectionName    = "Properties"
	SettingsCollectionName      = "Calendar_settings"
	SeasonalRatesCollectionName = "Seasonal_rates"
)

// CatalogRepository is the read side of the property catalog.
type CatalogRepository interface {
	GetProperty(ctx context.Context, propertyID string) (*model.Property, error)
	// GetSettings returns nil without error when the property has no settings record.
	GetSettings(ctx context.Context, propertyID string) (*model.CalendarSettings, error)
	ListSeasonalRates(ctx context.Context, propertyID string, r model.DateRange) ([]*model.SeasonalRate, error)
}

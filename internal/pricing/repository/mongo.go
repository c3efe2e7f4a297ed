package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCatalogRepository struct {
	cfg        *config.Config
	properties *mongo.Collection
	settings   *mongo.Collection
	rates      *mongo.Collection
}

func NewMongoCatalogRepository(cfg *config.Config) CatalogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCatalogRepository{
		cfg:        cfg,
		properties: db.Collection(PropertiesCollectionName),
		settings:   db.Collection(SettingsCollectionName),
		rates:      db.Collection(SeasonalRatesCollectionName),
	}
}

func (r *mongoCatalogRepository) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var property model.Property
	err := r.properties.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return &property, nil
}

func (r *mongoCatalogRepository) GetSettings(ctx context.Context, propertyID string) (*model.CalendarSettings, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var settings model.CalendarSettings
	err := r.settings.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find calendar settings: %w", err)
	}
	return &settings, nil
}

func (r *mongoCatalogRepository) ListSeasonalRates(ctx context.Context, propertyID string, dr model.DateRange) ([]*model.SeasonalRate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"property_id": propertyID,
		"range.start": bson.M{"$lt": dr.End},
		"range.end":   bson.M{"$gt": dr.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: -1}})

	cursor, err := r.rates.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find seasonal rates: %w", err)
	}
	defer cursor.Close(ctx)

	var rates []*model.SeasonalRate
	if err = cursor.All(ctx, &rates); err != nil {
		return nil, fmt.Errorf("failed to decode seasonal rates: %w", err)
	}
	return rates, nil
}

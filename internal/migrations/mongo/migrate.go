package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingrepo "staybook/internal/bookings/repository"
	calendarrepo "staybook/internal/calendar/repository"
	"staybook/internal/migrations/mongo/validators"
	pricingrepo "staybook/internal/pricing/repository"
	"staybook/pkg/logger"
)

// Collection describes one collection the engine owns.
type Collection struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "property_id", Value: 1},
			{Key: "range.start", Value: 1},
			{Key: "created_at", Value: 1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "hold_expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.start", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.end", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "payment_status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	CalendarBlocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "property_id", Value: 1},
			{Key: "range.start", Value: 1},
			{Key: "range.end", Value: 1},
		}},
		{Keys: bson.D{{Key: "owner_booking_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	// Locks left behind by a crashed writer are removed by the TTL monitor;
	// acquisition also takes over expired locks without waiting for it.
	PropertyLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}

	SeasonalRatesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "property_id", Value: 1},
			{Key: "range.start", Value: 1},
			{Key: "range.end", Value: 1},
		}},
	}
)

func Collections() []Collection {
	return []Collection{
		{Name: bookingrepo.CollectionName, Validator: validators.BookingValidator, Indexes: BookingsIndexes},
		{Name: calendarrepo.BlocksCollectionName, Validator: validators.CalendarBlockValidator, Indexes: CalendarBlocksIndexes},
		{Name: calendarrepo.LocksCollectionName, Validator: validators.PropertyLockValidator, Indexes: PropertyLocksIndexes},
		{Name: pricingrepo.PropertiesCollectionName, Validator: validators.PropertyValidator},
		{Name: pricingrepo.SettingsCollectionName, Validator: validators.CalendarSettingsValidator},
		{Name: pricingrepo.SeasonalRatesCollectionName, Validator: validators.SeasonalRateValidator, Indexes: SeasonalRatesIndexes},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}

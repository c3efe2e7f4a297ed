package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	NextID() string
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByProperty(ctx context.Context, propertyID string, dr *model.DateRange, limit int, offset int64) ([]*model.Booking, error)
	CountByProperty(ctx context.Context, propertyID string, dr *model.DateRange) (int64, error)
	// Transition applies change only if the stored booking still matches its
	// precondition. It returns ErrStatusChanged when it does not.
	Transition(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error)
	// SetPayment records payment details on a booking that is still pending payment.
	SetPayment(ctx context.Context, id string, paymentID string, status model.PaymentStatus) (*model.Booking, error)
	// RecordLatePayment notes a payment that reached a booking in status after it
	// could no longer be confirmed. It returns ErrStatusChanged when the booking
	// left status or already carries the payment.
	RecordLatePayment(ctx context.Context, id string, status model.BookingStatus, paymentID string, at time.Time) (*model.Booking, error)
	// MarkReminderSent stamps a confirmed booking once; later calls return ErrStatusChanged.
	MarkReminderSent(ctx context.Context, id string, at time.Time) (*model.Booking, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	// FindStartingStays lists confirmed stays whose check-in date is on or before today.
	FindStartingStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error)
	// FindUpcomingStays lists confirmed, not yet reminded stays that check in on day.
	FindUpcomingStays(ctx context.Context, day time.Time, limit int) ([]*model.Booking, error)
	FindFinishedStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error)
	FindAwaitingPayment(ctx context.Context, limit int) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) NextID() string {
	return primitive.NewObjectID().Hex()
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = r.NextID()
	}
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByProperty(
	ctx context.Context,
	propertyID string,
	dr *model.DateRange,
	limit int, offset int64,
) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "range.start", Value: 1}, {Key: "created_at", Value: 1}})

	return r.find(ctx, buildPropertyFilter(propertyID, dr), opts)
}

func (r *mongoBookingRepository) CountByProperty(ctx context.Context, propertyID string, dr *model.DateRange) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildPropertyFilter(propertyID, dr))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildPropertyFilter(propertyID string, dr *model.DateRange) bson.M {
	filter := bson.M{"property_id": propertyID}
	if dr != nil {
		filter["range.start"] = bson.M{"$lt": dr.End}
		filter["range.end"] = bson.M{"$gt": dr.Start}
	}
	return filter
}

func (r *mongoBookingRepository) Transition(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": change.From}
	if change.RequireHoldLive {
		filter["hold_expires_at"] = bson.M{"$gt": change.At}
	}
	if change.RequireHoldExpired {
		filter["hold_expires_at"] = bson.M{"$lte": change.At}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, transitionUpdate(change), opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, bookingserrors.ErrStatusChanged
}

// transitionUpdate mirrors StatusChange.ApplyTo as a Mongo update document.
func transitionUpdate(c model.StatusChange) bson.M {
	set := bson.M{
		"status":     c.To,
		"updated_at": c.At,
	}
	unset := bson.M{}

	if c.From == model.StatusPendingPayment {
		unset["hold_expires_at"] = ""
	}
	if c.PaymentID != "" {
		set["payment_id"] = c.PaymentID
	}
	if c.PaymentStatus != model.PaymentStatusNone {
		set["payment_status"] = c.PaymentStatus
	}

	switch c.To {
	case model.StatusConfirmed:
		set["confirmed_at"] = c.At
	case model.StatusInProgress:
		set["checked_in_at"] = c.At
	case model.StatusCompleted:
		set["completed_at"] = c.At
	case model.StatusExpired:
		set["expired_at"] = c.At
	case model.StatusCancelledByGuest, model.StatusCancelledByHost:
		set["cancelled_at"] = c.At
		set["cancelled_by"] = c.CancelledBy
		set["cancel_reason"] = c.CancelReason
		set["cancellation_fee"] = c.CancellationFee
		set["refund_amount"] = c.RefundAmount
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (r *mongoBookingRepository) SetPayment(ctx context.Context, id string, paymentID string, status model.PaymentStatus) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"payment_status": status,
		"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
	}
	if paymentID != "" {
		set["payment_id"] = paymentID
	}

	return r.updateWhere(ctx, id,
		bson.M{"_id": id, "status": model.StatusPendingPayment},
		bson.M{"$set": set},
		"record payment",
	)
}

func (r *mongoBookingRepository) RecordLatePayment(ctx context.Context, id string, status model.BookingStatus, paymentID string, at time.Time) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.updateWhere(ctx, id,
		bson.M{"_id": id, "status": status, "late_payment_ids": bson.M{"$ne": paymentID}},
		bson.M{
			"$addToSet": bson.M{"late_payment_ids": paymentID},
			"$set":      bson.M{"updated_at": at},
		},
		"record late payment",
	)
}

func (r *mongoBookingRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.updateWhere(ctx, id,
		bson.M{"_id": id, "status": model.StatusConfirmed, "reminder_sent_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"reminder_sent_at": at, "updated_at": at}},
		"mark reminder",
	)
}

// updateWhere applies update to the booking matching filter. A booking that
// exists but no longer matches yields ErrStatusChanged.
func (r *mongoBookingRepository) updateWhere(ctx context.Context, id string, filter, update bson.M, op string) (*model.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, bookingserrors.ErrStatusChanged
}

func (r *mongoBookingRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":          model.StatusPendingPayment,
		"hold_expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "hold_expires_at", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindStartingStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":      model.StatusConfirmed,
		"range.start": bson.M{"$lte": today},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "range.start", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindUpcomingStays(ctx context.Context, day time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":           model.StatusConfirmed,
		"range.start":      day,
		"reminder_sent_at": bson.M{"$exists": false},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindFinishedStays(ctx context.Context, today time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":    model.StatusInProgress,
		"range.end": bson.M{"$lte": today},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "range.end", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) FindAwaitingPayment(ctx context.Context, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":         model.StatusPendingPayment,
		"payment_id":     bson.M{"$exists": true, "$ne": ""},
		"payment_status": model.PaymentStatusPending,
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "hold_expires_at", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

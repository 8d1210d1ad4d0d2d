package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"visapoint/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements Repository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

// Insert stores a new booking document.
func (repo *MongoBookingRepo) Insert(ctx context.Context, booking *models.Booking) error {
	if _, err := repo.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking document by ID.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	filter := bson.M{"id": id}
	if err := repo.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching booking with id %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateStatus transitions a booking between statuses. The filter matches on
// the expected current status, so a lost race simply yields matched=false.
func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, id, from, to string, paymentID string) (bool, error) {
	filter := bson.M{"id": id, "status": from}
	set := bson.M{"status": to}
	if paymentID != "" {
		set["payment_id"] = paymentID
	}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("error updating booking %s: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

// FindOverlapping returns all non-cancelled bookings whose interval
// intersects [start, end): stored.start < end AND stored.end > start.
// The end instant is denormalized at query time from start + duration.
func (repo *MongoBookingRepo) FindOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status": bson.M{"$ne": models.BookingStatusCancelled},
			"start":  bson.M{"$lt": end},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"computed_end": bson.M{"$dateAdd": bson.M{
				"startDate": "$start",
				"unit":      "minute",
				"amount":    "$duration_minutes",
			}},
		}}},
		{{Key: "$match", Value: bson.M{
			"computed_end": bson.M{"$gt": start},
		}}},
		{{Key: "$sort", Value: bson.M{"start": 1}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error finding overlapping bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding overlapping bookings: %w", err)
	}
	return bookings, nil
}

// FindByOwner returns the non-cancelled bookings assigned to a staff member,
// ascending by start time.
func (repo *MongoBookingRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	filter := bson.M{
		"staff_id": ownerID,
		"status":   bson.M{"$ne": models.BookingStatusCancelled},
	}
	return repo.find(ctx, filter)
}

// FindByDateRange returns the non-cancelled bookings starting within
// [start, end), ascending by start time.
func (repo *MongoBookingRepo) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"start":  bson.M{"$gte": start, "$lt": end},
		"status": bson.M{"$ne": models.BookingStatusCancelled},
	}
	return repo.find(ctx, filter)
}

func (repo *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.M{"start": 1})
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

// CancelPendingBefore sweeps pending bookings that never received their
// confirming webhook, so abandoned checkouts stop blocking availability.
func (repo *MongoBookingRepo) CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":     models.BookingStatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"status": models.BookingStatusCancelled}}
	res, err := repo.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("error expiring pending bookings: %w", err)
	}
	return res.ModifiedCount, nil
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ridehail/control-plane/shared/database"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
)

// MongoTripRepository implements Repository on top of
// shared/database.MongoRepository's FindOneAndUpdate primitive, the
// compare-and-set building block every versioned-entity repository in
// this module is meant to share.
type MongoTripRepository struct {
	repo *database.MongoRepository
	log  *logger.Logger
}

// NewMongoTripRepository creates a MongoTripRepository backed by db's
// "trips" collection.
func NewMongoTripRepository(db *database.MongoDB, log *logger.Logger) *MongoTripRepository {
	repo := database.NewMongoRepository(db, "trips", log)
	return &MongoTripRepository{repo: repo, log: log}
}

// EnsureIndexes creates the unique index on trip_request_id that backs
// CreateTrip's idempotency and the "exactly one Trip per TripRequest"
// invariant.
func (r *MongoTripRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.repo.CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "trip_request_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts trip at version 1. A duplicate trip_request_id is
// reported as a version conflict: the uniqueness invariant and the
// optimistic-concurrency invariant are the same failure mode from the
// caller's point of view (the document they expected to create no
// longer matches what they hold).
func (r *MongoTripRepository) Create(ctx context.Context, trip *models.Trip) error {
	_, err := r.repo.InsertOne(ctx, trip)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrVersionConflict, "trip", "a trip already exists for this trip_request_id")
		}
		return err
	}
	return nil
}

// FindByID returns the Trip with the given id.
func (r *MongoTripRepository) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := r.repo.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.New(apperrors.ErrNotFound, "trip", id)
		}
		return nil, err
	}
	return &trip, nil
}

// FindByTripRequestID returns the Trip created for tripRequestID, if any.
func (r *MongoTripRepository) FindByTripRequestID(ctx context.Context, tripRequestID string) (*models.Trip, error) {
	var trip models.Trip
	err := r.repo.FindOne(ctx, bson.M{"trip_request_id": tripRequestID}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.New(apperrors.ErrNotFound, "trip", tripRequestID)
		}
		return nil, err
	}
	return &trip, nil
}

// CompareAndSwap persists trip's current fields, filtered on
// {_id, version: expectedVersion}. When no document matches the filter,
// the trip is re-read by id: if it does not exist, that lookup's error
// is returned; otherwise its version has moved since the caller's read
// and the result is a version conflict.
func (r *MongoTripRepository) CompareAndSwap(ctx context.Context, trip *models.Trip, expectedVersion int) error {
	filter := bson.M{"_id": trip.ID, "version": expectedVersion}
	update := bson.M{"$set": bson.M{
		"status":     trip.Status,
		"version":    trip.Version,
		"updated_at": trip.UpdatedAt,
	}}

	result := r.repo.FindOneAndUpdate(ctx, filter, update)
	var updated models.Trip
	if err := result.Decode(&updated); err != nil {
		if err != mongo.ErrNoDocuments {
			return err
		}
		if _, findErr := r.FindByID(ctx, trip.ID); findErr != nil {
			return findErr
		}
		return apperrors.New(apperrors.ErrVersionConflict, "trip", trip.ID)
	}
	return nil
}

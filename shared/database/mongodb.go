package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ridehail/control-plane/shared/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB represents a MongoDB database connection.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *logger.Logger
}

// NewMongoDB connects to the database named dbName at uri. The caller
// passes its own connection string (no shared monolithic config type);
// trip-service is the only service that connects to MongoDB.
func NewMongoDB(ctx context.Context, uri, dbName string, log *logger.Logger) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(connectCtx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(dbName)

	log.WithFields(logger.Fields{"database": dbName}).Info("connected to MongoDB database")

	return &MongoDB{
		Client:   client,
		Database: database,
		logger:   log,
	}, nil
}

// Close closes the MongoDB connection.
func (m *MongoDB) Close(ctx context.Context) error {
	if m.Client != nil {
		m.logger.Logger.Info("closing MongoDB database connection")
		return m.Client.Disconnect(ctx)
	}
	return nil
}

// Health checks the MongoDB health.
func (m *MongoDB) Health(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Collection returns a collection handle.
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// WithTransaction executes fn within a MongoDB transaction. No service
// in this module calls it; TripService's CreateTrip writes the trip
// document without a transaction.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	session, err := m.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	m.logger.WithContext(ctx).Debug("MongoDB transaction started")

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})

	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Error("MongoDB transaction failed")
		return err
	}

	m.logger.WithContext(ctx).Debug("MongoDB transaction completed")
	return nil
}

// MongoRepository provides common MongoDB operations shared by every
// entity repository built on top of it.
type MongoRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

// NewMongoRepository creates a new MongoDB repository.
func NewMongoRepository(db *MongoDB, collectionName string, log *logger.Logger) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection(collectionName),
		logger:     log,
	}
}

// Collection exposes the underlying collection for entity repositories
// that need operations (FindOneAndUpdate, compound indexes) this wrapper
// doesn't cover.
func (r *MongoRepository) Collection() *mongo.Collection {
	return r.collection
}

// InsertOne inserts a single document.
func (r *MongoRepository) InsertOne(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
	start := time.Now()
	result, err := r.collection.InsertOne(ctx, document)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "InsertOne", duration, err)
	return result, err
}

// FindOne finds a single document.
func (r *MongoRepository) FindOne(ctx context.Context, filter interface{}) *mongo.SingleResult {
	start := time.Now()
	result := r.collection.FindOne(ctx, filter)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "FindOne", duration, nil)
	return result
}

// Find finds multiple documents.
func (r *MongoRepository) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	cursor, err := r.collection.Find(ctx, filter, opts...)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "Find", duration, err)
	return cursor, err
}

// UpdateOne updates a single document.
func (r *MongoRepository) UpdateOne(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error) {
	start := time.Now()
	result, err := r.collection.UpdateOne(ctx, filter, update)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "UpdateOne", duration, err)
	return result, err
}

// FindOneAndUpdate atomically applies update to the single document
// matching filter and returns the pre- or post-update document per opts.
// This is the primitive every compare-and-swap repository method in this
// module is built on.
func (r *MongoRepository) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	start := time.Now()
	result := r.collection.FindOneAndUpdate(ctx, filter, update, opts...)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "FindOneAndUpdate", duration, nil)
	return result
}

// DeleteOne deletes a single document.
func (r *MongoRepository) DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	start := time.Now()
	result, err := r.collection.DeleteOne(ctx, filter)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "DeleteOne", duration, err)
	return result, err
}

// CountDocuments counts documents matching a filter.
func (r *MongoRepository) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	start := time.Now()
	count, err := r.collection.CountDocuments(ctx, filter)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "CountDocuments", duration, err)
	return count, err
}

// CreateIndex creates an index on the collection.
func (r *MongoRepository) CreateIndex(ctx context.Context, model mongo.IndexModel) (string, error) {
	start := time.Now()
	name, err := r.collection.Indexes().CreateOne(ctx, model)
	duration := time.Since(start)

	r.logger.LogDatabaseQuery(ctx, "CreateIndex", duration, err)
	return name, err
}

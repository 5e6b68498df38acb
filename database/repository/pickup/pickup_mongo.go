package pickupRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bottlebank/database"
	"bottlebank/models"
)

// MongoPickupRepo implements PickupRepository using MongoDB.
type MongoPickupRepo struct {
	coll *mongo.Collection
}

// NewMongoPickupRepo creates a new instance of PickupRepository using MongoDB.
func NewMongoPickupRepo() PickupRepository {
	repo := &MongoPickupRepo{coll: database.Collection("pickups")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create pickup indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPickupRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "jobId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "collectorId", Value: 1}, {Key: "completedAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new pickup record.
func (r *MongoPickupRepo) Create(ctx context.Context, rec *models.PickupRecord) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to create pickup record: %w", err)
	}
	return nil
}

// GetByJobID retrieves the record for a completed job, or nil.
func (r *MongoPickupRepo) GetByJobID(ctx context.Context, jobID string) (*models.PickupRecord, error) {
	var rec models.PickupRecord
	if err := r.coll.FindOne(ctx, bson.M{"jobId": jobID}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pickup record for job %s: %w", jobID, err)
	}
	return &rec, nil
}

// ListByCollector retrieves a collector's history, newest first.
func (r *MongoPickupRepo) ListByCollector(ctx context.Context, collectorID string) ([]models.PickupRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"collectorId": collectorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pickup records for %s: %w", collectorID, err)
	}
	defer cursor.Close(ctx)

	var records []models.PickupRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode pickup records: %w", err)
	}
	return records, nil
}

// ListAll retrieves every pickup record.
func (r *MongoPickupRepo) ListAll(ctx context.Context) ([]models.PickupRecord, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pickup records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.PickupRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode pickup records: %w", err)
	}
	return records, nil
}

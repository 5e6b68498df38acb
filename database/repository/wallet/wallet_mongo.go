package walletRepo

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

// MongoWalletRepo implements WalletRepository using MongoDB.
type MongoWalletRepo struct {
	coll *mongo.Collection
}

// NewMongoWalletRepo creates a new instance of WalletRepository using MongoDB.
func NewMongoWalletRepo() WalletRepository {
	repo := &MongoWalletRepo{coll: database.Collection("wallets")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create wallet indexes: %v\n", err)
	}
	return repo
}

func (r *MongoWalletRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Append adds a transaction to the ledger.
func (r *MongoWalletRepo) Append(ctx context.Context, txn *models.WalletTransaction) error {
	if _, err := r.coll.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's transactions, newest first.
func (r *MongoWalletRepo) ListByUser(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions for %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var txns []models.WalletTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("failed to decode wallet transactions: %w", err)
	}
	return txns, nil
}

// ListAll retrieves every transaction.
func (r *MongoWalletRepo) ListAll(ctx context.Context) ([]models.WalletTransaction, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txns []models.WalletTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("failed to decode wallet transactions: %w", err)
	}
	return txns, nil
}

package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

const (
	// ActivityCollectionName is the name of the transaction read model collection in MongoDB
	ActivityCollectionName = "transaction_activity"
)

// ActivityRepository implements the ledger.ActivityRepository interface for MongoDB.
// Documents are snapshots of Postgres ledger rows, keyed by transaction_id.
type ActivityRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) ledger.ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// IndexModels returns the indexes the activity collection relies on. The unique
// transaction_id index is what turns a stale upsert into a duplicate key error.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_transaction_id"),
		},
		{
			Keys:    bson.D{{Key: "card_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_card_created_at"),
		},
	}
}

// Upsert replaces the snapshot of a transaction unless a newer one is already stored.
// Snapshots older than the stored document are dropped silently.
func (r *ActivityRepository) Upsert(ctx context.Context, txn *ledger.Transaction) error {
	collection := r.db.Collection(ActivityCollectionName)

	filter := bson.M{
		"transaction_id": txn.ID,
		"updated_at":     bson.M{"$lte": txn.UpdatedAt},
	}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, txn, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipping stale activity snapshot",
				"transaction_id", txn.ID.String(),
				"updated_at", txn.UpdatedAt)
			return nil
		}
		r.logger.Error("Failed to upsert transaction activity",
			"transaction_id", txn.ID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert transaction activity: %w", err)
	}

	return nil
}

// GetByCardID retrieves paginated activity for a card, newest first.
// An empty status returns both approved and declined rows.
func (r *ActivityRepository) GetByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, limit, offset int) ([]*ledger.Transaction, error) {
	collection := r.db.Collection(ActivityCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, cardFilter(cardID, status), opts)
	if err != nil {
		r.logger.Error("Failed to get transaction activity",
			"card_id", cardID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get transaction activity: %w", err)
	}
	defer cursor.Close(ctx)

	transactions := make([]*ledger.Transaction, 0)
	if err := cursor.All(ctx, &transactions); err != nil {
		r.logger.Error("Failed to decode transaction activity",
			"card_id", cardID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode transaction activity: %w", err)
	}

	return transactions, nil
}

// CountByCardID counts the activity documents of a card
func (r *ActivityRepository) CountByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus) (int64, error) {
	collection := r.db.Collection(ActivityCollectionName)

	count, err := collection.CountDocuments(ctx, cardFilter(cardID, status))
	if err != nil {
		r.logger.Error("Failed to count transaction activity",
			"card_id", cardID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count transaction activity: %w", err)
	}

	return count, nil
}

func cardFilter(cardID uuid.UUID, status shared.TransactionStatus) bson.M {
	filter := bson.M{"card_id": cardID}
	if status != "" {
		filter["status"] = status
	}
	return filter
}

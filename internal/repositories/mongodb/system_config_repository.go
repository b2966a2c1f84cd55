package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SystemConfigRepository implements the repositories.SystemConfigRepository interface
type SystemConfigRepository struct {
	collection *mongo.Collection
}

// NewSystemConfigRepository creates a new SystemConfigRepository
func NewSystemConfigRepository(db *mongo.Database) repositories.SystemConfigRepository {
	return &SystemConfigRepository{
		collection: db.Collection(SystemConfigCollection),
	}
}

// FindByKey finds a system configuration by key.
// Note: The Value field is interface{}, so the caller needs to perform type assertion.
func (r *SystemConfigRepository) FindByKey(ctx context.Context, key string) (*models.SystemConfig, error) {
	var config models.SystemConfig
	err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&config)
	if err != nil {
		return nil, translate(err)
	}
	return &config, nil
}

// UpsertByKey updates a system configuration by key, or creates it if it doesn't exist.
func (r *SystemConfigRepository) UpsertByKey(ctx context.Context, key string, value interface{}, description, updatedBy string) error {
	now := time.Now().UTC()
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"value":       value,
			"description": description,
			"updatedBy":   updatedBy,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"key":       key,
			"createdAt": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert system config for key %s: %w", key, err)
	}
	return nil
}

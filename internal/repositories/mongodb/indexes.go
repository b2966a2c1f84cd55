package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	RafflesCollection      = "raffles"
	TicketsCollection      = "tickets"
	WinnersCollection      = "winners"
	AdminUsersCollection   = "admin_users"
	SystemConfigCollection = "system_config"
)

// EnsureIndexes creates the indexes the repositories rely on. The partial
// unique index on tickets is what makes double-selling a number impossible
// even without transactions: failed tickets set active=false and drop out of it.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		TicketsCollection: {
			{
				Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "ticketNumber", Value: 1}},
				Options: options.Index().
					SetName("uniq_active_number").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"active": true}),
			},
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}, {Key: "purchasedAt", Value: 1}}},
			{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "purchasedAt", Value: -1}}},
		},
		WinnersCollection: {
			{Keys: bson.D{{Key: "raffleId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "drawDate", Value: -1}}},
		},
		RafflesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		AdminUsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		SystemConfigCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

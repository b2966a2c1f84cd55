package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RaffleRepository implements the repositories.RaffleRepository interface
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) repositories.RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection(RafflesCollection),
	}
}

// Create creates a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	raffle.CreatedAt = time.Now().UTC()
	raffle.UpdatedAt = raffle.CreatedAt
	res, err := r.collection.InsertOne(ctx, raffle)
	if err != nil {
		return err
	}
	raffle.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle)
	if err != nil {
		return nil, translate(err)
	}
	return &raffle, nil
}

// FindAll finds raffles, optionally filtered by status, newest first
func (r *RaffleRepository) FindAll(ctx context.Context, status models.RaffleStatus) ([]*models.Raffle, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raffles []*models.Raffle
	if err := cursor.All(ctx, &raffles); err != nil {
		return nil, fmt.Errorf("failed to decode raffles: %w", err)
	}
	if raffles == nil {
		raffles = []*models.Raffle{}
	}
	return raffles, nil
}

// UpdateStatus performs a conditional status change
func (r *RaffleRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.RaffleStatus) error {
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	return r.conditionalUpdate(ctx, id, from, update)
}

// MarkDrawn moves a closed raffle to drawn with its winner annotation
func (r *RaffleRepository) MarkDrawn(ctx context.Context, id primitive.ObjectID, ticketNumber int, winnerName string) error {
	update := bson.M{"$set": bson.M{
		"status":             models.RaffleStatusDrawn,
		"winnerTicketNumber": ticketNumber,
		"winnerName":         winnerName,
		"updatedAt":          time.Now().UTC(),
	}}
	return r.conditionalUpdate(ctx, id, models.RaffleStatusClosed, update)
}

func (r *RaffleRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, from models.RaffleStatus, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrPreconditionFailed
}

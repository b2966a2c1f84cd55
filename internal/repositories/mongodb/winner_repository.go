package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WinnerRepository implements the repositories.WinnerRepository interface
type WinnerRepository struct {
	collection *mongo.Collection
}

// NewWinnerRepository creates a new WinnerRepository
func NewWinnerRepository(db *mongo.Database) repositories.WinnerRepository {
	return &WinnerRepository{
		collection: db.Collection(WinnersCollection),
	}
}

// Create creates a new winner; the unique raffleId index rejects a second one
func (r *WinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	winner.CreatedAt = time.Now().UTC()
	winner.UpdatedAt = winner.CreatedAt
	if winner.ID.IsZero() {
		winner.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, winner)
	return translate(err)
}

// FindByID finds a winner by ID
func (r *WinnerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Winner, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByRaffleID finds the winner of a raffle
func (r *WinnerRepository) FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) (*models.Winner, error) {
	return r.findOne(ctx, bson.M{"raffleId": raffleID})
}

func (r *WinnerRepository) findOne(ctx context.Context, filter bson.M) (*models.Winner, error) {
	var winner models.Winner
	if err := r.collection.FindOne(ctx, filter).Decode(&winner); err != nil {
		return nil, translate(err)
	}
	return &winner, nil
}

// FindAll finds all winners sorted by draw date descending
func (r *WinnerRepository) FindAll(ctx context.Context) ([]*models.Winner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "drawDate", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var winners []*models.Winner
	if err := cursor.All(ctx, &winners); err != nil {
		return nil, err
	}
	if winners == nil {
		winners = []*models.Winner{}
	}
	return winners, nil
}

// MarkClaimed flips an unclaimed winner to claimed
func (r *WinnerRepository) MarkClaimed(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Winner, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"claimed": true, "claimedAt": at, "updatedAt": at}}

	var winner models.Winner
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "claimed": false}, update, opts).Decode(&winner)
	if err == nil {
		return &winner, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repositories.ErrPreconditionFailed
}

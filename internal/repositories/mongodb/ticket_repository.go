package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TicketRepository implements the repositories.TicketRepository interface.
// Number uniqueness is enforced by the partial unique index on
// (raffleId, ticketNumber) where active is true; see EnsureIndexes.
type TicketRepository struct {
	collection      *mongo.Collection
	raffles         *mongo.Collection
	useTransactions bool
}

// NewTicketRepository creates a new TicketRepository. With useTransactions the
// availability check and the insert run in one multi-document transaction,
// which requires a replica set.
func NewTicketRepository(db *mongo.Database, useTransactions bool) repositories.TicketRepository {
	return &TicketRepository{
		collection:      db.Collection(TicketsCollection),
		raffles:         db.Collection(RafflesCollection),
		useTransactions: useTransactions,
	}
}

// CreateBatch inserts every ticket of a purchase or none of them
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	raffleID := tickets[0].RaffleID
	numbers := make([]int, len(tickets))
	docs := make([]interface{}, len(tickets))
	ids := make([]primitive.ObjectID, len(tickets))
	now := time.Now().UTC()
	for i, t := range tickets {
		if t.RaffleID != raffleID {
			return fmt.Errorf("ticket batch spans raffles %s and %s", raffleID.Hex(), t.RaffleID.Hex())
		}
		t.ID = primitive.NewObjectID()
		t.Active = t.PaymentStatus.Holds()
		t.CreatedAt = now
		t.UpdatedAt = now
		numbers[i] = t.TicketNumber
		docs[i] = t
		ids[i] = t.ID
	}

	var attempted bool
	insert := func(ctx context.Context) error {
		if err := r.claimActive(ctx, raffleID); err != nil {
			return err
		}
		held, err := r.heldNumbers(ctx, raffleID, numbers)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			return &repositories.TicketsTakenError{Numbers: held}
		}
		attempted = true
		_, err = r.collection.InsertMany(ctx, docs)
		return err
	}

	var err error
	if r.useTransactions {
		err = r.withTransaction(ctx, insert)
	} else {
		err = insert(ctx)
		if err == nil {
			// a close that landed while inserting wins over the purchase
			err = r.claimActive(ctx, raffleID)
		}
		if err != nil && attempted {
			// ordered inserts may have written a prefix of the batch
			if _, delErr := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); delErr != nil {
				return fmt.Errorf("rollback of partial ticket batch failed: %v (after %w)", delErr, err)
			}
		}
	}
	if err == nil || isTaken(err) || errors.Is(err, repositories.ErrRaffleNotActive) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		held, qErr := r.heldNumbers(ctx, raffleID, numbers)
		if qErr != nil || len(held) == 0 {
			held = append([]int(nil), numbers...)
			sort.Ints(held)
		}
		return &repositories.TicketsTakenError{Numbers: held}
	}
	return err
}

// claimActive stamps the raffle only while it is active. Inside a transaction
// the write conflicts with a concurrent status change, so a purchase cannot
// commit against a raffle that was closed under it.
func (r *TicketRepository) claimActive(ctx context.Context, raffleID primitive.ObjectID) error {
	res, err := r.raffles.UpdateOne(ctx,
		bson.M{"_id": raffleID, "status": models.RaffleStatusActive},
		bson.M{"$set": bson.M{"lastPurchaseAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrRaffleNotActive
	}
	return nil
}

func isTaken(err error) bool {
	var taken *repositories.TicketsTakenError
	return errors.As(err, &taken)
}

func (r *TicketRepository) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (r *TicketRepository) heldNumbers(ctx context.Context, raffleID primitive.ObjectID, numbers []int) ([]int, error) {
	filter := bson.M{
		"raffleId":     raffleID,
		"active":       true,
		"ticketNumber": bson.M{"$in": numbers},
	}
	return r.numbers(ctx, filter)
}

func (r *TicketRepository) numbers(ctx context.Context, filter bson.M) ([]int, error) {
	opts := options.Find().SetProjection(bson.M{"ticketNumber": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TicketNumber int `bson:"ticketNumber"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]int, len(rows))
	for i, row := range rows {
		out[i] = row.TicketNumber
	}
	sort.Ints(out)
	return out, nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

// FindByRaffleAndNumber finds the ticket holding a number in the given status
func (r *TicketRepository) FindByRaffleAndNumber(ctx context.Context, raffleID primitive.ObjectID, number int, status models.PaymentStatus) (*models.Ticket, error) {
	var ticket models.Ticket
	filter := bson.M{"raffleId": raffleID, "ticketNumber": number, "paymentStatus": status}
	if err := r.collection.FindOne(ctx, filter).Decode(&ticket); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

// TakenNumbers returns the numbers held by pending or confirmed tickets
func (r *TicketRepository) TakenNumbers(ctx context.Context, raffleID primitive.ObjectID) ([]int, error) {
	return r.numbers(ctx, bson.M{"raffleId": raffleID, "active": true})
}

// CountByStatus counts a raffle's tickets per payment status
func (r *TicketRepository) CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (map[models.PaymentStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"raffleId": raffleID}}},
		{{Key: "$group", Value: bson.M{"_id": "$paymentStatus", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.PaymentStatus `bson:"_id"`
		Count  int                  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[models.PaymentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Transition moves a ticket between payment states with a compare-and-set on
// the current status, so only one of two concurrent reviews can win.
func (r *TicketRepository) Transition(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, at time.Time, reviewedBy, comment string) (*models.Ticket, error) {
	set := bson.M{
		"paymentStatus": to,
		"active":        to.Holds(),
		"reviewedBy":    reviewedBy,
		"updatedAt":     at,
	}
	switch to {
	case models.PaymentStatusConfirmed:
		set["confirmedAt"] = at
	case models.PaymentStatusFailed:
		set["failedAt"] = at
	}
	if comment != "" {
		set["paymentComment"] = comment
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ticket models.Ticket
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "paymentStatus": from}, bson.M{"$set": set}, opts).Decode(&ticket)
	if err == nil {
		return &ticket, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repositories.ErrPreconditionFailed
}

// FindPending lists pending tickets across raffles, oldest first
func (r *TicketRepository) FindPending(ctx context.Context) ([]*models.TicketWithRaffle, error) {
	return r.withRaffleTitle(ctx, bson.M{"paymentStatus": models.PaymentStatusPending}, 1)
}

// FindPendingOlderThan lists pending tickets purchased before cutoff
func (r *TicketRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error) {
	filter := bson.M{"paymentStatus": models.PaymentStatusPending, "purchasedAt": bson.M{"$lt": cutoff}}
	opts := options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// FindByBuyer lists a buyer's tickets, newest first
func (r *TicketRepository) FindByBuyer(ctx context.Context, buyerID string) ([]*models.TicketWithRaffle, error) {
	return r.withRaffleTitle(ctx, bson.M{"buyerId": buyerID}, -1)
}

func (r *TicketRepository) withRaffleTitle(ctx context.Context, match bson.M, order int) ([]*models.TicketWithRaffle, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "purchasedAt", Value: order}, {Key: "ticketNumber", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         RafflesCollection,
			"localField":   "raffleId",
			"foreignField": "_id",
			"as":           "raffle",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$raffle", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{"raffleTitle": "$raffle.title"}}},
		{{Key: "$project", Value: bson.M{"raffle": 0}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ticket aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []*models.TicketWithRaffle
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	if tickets == nil {
		tickets = []*models.TicketWithRaffle{}
	}
	return tickets, nil
}

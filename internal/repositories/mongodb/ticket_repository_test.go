package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	mongoclient "github.com/ArowuTest/raffle-backend/pkg/mongodb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketsNS = "raffle.tickets"

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().
		ClientType(mtest.Mock).
		ClientOptions(options.Client().SetRegistry(mongoclient.NewRegistry())))
}

func ticketBatch(raffleID primitive.ObjectID, numbers ...int) []*models.Ticket {
	tickets := make([]*models.Ticket, len(numbers))
	for i, n := range numbers {
		tickets[i] = &models.Ticket{
			RaffleID:      raffleID,
			TicketNumber:  n,
			PurchaseID:    "purchase-1",
			BuyerID:       "buyer-1",
			PaymentMethod: "zelle",
			Currency:      "USD",
			PaymentStatus: models.PaymentStatusPending,
			AmountPaid:    decimal.RequireFromString("10.00"),
			PurchasedAt:   time.Now().UTC(),
		}
	}
	return tickets
}

func matched(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestCreateBatch(t *testing.T) {
	mt := newMock(t)
	raffleID := primitive.NewObjectID()

	mt.Run("inserts and rechecks the raffle", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			matched(1),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
			matched(1),
		)

		tickets := ticketBatch(raffleID, 3, 4)
		require.NoError(mt, repo.CreateBatch(context.Background(), tickets))
		assert.False(mt, tickets[0].ID.IsZero())
		assert.True(mt, tickets[1].Active)
		assert.Equal(mt, []string{"update", "find", "insert", "update"}, commandNames(mt))
	})

	mt.Run("numbers held before insert", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			matched(1),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch, bson.D{{Key: "ticketNumber", Value: 4}}),
		)

		err := repo.CreateBatch(context.Background(), ticketBatch(raffleID, 4, 7))
		var taken *repositories.TicketsTakenError
		require.ErrorAs(mt, err, &taken)
		assert.Equal(mt, []int{4}, taken.Numbers)
		assert.Equal(mt, []string{"update", "find"}, commandNames(mt))
	})

	mt.Run("duplicate key rolls back and reports taken numbers", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			matched(1),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch, bson.D{{Key: "ticketNumber", Value: 7}}),
		)

		err := repo.CreateBatch(context.Background(), ticketBatch(raffleID, 4, 7))
		var taken *repositories.TicketsTakenError
		require.ErrorAs(mt, err, &taken)
		assert.Equal(mt, []int{7}, taken.Numbers)
		assert.Equal(mt, []string{"update", "find", "insert", "delete", "find"}, commandNames(mt))
	})

	mt.Run("raffle not active", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(matched(0))

		err := repo.CreateBatch(context.Background(), ticketBatch(raffleID, 1))
		assert.ErrorIs(mt, err, repositories.ErrRaffleNotActive)
		assert.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("raffle closed during insert", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			matched(1),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			matched(0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		err := repo.CreateBatch(context.Background(), ticketBatch(raffleID, 5))
		assert.ErrorIs(mt, err, repositories.ErrRaffleNotActive)
		assert.Equal(mt, []string{"update", "find", "insert", "update", "delete"}, commandNames(mt))
	})
}

func TestTransition(t *testing.T) {
	mt := newMock(t)
	id := primitive.NewObjectID()
	at := time.Now().UTC()

	mt.Run("moves a pending ticket", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "ticketNumber", Value: 3},
			{Key: "paymentStatus", Value: "confirmed"},
			{Key: "reviewedBy", Value: "admin@example.com"},
		}}))

		ticket, err := repo.Transition(context.Background(), id, models.PaymentStatusPending, models.PaymentStatusConfirmed, at, "admin@example.com", "")
		require.NoError(mt, err)
		assert.Equal(mt, models.PaymentStatusConfirmed, ticket.PaymentStatus)
		assert.Equal(mt, 3, ticket.TicketNumber)
	})

	mt.Run("already reviewed", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id},
				{Key: "paymentStatus", Value: "failed"},
			}),
		)

		_, err := repo.Transition(context.Background(), id, models.PaymentStatusPending, models.PaymentStatusConfirmed, at, "admin@example.com", "")
		assert.ErrorIs(mt, err, repositories.ErrPreconditionFailed)
	})

	mt.Run("unknown ticket", func(mt *mtest.T) {
		repo := NewTicketRepository(mt.DB, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ticketsNS, mtest.FirstBatch),
		)

		_, err := repo.Transition(context.Background(), id, models.PaymentStatusPending, models.PaymentStatusFailed, at, "admin@example.com", "")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})
}

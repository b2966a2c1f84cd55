package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConfirmTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	res := f.mustBuy(t, raffle.ID, 3)

	ticket, err := f.reviews.ConfirmTicket(ctx, res.TicketIDs[0], testAdmin, "verified")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, ticket.PaymentStatus)
	require.NotNil(t, ticket.ConfirmedAt)
	assert.Equal(t, testAdmin.Email, ticket.ReviewedBy)
	assert.Equal(t, "verified", ticket.PaymentComment)

	got, err := f.raffles.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SoldTickets)
	assert.Equal(t, 0, got.PendingTickets)
	assert.Equal(t, 9, got.AvailableTickets)

	// a confirmed number stays out of the pool
	available, err := f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.NotContains(t, available, 3)
}

func TestReview_TerminalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	res := f.mustBuy(t, raffle.ID, 1, 2)
	confirmed, failed := res.TicketIDs[0], res.TicketIDs[1]

	_, err := f.reviews.ConfirmTicket(ctx, confirmed, testAdmin, "")
	require.NoError(t, err)
	_, err = f.reviews.FailTicket(ctx, failed, testAdmin, "")
	require.NoError(t, err)

	_, err = f.reviews.ConfirmTicket(ctx, confirmed, testAdmin, "")
	assert.True(t, IsKind(err, KindInvalidStateTransition), "double confirm: %v", err)
	_, err = f.reviews.FailTicket(ctx, confirmed, testAdmin, "")
	assert.True(t, IsKind(err, KindInvalidStateTransition), "fail after confirm: %v", err)
	_, err = f.reviews.ConfirmTicket(ctx, failed, testAdmin, "")
	assert.True(t, IsKind(err, KindInvalidStateTransition), "confirm after fail: %v", err)

	ticket, err := f.store.Tickets().FindByID(ctx, confirmed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, ticket.PaymentStatus)
}

func TestReview_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	res := f.mustBuy(t, raffle.ID, 1)

	_, err := f.reviews.ConfirmTicket(ctx, res.TicketIDs[0], testBuyer, "")
	assert.True(t, IsKind(err, KindForbidden), "got %v", err)

	_, err = f.reviews.ConfirmTicket(ctx, primitive.NewObjectID(), testAdmin, "")
	assert.True(t, IsKind(err, KindNotFound), "got %v", err)
}

func TestReview_ConcurrentConfirmAndFail(t *testing.T) {
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	id := f.mustBuy(t, raffle.ID, 8).TicketIDs[0]

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(confirm bool) {
			defer wg.Done()
			var err error
			if confirm {
				_, err = f.reviews.ConfirmTicket(context.Background(), id, testAdmin, "")
			} else {
				_, err = f.reviews.FailTicket(context.Background(), id, testAdmin, "")
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if IsKind(err, KindInvalidStateTransition) {
				rejected++
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, rejected)
}

func TestListPendingPayments_OldestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, n := range []int{7, 2, 5} {
		at := base.Add(time.Duration(i) * time.Minute)
		f.purchases.now = func() time.Time { return at }
		f.mustBuy(t, raffle.ID, n)
	}
	res := f.mustBuy(t, raffle.ID, 9)
	_, err := f.reviews.ConfirmTicket(ctx, res.TicketIDs[0], testAdmin, "")
	require.NoError(t, err)

	pending, err := f.reviews.ListPendingPayments(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int{7, 2, 5}, []int{pending[0].TicketNumber, pending[1].TicketNumber, pending[2].TicketNumber})
	assert.Equal(t, raffle.Title, pending[0].RaffleTitle)
}

func TestReview_DrawnRaffleIsFinal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	res := f.mustBuy(t, raffle.ID, 1, 2)
	_, err := f.reviews.ConfirmTicket(ctx, res.TicketIDs[0], testAdmin, "")
	require.NoError(t, err)

	f.setStatus(t, raffle.ID, models.RaffleStatusClosed)
	one := 1
	_, err = f.winners.RecordWinner(ctx, raffle.ID, &models.RecordWinnerRequest{TicketNumber: &one, PrizeTitle: "Car"})
	require.NoError(t, err)

	_, err = f.reviews.FailTicket(ctx, res.TicketIDs[1], testAdmin, "")
	assert.True(t, IsKind(err, KindInvalidStateTransition), "got %v", err)
}

func TestExpirePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	now := time.Now().UTC()
	f.purchases.now = func() time.Time { return now.Add(-3 * time.Hour) }
	stale := f.mustBuy(t, raffle.ID, 1, 2)
	f.purchases.now = func() time.Time { return now }
	fresh := f.mustBuy(t, raffle.ID, 3)

	_, err := f.reviews.ConfirmTicket(ctx, stale.TicketIDs[0], testAdmin, "")
	require.NoError(t, err)

	f.reviews.now = func() time.Time { return now }
	n, err := f.reviews.ExpirePending(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, err := f.store.Tickets().FindByID(ctx, stale.TicketIDs[1])
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, expired.PaymentStatus)
	assert.Equal(t, ExpiryReviewer, expired.ReviewedBy)
	assert.Equal(t, "expired", expired.PaymentComment)

	kept, err := f.store.Tickets().FindByID(ctx, fresh.TicketIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, kept.PaymentStatus)

	available, err := f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Contains(t, available, 2)

	n, err = f.reviews.ExpirePending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpirePending_SkipsDrawnRaffle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	now := time.Now().UTC()
	f.purchases.now = func() time.Time { return now.Add(-3 * time.Hour) }
	winning := f.mustBuy(t, raffle.ID, 1)
	pending := f.mustBuy(t, raffle.ID, 2)
	_, err := f.reviews.ConfirmTicket(ctx, winning.TicketIDs[0], testAdmin, "")
	require.NoError(t, err)

	f.setStatus(t, raffle.ID, models.RaffleStatusClosed)
	_, err = f.winners.RecordWinner(ctx, raffle.ID, &models.RecordWinnerRequest{TicketNumber: intPtr(1), PrizeTitle: "TV"})
	require.NoError(t, err)

	f.reviews.now = func() time.Time { return now }
	n, err := f.reviews.ExpirePending(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	kept, err := f.store.Tickets().FindByID(ctx, pending.TicketIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, kept.PaymentStatus)
}

package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestPurchaseTickets_ReserveConflictAndRelease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	first := f.mustBuy(t, raffle.ID, 4, 3)
	assert.Equal(t, []int{3, 4}, first.TicketNumbers)
	require.Len(t, first.TicketIDs, 2)

	available, err := f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 5, 6, 7, 8, 9}, available)

	_, err = f.buy(ctx, raffle.ID, "zelle", 4, 7)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTicketsAlreadyTaken))
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []int{4}, se.Numbers)

	// the whole batch was rejected, so 7 is still free
	available, err = f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Contains(t, available, 7)

	_, err = f.reviews.FailTicket(ctx, first.TicketIDs[0], testAdmin, "no payment received")
	require.NoError(t, err)

	available, err = f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8, 9}, available)

	again, err := f.buy(ctx, raffle.ID, "zelle", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, again.TicketNumbers)
}

func TestPurchaseTickets_Totals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 100, 10)

	usd, err := f.buy(ctx, raffle.ID, "zelle", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "30.00", usd.TotalAmountUSD.StringFixed(2))
	assert.Equal(t, "4256.53", usd.TotalAmountLocal.StringFixed(2))
	assert.Equal(t, "USD", usd.Currency)
	assert.True(t, usd.TotalAmount.Equal(usd.TotalAmountUSD))
	assert.Equal(t, int64(1), usd.RateVersion)

	local, err := f.buy(ctx, raffle.ID, "pago_movil", 10, 11, 12)
	require.NoError(t, err)
	assert.Equal(t, "VES", local.Currency)
	assert.Equal(t, "4256.53", local.TotalAmount.StringFixed(2))

	sum := decimal.Zero
	for _, id := range local.TicketIDs {
		ticket, err := f.store.Tickets().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, ticket.PaymentStatus)
		assert.Equal(t, local.PurchaseID, ticket.PurchaseID)
		assert.Equal(t, "buyer-1", ticket.BuyerID)
		sum = sum.Add(ticket.AmountPaid)
	}
	assert.True(t, sum.Equal(local.TotalAmount), "ticket shares %s != total %s", sum, local.TotalAmount)
}

func TestPurchaseTickets_SharedTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 2.5)

	res := f.mustBuy(t, raffle.ID, 0, 1, 2)
	var first *models.Ticket
	for _, id := range res.TicketIDs {
		ticket, err := f.store.Tickets().FindByID(ctx, id)
		require.NoError(t, err)
		if first == nil {
			first = ticket
			continue
		}
		assert.True(t, ticket.PurchasedAt.Equal(first.PurchasedAt))
		assert.Equal(t, first.PaymentReference, ticket.PaymentReference)
	}
}

func TestPurchaseTickets_RaffleNotAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	f.setStatus(t, raffle.ID, models.RaffleStatusClosed)

	_, err := f.buy(ctx, raffle.ID, "zelle", 1)
	assert.True(t, IsKind(err, KindRaffleNotAvailable), "got %v", err)

	_, err = f.buy(ctx, primitive.NewObjectID(), "zelle", 1)
	assert.True(t, IsKind(err, KindRaffleNotAvailable), "got %v", err)
}

func TestPurchaseTickets_InvalidSelection(t *testing.T) {
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	cases := map[string][]int{
		"empty":        {},
		"duplicate":    {2, 2},
		"out of range": {10},
		"negative":     {-1},
	}
	for name, numbers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.buy(context.Background(), raffle.ID, "zelle", numbers...)
			assert.True(t, IsKind(err, KindInvalidTicketSelection), "got %v", err)
		})
	}

	available, err := f.raffles.GetAvailableTickets(context.Background(), raffle.ID)
	require.NoError(t, err)
	assert.Len(t, available, 10)
}

func TestPurchaseTickets_InvalidRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	_, err := f.buy(ctx, raffle.ID, "paypal", 1)
	assert.True(t, IsKind(err, KindInvalidRequest), "got %v", err)

	req := purchaseRequest("zelle", 1)
	req.Buyer.Email = "not-an-email"
	_, err = f.purchases.PurchaseTickets(ctx, testBuyer, raffle.ID, req)
	assert.True(t, IsKind(err, KindInvalidRequest), "got %v", err)

	_, err = f.purchases.PurchaseTickets(ctx, models.Identity{}, raffle.ID, purchaseRequest("zelle", 1))
	assert.True(t, IsKind(err, KindUnauthorized), "got %v", err)
}

func TestPurchaseTickets_ConcurrentSameNumber(t *testing.T) {
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	const buyers = 25
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		taken  int
		others []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.buy(context.Background(), raffle.ID, "zelle", 5, 6)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case IsKind(err, KindTicketsAlreadyTaken):
				taken++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, buyers-1, taken)
	assert.Empty(t, others)

	counts, err := f.store.Tickets().CountByStatus(context.Background(), raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.PaymentStatusPending])
}

func TestPurchaseTickets_ConcurrentOverlappingBatches(t *testing.T) {
	f := newFixture(t)
	raffle := f.createRaffle(t, 20, 1)

	var wg sync.WaitGroup
	for i := 0; i < 19; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = f.buy(context.Background(), raffle.ID, "zelle", n, n+1)
		}(i)
	}
	wg.Wait()

	taken, err := f.store.Tickets().TakenNumbers(context.Background(), raffle.ID)
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, n := range taken {
		assert.False(t, seen[n], "number %d held twice", n)
		seen[n] = true
	}
	counts, err := f.store.Tickets().CountByStatus(context.Background(), raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, len(taken), counts[models.PaymentStatusPending])
	assert.Zero(t, len(taken)%2, "a batch was partially reserved")
}

func TestQuotePurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	q, err := f.purchases.QuotePurchase(ctx, raffle.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "30.00", q.TotalUSD.StringFixed(2))
	assert.Equal(t, "4256.53", q.TotalLocal.StringFixed(2))
	assert.Equal(t, "VES", q.LocalCurrency)
	assert.Equal(t, "$30.00", q.FormattedUSD)

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"unitPriceUsd":"10.00"`)
	assert.Contains(t, string(raw), `"totalUsd":"30.00"`)
	assert.Contains(t, string(raw), `"totalLocal":"4256.53"`)

	_, err = f.purchases.QuotePurchase(ctx, raffle.ID, 11)
	assert.True(t, IsKind(err, KindInvalidTicketSelection))

	_, err = f.purchases.QuotePurchase(ctx, primitive.NewObjectID(), 1)
	assert.True(t, IsKind(err, KindNotFound))

	available, err := f.raffles.GetAvailableTickets(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Len(t, available, 10)
}

func TestGetUserTickets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)
	f.mustBuy(t, raffle.ID, 1, 2)

	tickets, err := f.purchases.GetUserTickets(ctx, testBuyer.Subject)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, raffle.Title, tickets[0].RaffleTitle)

	tickets, err = f.purchases.GetUserTickets(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

// closeAfterLoad closes the raffle as soon as it has been read, so the
// purchase sees an active raffle that is closed by the time it inserts.
type closeAfterLoad struct {
	repositories.RaffleRepository
}

func (r closeAfterLoad) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := r.RaffleRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.RaffleRepository.UpdateStatus(ctx, id, models.RaffleStatusActive, models.RaffleStatusClosed); err != nil {
		return nil, err
	}
	return raffle, nil
}

func TestPurchaseTickets_RaffleClosedBeforeInsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raffle := f.createRaffle(t, 10, 10)

	purchases := NewPurchaseService(closeAfterLoad{f.store.Raffles()}, f.store.Tickets(), f.engine, f.purchases.opts, f.metrics, zap.NewNop())
	_, err := purchases.PurchaseTickets(ctx, testBuyer, raffle.ID, purchaseRequest("zelle", 3))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRaffleNotAvailable), "got %v", err)

	closed, err := f.raffles.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusClosed, closed.Status)
	assert.Zero(t, closed.PendingTickets)

	pending, err := f.reviews.ListPendingPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/metrics"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	testBuyer = models.Identity{Subject: "buyer-1", Email: "ana@example.com", Role: models.RoleBuyer}
	testAdmin = models.Identity{Subject: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
)

type fixture struct {
	store     *memory.Store
	engine    *currency.Engine
	metrics   *metrics.Metrics
	raffles   *RaffleServiceImpl
	purchases *PurchaseServiceImpl
	reviews   *ReviewServiceImpl
	winners   *WinnerServiceImpl
	rates     *ExchangeRateServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	book, err := currency.NewRateBook(decimal.RequireFromString("141.8843"))
	require.NoError(t, err)
	engine, err := currency.NewEngine(book, "VES", "Bs.", "es-VE")
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	log := zap.NewNop()

	opts := PurchaseOptions{
		PaymentMethods: map[string]currency.Code{
			"zelle":      currency.USD,
			"pago_movil": "VES",
		},
		MaxPerPurchase: 100,
	}
	return &fixture{
		store:     store,
		engine:    engine,
		metrics:   m,
		raffles:   NewRaffleService(store.Raffles(), store.Tickets(), store.Winners(), log),
		purchases: NewPurchaseService(store.Raffles(), store.Tickets(), engine, opts, m, log),
		reviews:   NewReviewService(store.Raffles(), store.Tickets(), m, log),
		winners:   NewWinnerService(store.Raffles(), store.Tickets(), store.Winners(), store.Transactor(), log),
		rates:     NewExchangeRateService(store.SystemConfig(), book, m, log),
	}
}

func (f *fixture) createRaffle(t *testing.T, total int, price float64) *models.Raffle {
	t.Helper()
	r, err := f.raffles.CreateRaffle(context.Background(), &models.CreateRaffleRequest{
		Title:          "Toyota Corolla 2024",
		PricePerTicket: price,
		TotalTickets:   total,
		DrawDate:       time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) buy(ctx context.Context, raffleID primitive.ObjectID, method string, numbers ...int) (*models.PurchaseResult, error) {
	return f.purchases.PurchaseTickets(ctx, testBuyer, raffleID, purchaseRequest(method, numbers...))
}

func (f *fixture) mustBuy(t *testing.T, raffleID primitive.ObjectID, numbers ...int) *models.PurchaseResult {
	t.Helper()
	res, err := f.buy(context.Background(), raffleID, "zelle", numbers...)
	require.NoError(t, err)
	return res
}

func (f *fixture) setStatus(t *testing.T, raffleID primitive.ObjectID, status models.RaffleStatus) {
	t.Helper()
	_, err := f.raffles.SetRaffleStatus(context.Background(), raffleID, string(status))
	require.NoError(t, err)
}

func purchaseRequest(method string, numbers ...int) *models.PurchaseRequest {
	return &models.PurchaseRequest{
		TicketNumbers: numbers,
		Buyer: models.BuyerInfo{
			Name:  "Ana Pérez",
			Email: "ana@example.com",
			Phone: "+58 412 555 0101",
		},
		PaymentMethod:    method,
		PaymentReference: "REF-001",
	}
}

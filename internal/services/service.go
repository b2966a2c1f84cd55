package services

import (
	"context"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleService defines raffle lifecycle and pool operations
type RaffleService interface {
	CreateRaffle(ctx context.Context, req *models.CreateRaffleRequest) (*models.Raffle, error)
	GetRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	ListRaffles(ctx context.Context, status string) ([]*models.Raffle, error)
	GetAvailableTickets(ctx context.Context, id primitive.ObjectID) ([]int, error)
	SetRaffleStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Raffle, error)
}

// PurchaseService defines ticket purchase operations
type PurchaseService interface {
	PurchaseTickets(ctx context.Context, buyer models.Identity, raffleID primitive.ObjectID, req *models.PurchaseRequest) (*models.PurchaseResult, error)
	QuotePurchase(ctx context.Context, raffleID primitive.ObjectID, count int) (*Quote, error)
	GetUserTickets(ctx context.Context, buyerID string) ([]*models.TicketWithRaffle, error)
}

// ReviewService defines the administrator payment review workflow
type ReviewService interface {
	ListPendingPayments(ctx context.Context) ([]*models.TicketWithRaffle, error)
	ConfirmTicket(ctx context.Context, id primitive.ObjectID, reviewer models.Identity, comment string) (*models.Ticket, error)
	FailTicket(ctx context.Context, id primitive.ObjectID, reviewer models.Identity, comment string) (*models.Ticket, error)
}

// WinnerService defines draw result operations
type WinnerService interface {
	RecordWinner(ctx context.Context, raffleID primitive.ObjectID, req *models.RecordWinnerRequest) (*models.Winner, error)
	ListWinners(ctx context.Context) ([]*models.Winner, error)
	ClaimWinner(ctx context.Context, id primitive.ObjectID) (*models.Winner, error)
}

// ExchangeRateService defines exchange rate settings operations
type ExchangeRateService interface {
	GetExchangeRate(ctx context.Context) currency.Rate
	SetExchangeRate(ctx context.Context, rate float64, updatedBy string) (currency.Rate, error)
	Reload(ctx context.Context) error
}

// AuthService defines administrator authentication
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when the requested document does not exist
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed is returned when a conditional update finds the
	// document in a different state than expected
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate")
	// ErrRaffleNotActive is returned by CreateBatch when the raffle is missing
	// or no longer accepts purchases at the moment of the insert
	ErrRaffleNotActive = errors.New("raffle not active")
)

// TicketsTakenError reports the requested numbers already held by a pending
// or confirmed ticket of the same raffle.
type TicketsTakenError struct {
	Numbers []int
}

func (e *TicketsTakenError) Error() string {
	return fmt.Sprintf("ticket numbers already taken: %v", e.Numbers)
}

// RaffleRepository defines the interface for raffle data operations
type RaffleRepository interface {
	Create(ctx context.Context, raffle *models.Raffle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	// FindAll lists raffles newest first; an empty status matches all.
	FindAll(ctx context.Context, status models.RaffleStatus) ([]*models.Raffle, error)
	// UpdateStatus moves a raffle from one status to another, failing with
	// ErrPreconditionFailed when the stored status is not from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.RaffleStatus) error
	// MarkDrawn moves a closed raffle to drawn and stores the winner annotation.
	MarkDrawn(ctx context.Context, id primitive.ObjectID, ticketNumber int, winnerName string) error
}

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	// CreateBatch inserts all tickets or none. Tickets must share a raffle,
	// which must be active as part of the same atomic unit (ErrRaffleNotActive).
	// A number already held by a pending or confirmed ticket yields *TicketsTakenError.
	CreateBatch(ctx context.Context, tickets []*models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	FindByRaffleAndNumber(ctx context.Context, raffleID primitive.ObjectID, number int, status models.PaymentStatus) (*models.Ticket, error)
	// TakenNumbers returns the numbers of pending and confirmed tickets of a raffle.
	TakenNumbers(ctx context.Context, raffleID primitive.ObjectID) ([]int, error)
	CountByStatus(ctx context.Context, raffleID primitive.ObjectID) (map[models.PaymentStatus]int, error)
	// Transition atomically moves a ticket from one payment status to another.
	Transition(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, at time.Time, reviewedBy, comment string) (*models.Ticket, error)
	// FindPending lists pending tickets across raffles, oldest purchase first.
	FindPending(ctx context.Context) ([]*models.TicketWithRaffle, error)
	FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Ticket, error)
	// FindByBuyer lists a buyer's tickets, newest purchase first.
	FindByBuyer(ctx context.Context, buyerID string) ([]*models.TicketWithRaffle, error)
}

// WinnerRepository defines the interface for winner data operations
type WinnerRepository interface {
	// Create fails with ErrDuplicate when the raffle already has a winner.
	Create(ctx context.Context, winner *models.Winner) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Winner, error)
	FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) (*models.Winner, error)
	// FindAll lists winners by draw date descending.
	FindAll(ctx context.Context) ([]*models.Winner, error)
	// MarkClaimed flips claimed from false to true.
	MarkClaimed(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Winner, error)
}

// AdminUserRepository defines the interface for admin user data operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) (*models.AdminUser, error)
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// SystemConfigRepository defines the interface for system configuration operations
type SystemConfigRepository interface {
	FindByKey(ctx context.Context, key string) (*models.SystemConfig, error)
	UpsertByKey(ctx context.Context, key string, value interface{}, description, updatedBy string) error
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

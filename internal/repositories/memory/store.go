// Package memory implements the repositories on an in-process store guarded
// by a single mutex. Every method is atomic, which gives CreateBatch and
// Transition the same all-or-nothing behaviour as the MongoDB implementation.
package memory

import (
	"context"
	"sync"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection
type Store struct {
	mu      sync.RWMutex
	raffles map[primitive.ObjectID]*models.Raffle
	tickets map[primitive.ObjectID]*models.Ticket
	// held indexes active tickets by raffle and number
	held    map[primitive.ObjectID]map[int]primitive.ObjectID
	winners map[primitive.ObjectID]*models.Winner
	admins  map[string]*models.AdminUser
	configs map[string]*models.SystemConfig
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		raffles: make(map[primitive.ObjectID]*models.Raffle),
		tickets: make(map[primitive.ObjectID]*models.Ticket),
		held:    make(map[primitive.ObjectID]map[int]primitive.ObjectID),
		winners: make(map[primitive.ObjectID]*models.Winner),
		admins:  make(map[string]*models.AdminUser),
		configs: make(map[string]*models.SystemConfig),
	}
}

// Raffles returns the raffle repository view
func (s *Store) Raffles() *RaffleRepository { return &RaffleRepository{s: s} }

// Tickets returns the ticket repository view
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{s: s} }

// Winners returns the winner repository view
func (s *Store) Winners() *WinnerRepository { return &WinnerRepository{s: s} }

// AdminUsers returns the admin user repository view
func (s *Store) AdminUsers() *AdminUserRepository { return &AdminUserRepository{s: s} }

// SystemConfig returns the system config repository view
func (s *Store) SystemConfig() *SystemConfigRepository { return &SystemConfigRepository{s: s} }

// Transactor returns a transactor that runs fn directly; individual calls are
// already atomic.
func (s *Store) Transactor() *Transactor { return &Transactor{} }

// Transactor implements repositories.Transactor for the memory store
type Transactor struct{}

// WithinTransaction runs fn
func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

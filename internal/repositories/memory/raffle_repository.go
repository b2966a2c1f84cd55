package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository implements repositories.RaffleRepository
type RaffleRepository struct {
	s *Store
}

// Create stores a new raffle
func (r *RaffleRepository) Create(_ context.Context, raffle *models.Raffle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	raffle.ID = primitive.NewObjectID()
	raffle.CreatedAt = time.Now().UTC()
	raffle.UpdatedAt = raffle.CreatedAt
	cp := *raffle
	r.s.raffles[raffle.ID] = &cp
	return nil
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	raffle, ok := r.s.raffles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *raffle
	return &cp, nil
}

// FindAll lists raffles newest first
func (r *RaffleRepository) FindAll(_ context.Context, status models.RaffleStatus) ([]*models.Raffle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Raffle{}
	for _, raffle := range r.s.raffles {
		if status != "" && raffle.Status != status {
			continue
		}
		cp := *raffle
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus performs a conditional status change
func (r *RaffleRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.RaffleStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	raffle, err := r.s.raffleInState(id, from)
	if err != nil {
		return err
	}
	raffle.Status = to
	raffle.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDrawn moves a closed raffle to drawn with its winner annotation
func (r *RaffleRepository) MarkDrawn(_ context.Context, id primitive.ObjectID, ticketNumber int, winnerName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	raffle, err := r.s.raffleInState(id, models.RaffleStatusClosed)
	if err != nil {
		return err
	}
	n := ticketNumber
	raffle.Status = models.RaffleStatusDrawn
	raffle.WinnerTicketNumber = &n
	raffle.WinnerName = winnerName
	raffle.UpdatedAt = time.Now().UTC()
	return nil
}

// raffleInState must be called with the write lock held
func (s *Store) raffleInState(id primitive.ObjectID, status models.RaffleStatus) (*models.Raffle, error) {
	raffle, ok := s.raffles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if raffle.Status != status {
		return nil, repositories.ErrPreconditionFailed
	}
	return raffle, nil
}

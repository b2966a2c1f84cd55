package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.WinnerRepository = (*WinnerRepository)(nil)

// WinnerRepository implements repositories.WinnerRepository
type WinnerRepository struct {
	s *Store
}

// Create stores a winner, one per raffle
func (r *WinnerRepository) Create(_ context.Context, winner *models.Winner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.winners {
		if w.RaffleID == winner.RaffleID {
			return repositories.ErrDuplicate
		}
	}
	if winner.ID.IsZero() {
		winner.ID = primitive.NewObjectID()
	}
	winner.CreatedAt = time.Now().UTC()
	winner.UpdatedAt = winner.CreatedAt
	cp := *winner
	r.s.winners[winner.ID] = &cp
	return nil
}

// FindByID finds a winner by ID
func (r *WinnerRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Winner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.winners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

// FindByRaffleID finds the winner of a raffle
func (r *WinnerRepository) FindByRaffleID(_ context.Context, raffleID primitive.ObjectID) (*models.Winner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, w := range r.s.winners {
		if w.RaffleID == raffleID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// FindAll lists winners by draw date descending
func (r *WinnerRepository) FindAll(_ context.Context) ([]*models.Winner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Winner, 0, len(r.s.winners))
	for _, w := range r.s.winners {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawDate.After(out[j].DrawDate) })
	return out, nil
}

// MarkClaimed flips an unclaimed winner to claimed
func (r *WinnerRepository) MarkClaimed(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Winner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.winners[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if w.Claimed {
		return nil, repositories.ErrPreconditionFailed
	}
	ts := at
	w.Claimed = true
	w.ClaimedAt = &ts
	w.UpdatedAt = at
	cp := *w
	return &cp, nil
}

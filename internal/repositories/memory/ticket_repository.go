package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/pool"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.TicketRepository = (*TicketRepository)(nil)

// TicketRepository implements repositories.TicketRepository
type TicketRepository struct {
	s *Store
}

// CreateBatch checks the raffle status and reserves every number under one lock
func (r *TicketRepository) CreateBatch(_ context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	raffleID := tickets[0].RaffleID
	if raffle, ok := r.s.raffles[raffleID]; !ok || raffle.Status != models.RaffleStatusActive {
		return repositories.ErrRaffleNotActive
	}
	held := r.s.held[raffleID]
	requested := make([]int, len(tickets))
	for i, t := range tickets {
		if t.RaffleID != raffleID {
			return fmt.Errorf("ticket batch spans raffles %s and %s", raffleID.Hex(), t.RaffleID.Hex())
		}
		requested[i] = t.TicketNumber
	}
	holding := make([]int, 0, len(held))
	for n := range held {
		holding = append(holding, n)
	}
	if taken := pool.Conflicts(requested, holding); len(taken) > 0 {
		return &repositories.TicketsTakenError{Numbers: taken}
	}

	if held == nil {
		held = make(map[int]primitive.ObjectID)
		r.s.held[raffleID] = held
	}
	now := time.Now().UTC()
	for _, t := range tickets {
		t.ID = primitive.NewObjectID()
		t.Active = t.PaymentStatus.Holds()
		t.CreatedAt = now
		t.UpdatedAt = now
		cp := *t
		r.s.tickets[t.ID] = &cp
		if t.Active {
			held[t.TicketNumber] = t.ID
		}
	}
	return nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// FindByRaffleAndNumber finds the ticket holding a number in the given status
func (r *TicketRepository) FindByRaffleAndNumber(_ context.Context, raffleID primitive.ObjectID, number int, status models.PaymentStatus) (*models.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.tickets {
		if t.RaffleID == raffleID && t.TicketNumber == number && t.PaymentStatus == status {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// TakenNumbers returns the numbers held by pending or confirmed tickets
func (r *TicketRepository) TakenNumbers(_ context.Context, raffleID primitive.ObjectID) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]int, 0, len(r.s.held[raffleID]))
	for n := range r.s.held[raffleID] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// CountByStatus counts a raffle's tickets per payment status
func (r *TicketRepository) CountByStatus(_ context.Context, raffleID primitive.ObjectID) (map[models.PaymentStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[models.PaymentStatus]int)
	for _, t := range r.s.tickets {
		if t.RaffleID == raffleID {
			counts[t.PaymentStatus]++
		}
	}
	return counts, nil
}

// Transition moves a ticket between payment states if it is still in from
func (r *TicketRepository) Transition(_ context.Context, id primitive.ObjectID, from, to models.PaymentStatus, at time.Time, reviewedBy, comment string) (*models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if t.PaymentStatus != from {
		return nil, repositories.ErrPreconditionFailed
	}
	ts := at
	t.PaymentStatus = to
	t.Active = to.Holds()
	t.ReviewedBy = reviewedBy
	t.UpdatedAt = at
	switch to {
	case models.PaymentStatusConfirmed:
		t.ConfirmedAt = &ts
	case models.PaymentStatusFailed:
		t.FailedAt = &ts
	}
	if comment != "" {
		t.PaymentComment = comment
	}
	if !t.Active {
		if held := r.s.held[t.RaffleID]; held[t.TicketNumber] == t.ID {
			delete(held, t.TicketNumber)
		}
	}
	cp := *t
	return &cp, nil
}

// FindPending lists pending tickets across raffles, oldest first
func (r *TicketRepository) FindPending(_ context.Context) ([]*models.TicketWithRaffle, error) {
	return r.withRaffleTitle(func(t *models.Ticket) bool {
		return t.PaymentStatus == models.PaymentStatusPending
	}, true), nil
}

// FindPendingOlderThan lists pending tickets purchased before cutoff
func (r *TicketRepository) FindPendingOlderThan(_ context.Context, cutoff time.Time) ([]*models.Ticket, error) {
	rows := r.withRaffleTitle(func(t *models.Ticket) bool {
		return t.PaymentStatus == models.PaymentStatusPending && t.PurchasedAt.Before(cutoff)
	}, true)
	out := make([]*models.Ticket, len(rows))
	for i, row := range rows {
		t := row.Ticket
		out[i] = &t
	}
	return out, nil
}

// FindByBuyer lists a buyer's tickets, newest first
func (r *TicketRepository) FindByBuyer(_ context.Context, buyerID string) ([]*models.TicketWithRaffle, error) {
	return r.withRaffleTitle(func(t *models.Ticket) bool {
		return t.BuyerID == buyerID
	}, false), nil
}

func (r *TicketRepository) withRaffleTitle(match func(*models.Ticket) bool, ascending bool) []*models.TicketWithRaffle {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.TicketWithRaffle{}
	for _, t := range r.s.tickets {
		if !match(t) {
			continue
		}
		row := &models.TicketWithRaffle{Ticket: *t}
		if raffle, ok := r.s.raffles[t.RaffleID]; ok {
			row.RaffleTitle = raffle.Title
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PurchasedAt.Equal(b.PurchasedAt) {
			if ascending {
				return a.PurchasedAt.Before(b.PurchasedAt)
			}
			return a.PurchasedAt.After(b.PurchasedAt)
		}
		return a.TicketNumber < b.TicketNumber
	})
	return out
}

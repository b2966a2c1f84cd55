package services

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/metrics"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExpiryReviewer is recorded as the reviewer of tickets failed by ExpirePending
const ExpiryReviewer = "system:expiry"

// ReviewServiceImpl implements ReviewService
type ReviewServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	m *metrics.Metrics,
	log *zap.Logger,
) *ReviewServiceImpl {
	return &ReviewServiceImpl{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		metrics:    m,
		log:        log.Named("reviews"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListPendingPayments lists tickets awaiting review, oldest purchase first
func (s *ReviewServiceImpl) ListPendingPayments(ctx context.Context) ([]*models.TicketWithRaffle, error) {
	tickets, err := s.ticketRepo.FindPending(ctx)
	if err != nil {
		s.log.Error("list pending tickets failed", zap.Error(err))
		return nil, internalError(err)
	}
	return tickets, nil
}

// ConfirmTicket moves a pending ticket to confirmed
func (s *ReviewServiceImpl) ConfirmTicket(ctx context.Context, id primitive.ObjectID, reviewer models.Identity, comment string) (*models.Ticket, error) {
	return s.review(ctx, id, models.PaymentStatusConfirmed, reviewer, comment)
}

// FailTicket moves a pending ticket to failed, returning its number to the pool
func (s *ReviewServiceImpl) FailTicket(ctx context.Context, id primitive.ObjectID, reviewer models.Identity, comment string) (*models.Ticket, error) {
	return s.review(ctx, id, models.PaymentStatusFailed, reviewer, comment)
}

func (s *ReviewServiceImpl) review(ctx context.Context, id primitive.ObjectID, to models.PaymentStatus, reviewer models.Identity, comment string) (*models.Ticket, error) {
	if !reviewer.IsAdmin() {
		return nil, newError(KindForbidden, "only administrators may review payments")
	}

	ticket, err := s.ticketRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "ticket %s not found", id.Hex())
	}
	if err != nil {
		s.log.Error("load ticket failed", zap.String("ticket_id", id.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	if ticket.PaymentStatus != models.PaymentStatusPending {
		return nil, newError(KindInvalidStateTransition, "ticket is %s and can no longer be reviewed", ticket.PaymentStatus)
	}

	raffle, err := s.raffleRepo.FindByID(ctx, ticket.RaffleID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		s.log.Error("load raffle failed", zap.String("raffle_id", ticket.RaffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	if raffle != nil && raffle.Status == models.RaffleStatusDrawn {
		return nil, newError(KindInvalidStateTransition, "raffle has been drawn, its tickets are final")
	}

	updated, err := s.ticketRepo.Transition(ctx, id, models.PaymentStatusPending, to, s.now(), reviewer.Email, comment)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrPreconditionFailed):
		return nil, newError(KindInvalidStateTransition, "ticket was reviewed concurrently")
	case errors.Is(err, repositories.ErrNotFound):
		return nil, newError(KindNotFound, "ticket %s not found", id.Hex())
	default:
		s.log.Error("ticket transition failed", zap.String("ticket_id", id.Hex()), zap.Error(err))
		return nil, internalError(err)
	}

	s.metrics.ObserveReview(string(to))
	s.log.Info("payment reviewed",
		zap.String("ticket_id", id.Hex()),
		zap.String("raffle_id", updated.RaffleID.Hex()),
		zap.Int("ticket_number", updated.TicketNumber),
		zap.String("status", string(to)),
		zap.String("reviewer", reviewer.Email))
	return updated, nil
}

// ExpirePending fails every pending ticket purchased more than maxAge ago and
// returns how many were failed. Tickets reviewed meanwhile and tickets of
// drawn raffles are skipped.
func (s *ReviewServiceImpl) ExpirePending(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := s.now()
	stale, err := s.ticketRepo.FindPendingOlderThan(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, internalError(err)
	}

	expired := 0
	drawn := make(map[primitive.ObjectID]bool)
	for _, t := range stale {
		isDrawn, seen := drawn[t.RaffleID]
		if !seen {
			raffle, err := s.raffleRepo.FindByID(ctx, t.RaffleID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				s.log.Error("load raffle failed", zap.String("raffle_id", t.RaffleID.Hex()), zap.Error(err))
				return expired, internalError(err)
			}
			isDrawn = raffle != nil && raffle.Status == models.RaffleStatusDrawn
			drawn[t.RaffleID] = isDrawn
		}
		// tickets of a drawn raffle are final
		if isDrawn {
			continue
		}
		_, err := s.ticketRepo.Transition(ctx, t.ID, models.PaymentStatusPending, models.PaymentStatusFailed, now, ExpiryReviewer, "expired")
		if errors.Is(err, repositories.ErrPreconditionFailed) || errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Error("expire ticket failed", zap.String("ticket_id", t.ID.Hex()), zap.Error(err))
			return expired, internalError(err)
		}
		expired++
	}
	if expired > 0 {
		s.metrics.ObserveExpired(expired)
		s.log.Info("pending tickets expired", zap.Int("count", expired), zap.Duration("max_age", maxAge))
	}
	return expired, nil
}

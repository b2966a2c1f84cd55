package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/pool"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxPoolSize bounds the number of tickets a raffle may offer
const MaxPoolSize = 1_000_000

// RaffleServiceImpl implements RaffleService
type RaffleServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	winnerRepo repositories.WinnerRepository
	log        *zap.Logger
}

// NewRaffleService creates a new RaffleService
func NewRaffleService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	winnerRepo repositories.WinnerRepository,
	log *zap.Logger,
) *RaffleServiceImpl {
	return &RaffleServiceImpl{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		winnerRepo: winnerRepo,
		log:        log.Named("raffles"),
	}
}

// CreateRaffle creates an active raffle with a fixed pool of totalTickets numbers
func (s *RaffleServiceImpl) CreateRaffle(ctx context.Context, req *models.CreateRaffleRequest) (*models.Raffle, error) {
	price, err := currency.FromFloat(req.PricePerTicket)
	if err == nil {
		price = currency.Round(price)
	}
	if err != nil || !price.IsPositive() {
		return nil, newError(KindInvalidAmount, "price per ticket must be a positive amount")
	}
	if req.TotalTickets < 1 || req.TotalTickets > MaxPoolSize {
		return nil, newError(KindInvalidTicketSelection, "total tickets must be between 1 and %d", MaxPoolSize)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, newError(KindInvalidRequest, "title is required")
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return nil, newError(KindInvalidRequest, "end date precedes start date")
	}

	start := req.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}
	raffle := &models.Raffle{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		CoverImage:     req.CoverImage,
		Gallery:        req.Gallery,
		PricePerTicket: price,
		TotalTickets:   req.TotalTickets,
		StartDate:      start,
		EndDate:        req.EndDate,
		DrawDate:       req.DrawDate,
		Status:         models.RaffleStatusActive,
	}
	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		s.log.Error("create raffle failed", zap.Error(err))
		return nil, internalError(err)
	}
	raffle.AvailableTickets = raffle.TotalTickets
	s.log.Info("raffle created",
		zap.String("raffle_id", raffle.ID.Hex()),
		zap.Int("total_tickets", raffle.TotalTickets),
		zap.String("price_usd", raffle.PricePerTicket.StringFixed(2)))
	return raffle, nil
}

// GetRaffle returns a raffle with its derived ticket counts
func (s *RaffleServiceImpl) GetRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.findRaffle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fillCounts(ctx, raffle); err != nil {
		return nil, err
	}
	return raffle, nil
}

// ListRaffles lists raffles newest first, optionally by status
func (s *RaffleServiceImpl) ListRaffles(ctx context.Context, status string) ([]*models.Raffle, error) {
	st := models.RaffleStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, newError(KindInvalidStatus, "unknown raffle status %q", status)
	}
	raffles, err := s.raffleRepo.FindAll(ctx, st)
	if err != nil {
		s.log.Error("list raffles failed", zap.Error(err))
		return nil, internalError(err)
	}
	for _, r := range raffles {
		if err := s.fillCounts(ctx, r); err != nil {
			return nil, err
		}
	}
	return raffles, nil
}

// GetAvailableTickets returns the numbers of the pool not held by a pending
// or confirmed ticket, ascending. It is computed from current state on every call.
func (s *RaffleServiceImpl) GetAvailableTickets(ctx context.Context, id primitive.ObjectID) ([]int, error) {
	raffle, err := s.findRaffle(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.ticketRepo.TakenNumbers(ctx, id)
	if err != nil {
		s.log.Error("load taken numbers failed", zap.String("raffle_id", id.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	return pool.Available(raffle.TotalTickets, taken), nil
}

// SetRaffleStatus moves a raffle forward through active -> closed -> drawn.
// Drawing requires a recorded winner; see WinnerServiceImpl.RecordWinner.
func (s *RaffleServiceImpl) SetRaffleStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Raffle, error) {
	target := models.RaffleStatus(strings.ToLower(strings.TrimSpace(status)))
	if !target.Valid() {
		return nil, newError(KindInvalidStatus, "unknown raffle status %q", status)
	}
	raffle, err := s.findRaffle(ctx, id)
	if err != nil {
		return nil, err
	}
	if !raffle.Status.CanTransitionTo(target) {
		return nil, newError(KindInvalidStateTransition, "raffle is %s and cannot move to %s", raffle.Status, target)
	}

	if target == models.RaffleStatusDrawn {
		err = s.markDrawnFromWinner(ctx, raffle)
	} else {
		err = s.raffleRepo.UpdateStatus(ctx, id, raffle.Status, target)
	}
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrPreconditionFailed):
		return nil, newError(KindInvalidStateTransition, "raffle status changed concurrently, reload and retry")
	case errors.Is(err, repositories.ErrNotFound):
		return nil, newError(KindNotFound, "raffle %s not found", id.Hex())
	default:
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		s.log.Error("update raffle status failed", zap.String("raffle_id", id.Hex()), zap.Error(err))
		return nil, internalError(err)
	}

	s.log.Info("raffle status changed",
		zap.String("raffle_id", id.Hex()),
		zap.String("from", string(raffle.Status)),
		zap.String("to", string(target)))
	return s.GetRaffle(ctx, id)
}

func (s *RaffleServiceImpl) markDrawnFromWinner(ctx context.Context, raffle *models.Raffle) error {
	winner, err := s.winnerRepo.FindByRaffleID(ctx, raffle.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(KindInvalidStateTransition, "record a winner to draw raffle %s", raffle.ID.Hex())
	}
	if err != nil {
		return err
	}
	if raffle.Status != models.RaffleStatusClosed {
		return newError(KindInvalidStateTransition, "raffle must be closed before it is drawn")
	}
	return s.raffleRepo.MarkDrawn(ctx, raffle.ID, winner.TicketNumber, winner.Name)
}

func (s *RaffleServiceImpl) findRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "raffle %s not found", id.Hex())
	}
	if err != nil {
		s.log.Error("load raffle failed", zap.String("raffle_id", id.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	return raffle, nil
}

func (s *RaffleServiceImpl) fillCounts(ctx context.Context, raffle *models.Raffle) error {
	counts, err := s.ticketRepo.CountByStatus(ctx, raffle.ID)
	if err != nil {
		s.log.Error("count tickets failed", zap.String("raffle_id", raffle.ID.Hex()), zap.Error(err))
		return internalError(err)
	}
	raffle.SoldTickets = counts[models.PaymentStatusConfirmed]
	raffle.PendingTickets = counts[models.PaymentStatusPending]
	raffle.AvailableTickets = raffle.TotalTickets - raffle.SoldTickets - raffle.PendingTickets
	return nil
}

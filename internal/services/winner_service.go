package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WinnerServiceImpl implements WinnerService
type WinnerServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	winnerRepo repositories.WinnerRepository
	tx         repositories.Transactor
	log        *zap.Logger
	now        func() time.Time
}

// NewWinnerService creates a new WinnerService
func NewWinnerService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	winnerRepo repositories.WinnerRepository,
	tx repositories.Transactor,
	log *zap.Logger,
) *WinnerServiceImpl {
	return &WinnerServiceImpl{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		winnerRepo: winnerRepo,
		tx:         tx,
		log:        log.Named("winners"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecordWinner records the confirmed ticket holding the drawn number as the
// raffle's winner and moves the raffle from closed to drawn.
func (s *WinnerServiceImpl) RecordWinner(ctx context.Context, raffleID primitive.ObjectID, req *models.RecordWinnerRequest) (*models.Winner, error) {
	if req.TicketNumber == nil {
		return nil, newError(KindInvalidTicketSelection, "ticket number is required")
	}
	if strings.TrimSpace(req.PrizeTitle) == "" {
		return nil, newError(KindInvalidRequest, "prize title is required")
	}
	number := *req.TicketNumber

	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "raffle %s not found", raffleID.Hex())
	}
	if err != nil {
		s.log.Error("load raffle failed", zap.String("raffle_id", raffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	if raffle.Status != models.RaffleStatusClosed {
		return nil, newError(KindInvalidStateTransition, "raffle is %s, only closed raffles can be drawn", raffle.Status)
	}
	if number < 0 || number >= raffle.TotalTickets {
		return nil, newError(KindInvalidTicketSelection, "number %d outside [0, %d)", number, raffle.TotalTickets)
	}

	ticket, err := s.ticketRepo.FindByRaffleAndNumber(ctx, raffleID, number, models.PaymentStatusConfirmed)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindInvalidTicketSelection, "number %d has no confirmed ticket", number)
	}
	if err != nil {
		s.log.Error("load winning ticket failed", zap.String("raffle_id", raffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}

	drawDate := req.DrawDate
	if drawDate.IsZero() {
		drawDate = s.now()
	}
	winner := &models.Winner{
		RaffleID:     raffleID,
		TicketID:     ticket.ID,
		TicketNumber: number,
		Name:         ticket.Buyer.Name,
		Email:        ticket.Buyer.Email,
		Phone:        ticket.Buyer.Phone,
		PrizeTitle:   strings.TrimSpace(req.PrizeTitle),
		DrawDate:     drawDate,
		VideoURL:     req.VideoURL,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.winnerRepo.Create(ctx, winner); err != nil {
			return err
		}
		return s.raffleRepo.MarkDrawn(ctx, raffleID, number, winner.Name)
	})
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, newError(KindInvalidStateTransition, "raffle already has a winner")
	case errors.Is(err, repositories.ErrPreconditionFailed):
		return nil, newError(KindInvalidStateTransition, "raffle status changed concurrently, reload and retry")
	default:
		s.log.Error("record winner failed", zap.String("raffle_id", raffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}

	s.log.Info("winner recorded",
		zap.String("raffle_id", raffleID.Hex()),
		zap.String("winner_id", winner.ID.Hex()),
		zap.Int("ticket_number", number))
	return winner, nil
}

// ListWinners lists winners, most recent draw first
func (s *WinnerServiceImpl) ListWinners(ctx context.Context) ([]*models.Winner, error) {
	winners, err := s.winnerRepo.FindAll(ctx)
	if err != nil {
		s.log.Error("list winners failed", zap.Error(err))
		return nil, internalError(err)
	}
	return winners, nil
}

// ClaimWinner marks a prize as delivered. It succeeds once per winner.
func (s *WinnerServiceImpl) ClaimWinner(ctx context.Context, id primitive.ObjectID) (*models.Winner, error) {
	winner, err := s.winnerRepo.MarkClaimed(ctx, id, s.now())
	if err == nil {
		s.log.Info("prize claimed", zap.String("winner_id", id.Hex()))
		return winner, nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "winner %s not found", id.Hex())
	}
	if errors.Is(err, repositories.ErrPreconditionFailed) {
		return nil, newError(KindInvalidStateTransition, "prize already claimed")
	}
	s.log.Error("claim prize failed", zap.String("winner_id", id.Hex()), zap.Error(err))
	return nil, internalError(err)
}

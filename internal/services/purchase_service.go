package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/metrics"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/pool"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PurchaseOptions configures the purchase transaction
type PurchaseOptions struct {
	// PaymentMethods maps an accepted method tag to the currency it is paid in
	PaymentMethods map[string]currency.Code
	// MaxPerPurchase caps the numbers one purchase may claim; 0 means no cap
	MaxPerPurchase int
}

// Quote is a price computed without reserving anything
type Quote struct {
	RaffleID       primitive.ObjectID `json:"raffleId"`
	Count          int                `json:"count"`
	UnitPriceUSD   decimal.Decimal    `json:"unitPriceUsd"`
	TotalUSD       decimal.Decimal    `json:"totalUsd"`
	TotalLocal     decimal.Decimal    `json:"totalLocal"`
	LocalCurrency  string             `json:"localCurrency"`
	FormattedUSD   string             `json:"formattedUsd"`
	FormattedLocal string             `json:"formattedLocal"`
	Rate           currency.Rate      `json:"rate"`
}

type quoteJSON Quote

// MarshalJSON renders the amounts with exactly two decimals
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		quoteJSON
		UnitPriceUSD string `json:"unitPriceUsd"`
		TotalUSD     string `json:"totalUsd"`
		TotalLocal   string `json:"totalLocal"`
	}{quoteJSON(q), q.UnitPriceUSD.StringFixed(2), q.TotalUSD.StringFixed(2), q.TotalLocal.StringFixed(2)})
}

// PurchaseServiceImpl implements PurchaseService
type PurchaseServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	engine     *currency.Engine
	opts       PurchaseOptions
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	engine *currency.Engine,
	opts PurchaseOptions,
	m *metrics.Metrics,
	log *zap.Logger,
) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		engine:     engine,
		opts:       opts,
		metrics:    m,
		log:        log.Named("purchases"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PurchaseTickets reserves every requested number as a pending ticket, or
// none of them. The availability check and the insert are one atomic unit in
// the ticket repository.
func (s *PurchaseServiceImpl) PurchaseTickets(ctx context.Context, buyer models.Identity, raffleID primitive.ObjectID, req *models.PurchaseRequest) (*models.PurchaseResult, error) {
	res, err := s.purchase(ctx, buyer, raffleID, req)
	if err != nil {
		s.metrics.ObservePurchase(string(KindOf(err)), len(req.TicketNumbers))
		return nil, err
	}
	s.metrics.ObservePurchase("ok", len(res.TicketIDs))
	return res, nil
}

func (s *PurchaseServiceImpl) purchase(ctx context.Context, buyer models.Identity, raffleID primitive.ObjectID, req *models.PurchaseRequest) (*models.PurchaseResult, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, newError(KindRaffleNotAvailable, "raffle %s does not exist", raffleID.Hex())
	case err != nil:
		s.log.Error("load raffle failed", zap.String("raffle_id", raffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	case raffle.Status != models.RaffleStatusActive:
		return nil, newError(KindRaffleNotAvailable, "raffle is %s and not accepting purchases", raffle.Status)
	}

	numbers, err := pool.ValidateSelection(raffle.TotalTickets, req.TicketNumbers, s.opts.MaxPerPurchase)
	if err != nil {
		return nil, wrapError(KindInvalidTicketSelection, err, "%s", strings.TrimPrefix(err.Error(), pool.ErrInvalidSelection.Error()+": "))
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	code, ok := s.opts.PaymentMethods[method]
	if !ok {
		return nil, newError(KindInvalidRequest, "unsupported payment method %q", req.PaymentMethod)
	}
	if err := validateBuyer(req.Buyer); err != nil {
		return nil, err
	}
	if buyer.Subject == "" {
		return nil, newError(KindUnauthorized, "buyer identity is required")
	}

	totals, err := s.engine.Total(raffle.PricePerTicket, len(numbers))
	if err != nil {
		return nil, wrapError(KindInvalidAmount, err, "raffle price cannot be converted")
	}
	shares := currency.Split(totals.In(code), len(numbers))

	purchaseID := uuid.NewString()
	purchasedAt := s.now()
	tickets := make([]*models.Ticket, len(numbers))
	for i, n := range numbers {
		tickets[i] = &models.Ticket{
			RaffleID:         raffle.ID,
			TicketNumber:     n,
			PurchaseID:       purchaseID,
			BuyerID:          buyer.Subject,
			Buyer:            normalizeBuyer(req.Buyer),
			PaymentMethod:    method,
			Currency:         string(code),
			PaymentStatus:    models.PaymentStatusPending,
			PaymentReference: strings.TrimSpace(req.PaymentReference),
			PaymentProof:     req.PaymentProof,
			PaymentComment:   req.PaymentComment,
			AmountPaid:       shares[i],
			PurchasedAt:      purchasedAt,
		}
	}

	if err := s.ticketRepo.CreateBatch(ctx, tickets); err != nil {
		if errors.Is(err, repositories.ErrRaffleNotActive) {
			return nil, newError(KindRaffleNotAvailable, "raffle stopped accepting purchases")
		}
		var taken *repositories.TicketsTakenError
		if errors.As(err, &taken) {
			s.log.Info("purchase rejected, numbers taken",
				zap.String("raffle_id", raffle.ID.Hex()),
				zap.Ints("requested", numbers),
				zap.Ints("taken", taken.Numbers))
			return nil, &Error{
				Kind:    KindTicketsAlreadyTaken,
				Message: "some of the requested ticket numbers are no longer available",
				Numbers: taken.Numbers,
			}
		}
		s.log.Error("create ticket batch failed", zap.String("raffle_id", raffle.ID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}

	ids := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	s.log.Info("tickets reserved",
		zap.String("raffle_id", raffle.ID.Hex()),
		zap.String("purchase_id", purchaseID),
		zap.String("buyer_id", buyer.Subject),
		zap.Ints("numbers", numbers),
		zap.String("total_usd", totals.USD.StringFixed(2)),
		zap.Int64("rate_version", totals.Rate.Version))

	return &models.PurchaseResult{
		PurchaseID:       purchaseID,
		TicketIDs:        ids,
		TicketNumbers:    numbers,
		TotalAmountUSD:   totals.USD,
		TotalAmountLocal: totals.Local,
		Currency:         string(code),
		TotalAmount:      totals.In(code),
		RateVersion:      totals.Rate.Version,
	}, nil
}

// QuotePurchase prices count tickets of a raffle in both currencies
func (s *PurchaseServiceImpl) QuotePurchase(ctx context.Context, raffleID primitive.ObjectID, count int) (*Quote, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "raffle %s not found", raffleID.Hex())
	}
	if err != nil {
		s.log.Error("load raffle failed", zap.String("raffle_id", raffleID.Hex()), zap.Error(err))
		return nil, internalError(err)
	}
	if count < 1 || count > raffle.TotalTickets {
		return nil, newError(KindInvalidTicketSelection, "count must be between 1 and %d", raffle.TotalTickets)
	}
	totals, err := s.engine.Total(raffle.PricePerTicket, count)
	if err != nil {
		return nil, wrapError(KindInvalidAmount, err, "raffle price cannot be converted")
	}
	local := s.engine.LocalCode()
	return &Quote{
		RaffleID:       raffle.ID,
		Count:          count,
		UnitPriceUSD:   raffle.PricePerTicket,
		TotalUSD:       totals.USD,
		TotalLocal:     totals.Local,
		LocalCurrency:  string(local),
		FormattedUSD:   s.engine.Format(totals.USD, currency.USD),
		FormattedLocal: s.engine.Format(totals.Local, local),
		Rate:           totals.Rate,
	}, nil
}

// GetUserTickets lists the tickets bought by a buyer identity
func (s *PurchaseServiceImpl) GetUserTickets(ctx context.Context, buyerID string) ([]*models.TicketWithRaffle, error) {
	if buyerID == "" {
		return nil, newError(KindUnauthorized, "buyer identity is required")
	}
	tickets, err := s.ticketRepo.FindByBuyer(ctx, buyerID)
	if err != nil {
		s.log.Error("list buyer tickets failed", zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, internalError(err)
	}
	return tickets, nil
}

func validateBuyer(b models.BuyerInfo) error {
	if strings.TrimSpace(b.Name) == "" {
		return newError(KindInvalidRequest, "buyer name is required")
	}
	if strings.TrimSpace(b.Phone) == "" {
		return newError(KindInvalidRequest, "buyer phone is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(b.Email)); err != nil {
		return newError(KindInvalidRequest, "buyer email is invalid")
	}
	return nil
}

func normalizeBuyer(b models.BuyerInfo) models.BuyerInfo {
	return models.BuyerInfo{
		Name:       strings.TrimSpace(b.Name),
		Email:      strings.ToLower(strings.TrimSpace(b.Email)),
		Phone:      strings.TrimSpace(b.Phone),
		NationalID: strings.TrimSpace(b.NationalID),
	}
}

package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusActive RaffleStatus = "active"
	RaffleStatusClosed RaffleStatus = "closed"
	RaffleStatusDrawn  RaffleStatus = "drawn"
)

var raffleStatusRank = map[RaffleStatus]int{
	RaffleStatusActive: 0,
	RaffleStatusClosed: 1,
	RaffleStatusDrawn:  2,
}

// Valid reports whether s is one of the enumerated statuses
func (s RaffleStatus) Valid() bool {
	_, ok := raffleStatusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next goes strictly forward.
func (s RaffleStatus) CanTransitionTo(next RaffleStatus) bool {
	from, okFrom := raffleStatusRank[s]
	to, okTo := raffleStatusRank[next]
	return okFrom && okTo && to > from
}

// Raffle represents a raffle with a fixed pool of numbered tickets
type Raffle struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description" json:"description"`
	CoverImage     string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Gallery        []string           `bson:"gallery,omitempty" json:"gallery,omitempty"`
	PricePerTicket decimal.Decimal    `bson:"pricePerTicket" json:"pricePerTicket"` // USD
	TotalTickets   int                `bson:"totalTickets" json:"totalTickets"`     // pool size, immutable
	StartDate      time.Time          `bson:"startDate" json:"startDate"`
	EndDate        time.Time          `bson:"endDate" json:"endDate"`
	DrawDate       time.Time          `bson:"drawDate" json:"drawDate"`
	Status         RaffleStatus       `bson:"status" json:"status"`

	// Winner annotation for display, set when the draw is recorded
	WinnerTicketNumber *int   `bson:"winnerTicketNumber,omitempty" json:"winnerTicketNumber,omitempty"`
	WinnerName         string `bson:"winnerName,omitempty" json:"winnerName,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
	// LastPurchaseAt is stamped by every ticket insert while the raffle is active
	LastPurchaseAt *time.Time `bson:"lastPurchaseAt,omitempty" json:"-"`

	// Derived from ticket state, never stored
	SoldTickets      int `bson:"-" json:"soldTickets"`
	PendingTickets   int `bson:"-" json:"pendingTickets"`
	AvailableTickets int `bson:"-" json:"availableTickets"`
}

type raffleJSON Raffle

// MarshalJSON renders PricePerTicket with exactly two decimals
func (r Raffle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		raffleJSON
		PricePerTicket string `json:"pricePerTicket"`
	}{raffleJSON(r), r.PricePerTicket.StringFixed(2)})
}

// CreateRaffleRequest defines the payload for creating a raffle
type CreateRaffleRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	CoverImage     string    `json:"coverImage"`
	Gallery        []string  `json:"gallery"`
	PricePerTicket float64   `json:"pricePerTicket" binding:"required"`
	TotalTickets   int       `json:"totalTickets" binding:"required"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	DrawDate       time.Time `json:"drawDate"`
}

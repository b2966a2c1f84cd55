package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus represents the review state of a ticket's payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Holds reports whether a ticket in this status keeps its number out of the pool
func (s PaymentStatus) Holds() bool {
	return s == PaymentStatusPending || s == PaymentStatusConfirmed
}

// BuyerInfo holds the contact details supplied with a purchase
type BuyerInfo struct {
	Name       string `bson:"name" json:"name" binding:"required"`
	Email      string `bson:"email" json:"email" binding:"required,email"`
	Phone      string `bson:"phone" json:"phone" binding:"required"`
	NationalID string `bson:"nationalId,omitempty" json:"nationalId,omitempty"`
}

// Ticket represents one reserved or sold number of a raffle
type Ticket struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID         primitive.ObjectID `bson:"raffleId" json:"raffleId"`
	TicketNumber     int                `bson:"ticketNumber" json:"ticketNumber"`
	PurchaseID       string             `bson:"purchaseId" json:"purchaseId"` // shared by every ticket of one purchase
	BuyerID          string             `bson:"buyerId" json:"buyerId"`
	Buyer            BuyerInfo          `bson:"buyer" json:"buyer"`
	PaymentMethod    string             `bson:"paymentMethod" json:"paymentMethod"`
	Currency         string             `bson:"currency" json:"currency"`
	PaymentStatus    PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentReference string             `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	PaymentProof     string             `bson:"paymentProof,omitempty" json:"paymentProof,omitempty"`
	PaymentComment   string             `bson:"paymentComment,omitempty" json:"paymentComment,omitempty"`
	AmountPaid       decimal.Decimal    `bson:"amountPaid" json:"amountPaid"` // per ticket, in Currency
	// Active mirrors PaymentStatus.Holds(); the unique (raffleId, ticketNumber) index is partial on it.
	Active      bool       `bson:"active" json:"-"`
	PurchasedAt time.Time  `bson:"purchasedAt" json:"purchasedAt"`
	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	FailedAt    *time.Time `bson:"failedAt,omitempty" json:"failedAt,omitempty"`
	ReviewedBy  string     `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type ticketJSON Ticket

// MarshalJSON renders AmountPaid with exactly two decimals
func (t Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ticketJSON
		AmountPaid string `json:"amountPaid"`
	}{ticketJSON(t), t.AmountPaid.StringFixed(2)})
}

// TicketWithRaffle pairs a ticket with its raffle's title for listings
type TicketWithRaffle struct {
	Ticket      `bson:",inline"`
	RaffleTitle string `bson:"raffleTitle" json:"raffleTitle"`
}

// MarshalJSON keeps RaffleTitle next to the promoted ticket fields
func (t TicketWithRaffle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ticketJSON
		AmountPaid  string `json:"amountPaid"`
		RaffleTitle string `json:"raffleTitle"`
	}{ticketJSON(t.Ticket), t.AmountPaid.StringFixed(2), t.RaffleTitle})
}

// PurchaseRequest defines the payload for buying ticket numbers
type PurchaseRequest struct {
	TicketNumbers    []int     `json:"ticketNumbers"`
	Buyer            BuyerInfo `json:"buyer"`
	PaymentMethod    string    `json:"paymentMethod" binding:"required"`
	PaymentReference string    `json:"paymentReference"`
	PaymentProof     string    `json:"paymentProof"`
	PaymentComment   string    `json:"paymentComment"`
}

// PurchaseResult is returned after a successful purchase
type PurchaseResult struct {
	PurchaseID       string               `json:"purchaseId"`
	TicketIDs        []primitive.ObjectID `json:"ticketIds"`
	TicketNumbers    []int                `json:"ticketNumbers"`
	TotalAmountUSD   decimal.Decimal      `json:"totalAmountUsd"`
	TotalAmountLocal decimal.Decimal      `json:"totalAmountLocal"`
	Currency         string               `json:"currency"`
	TotalAmount      decimal.Decimal      `json:"totalAmount"` // in Currency
	RateVersion      int64                `json:"rateVersion"`
}

// ReviewRequest carries an optional administrator comment
type ReviewRequest struct {
	Comment string `json:"comment"`
}

type purchaseResultJSON PurchaseResult

// MarshalJSON renders every total with exactly two decimals
func (r PurchaseResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		purchaseResultJSON
		TotalAmountUSD   string `json:"totalAmountUsd"`
		TotalAmountLocal string `json:"totalAmountLocal"`
		TotalAmount      string `json:"totalAmount"`
	}{
		purchaseResultJSON(r),
		r.TotalAmountUSD.StringFixed(2),
		r.TotalAmountLocal.StringFixed(2),
		r.TotalAmount.StringFixed(2),
	})
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Winner represents the recorded outcome of a raffle draw
type Winner struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID     primitive.ObjectID `bson:"raffleId" json:"raffleId"`
	TicketID     primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	TicketNumber int                `bson:"ticketNumber" json:"ticketNumber"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PrizeTitle   string             `bson:"prizeTitle" json:"prizeTitle"`
	DrawDate     time.Time          `bson:"drawDate" json:"drawDate"`
	VideoURL     string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Claimed      bool               `bson:"claimed" json:"claimed"`
	ClaimedAt    *time.Time         `bson:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecordWinnerRequest defines the payload for recording a draw result
type RecordWinnerRequest struct {
	TicketNumber *int      `json:"ticketNumber" binding:"required"`
	PrizeTitle   string    `json:"prizeTitle" binding:"required"`
	DrawDate     time.Time `json:"drawDate"`
	VideoURL     string    `json:"videoUrl"`
}

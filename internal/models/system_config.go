package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExchangeRateKey is the system config key holding the USD -> local rate
const ExchangeRateKey = "exchange_rate_usd_local"

// SystemConfig represents a configuration setting stored in the database
type SystemConfig struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key         string             `bson:"key" json:"key"`
	Value       interface{}        `bson:"value" json:"value"` // Can store various types (string, number, bool, array, object)
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	UpdatedBy   string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

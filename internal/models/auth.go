package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles carried in identity tokens
const (
	RoleAdmin = "admin"
	RoleBuyer = "buyer"
)

// LoginRequest defines the structure for admin login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminUser represents an account allowed to review payments and manage raffles
type AdminUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Identity is the verified caller attached to a request by the auth middleware
type Identity struct {
	Subject string
	Email   string
	Role    string
}

// IsAdmin reports whether the caller carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

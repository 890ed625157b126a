package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bibliophile/server/internal/auth"
)

// User is a marketplace account keyed by email.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Email        string             `bson:"email" json:"email"`
	PhotoURL     string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Role         auth.Role          `bson:"role" json:"role"`
	VerifyStatus bool               `bson:"verifyStatus" json:"verifyStatus"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
}

// HasRole reports whether the user holds exactly role.
func (u *User) HasRole(role auth.Role) bool {
	return u != nil && u.Role == role
}

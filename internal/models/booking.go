package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking is a buyer's reservation of a listing pending payment.
// Paid goes from false to true once, when the payment is confirmed.
type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	BuyerEmail      string             `bson:"email" json:"email"`
	BuyerName       string             `bson:"buyerName,omitempty" json:"buyerName,omitempty"`
	BookID          string             `bson:"bookId" json:"bookId"`
	BookName        string             `bson:"bookName,omitempty" json:"bookName,omitempty"`
	Image           string             `bson:"image,omitempty" json:"image,omitempty"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	MeetingLocation string             `bson:"meetingLocation,omitempty" json:"meetingLocation,omitempty"`
	ResalePrice     float64            `bson:"resalePrice" json:"resalePrice"`
	Paid            bool               `bson:"paid" json:"paid"`
	TransactionID   string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
}

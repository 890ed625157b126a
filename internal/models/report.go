package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report is one reporter's complaint about a listing. ReportID holds the book id.
type Report struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email     string             `bson:"email" json:"email"`
	ReportID  string             `bson:"reportId" json:"reportId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookStatus is the sale state of a listing.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusSold      BookStatus = "sold"
)

// Book is a secondhand book offered for resale by a seller.
type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	CategoryID    string             `bson:"category_id" json:"category_id"`
	SellerEmail   string             `bson:"sellerEmail" json:"sellerEmail"`
	SellerName    string             `bson:"sellerName,omitempty" json:"sellerName,omitempty"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	CoverKey      string             `bson:"coverKey,omitempty" json:"coverKey,omitempty"` // S3 key of the processed cover
	Location      string             `bson:"location,omitempty" json:"location,omitempty"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	OriginalPrice float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	ResalePrice   float64            `bson:"resalePrice" json:"resalePrice"`
	YearsOfUse    float64            `bson:"yearsOfUse,omitempty" json:"yearsOfUse,omitempty"`
	Condition     string             `bson:"condition,omitempty" json:"condition,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Status        BookStatus         `bson:"status" json:"status"`
	Advertise     bool               `bson:"advertise" json:"advertise"`
	Report        bool               `bson:"report" json:"report"`
	PostedAt      time.Time          `bson:"postedAt,omitempty" json:"postedAt"`
}

// BookFilter selects listings. Zero-valued fields do not constrain the query.
type BookFilter struct {
	CategoryID  string
	Status      BookStatus
	SellerEmail string
	Advertised  bool
	Reported    bool
}

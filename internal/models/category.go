package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Category struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CategoryID string             `bson:"category_id" json:"category_id"`
	Name       string             `bson:"name" json:"name"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
}

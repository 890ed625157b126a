package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bibliophile/server/internal/db"
	"bibliophile/server/internal/models"
)

// ICategoryService lists the read-only book categories.
type ICategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
}

type categoryService struct {
	db *mongo.Database
}

func NewCategoryService(database *mongo.Database) ICategoryService {
	return &categoryService{db: database}
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.db.Collection(db.CategoriesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

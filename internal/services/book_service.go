package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bibliophile/server/internal/db"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/models"
)

// IBookService defines the interface for listing operations.
type IBookService interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	FindByID(ctx context.Context, bookID string) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	SetAdvertised(ctx context.Context, bookID string) (*UpdateResult, error)
	SetReported(ctx context.Context, bookID string) (*UpdateResult, error)
	MarkSold(ctx context.Context, bookID string) error
	SetCoverImage(ctx context.Context, bookID, key string) error
	Delete(ctx context.Context, bookID string) (int64, error)
}

// bookService implements IBookService.
type bookService struct {
	db *mongo.Database
}

// NewBookService creates a new BookService.
func NewBookService(database *mongo.Database) IBookService {
	return &bookService{db: database}
}

func (s *bookService) books() *mongo.Collection {
	return s.db.Collection(db.BooksCollection)
}

func filterToBSON(filter models.BookFilter) bson.M {
	query := bson.M{}
	if filter.CategoryID != "" {
		query["category_id"] = filter.CategoryID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.SellerEmail != "" {
		query["sellerEmail"] = filter.SellerEmail
	}
	if filter.Advertised {
		query["advertise"] = true
	}
	if filter.Reported {
		query["report"] = true
	}
	return query
}

// List returns listings matching filter in insertion order. Never nil.
func (s *bookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	cursor, err := s.books().Find(ctx, filterToBSON(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}
	return books, nil
}

// FindByID returns the listing or mongo.ErrNoDocuments.
func (s *bookService) FindByID(ctx context.Context, bookID string) (*models.Book, error) {
	oid, err := parseObjectID(bookID)
	if err != nil {
		return nil, err
	}
	var book models.Book
	if err := s.books().FindOne(ctx, bson.M{"_id": oid}).Decode(&book); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding book %s: %w", bookID, err)
	}
	return &book, nil
}

// Create inserts a new listing. Sale state and moderation flags are always
// reset regardless of what the caller supplied.
func (s *bookService) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	book.ID = primitive.NewObjectID()
	book.Status = models.BookStatusAvailable
	book.Advertise = false
	book.Report = false
	book.CoverKey = ""
	book.PostedAt = time.Now().UTC()

	if _, err := s.books().InsertOne(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to insert book for seller %s: %w", book.SellerEmail, err)
	}
	logging.L().Info("book listed",
		zap.String("book_id", book.ID.Hex()),
		zap.String("seller", book.SellerEmail),
		zap.String("category_id", book.CategoryID))
	return book, nil
}

// SetAdvertised flags the listing as advertised. Upserts on an unknown id.
func (s *bookService) SetAdvertised(ctx context.Context, bookID string) (*UpdateResult, error) {
	return s.upsertFlag(ctx, bookID, "advertise")
}

// SetReported flags the listing as reported. Upserts on an unknown id.
func (s *bookService) SetReported(ctx context.Context, bookID string) (*UpdateResult, error) {
	return s.upsertFlag(ctx, bookID, "report")
}

func (s *bookService) upsertFlag(ctx context.Context, bookID, field string) (*UpdateResult, error) {
	oid, err := parseObjectID(bookID)
	if err != nil {
		return nil, err
	}
	opts := options.Update().SetUpsert(true)
	result, err := s.books().UpdateByID(ctx, oid, bson.M{"$set": bson.M{field: true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error setting %s on book %s: %w", field, bookID, err)
	}
	if result.UpsertedCount > 0 {
		logging.L().Warn("book flag created a new record", zap.String("book_id", bookID), zap.String("field", field))
	}
	return newUpdateResult(result), nil
}

// MarkSold sets status to sold. Returns mongo.ErrNoDocuments if the listing
// does not exist; never creates one.
func (s *bookService) MarkSold(ctx context.Context, bookID string) error {
	return s.setExisting(ctx, bookID, bson.M{"status": models.BookStatusSold})
}

// SetCoverImage records the S3 key of the processed cover.
func (s *bookService) SetCoverImage(ctx context.Context, bookID, key string) error {
	return s.setExisting(ctx, bookID, bson.M{"coverKey": key})
}

func (s *bookService) setExisting(ctx context.Context, bookID string, fields bson.M) error {
	oid, err := parseObjectID(bookID)
	if err != nil {
		return err
	}
	result, err := s.books().UpdateByID(ctx, oid, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("error updating book %s: %w", bookID, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes the listing. Deleting a missing id is not an error.
func (s *bookService) Delete(ctx context.Context, bookID string) (int64, error) {
	oid, err := parseObjectID(bookID)
	if err != nil {
		return 0, err
	}
	result, err := s.books().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("error deleting book %s: %w", bookID, err)
	}
	return result.DeletedCount, nil
}

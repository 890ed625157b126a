package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"bibliophile/server/internal/db"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/metrics"
	"bibliophile/server/internal/models"
)

// IReportService records user reports against listings.
type IReportService interface {
	SubmitReport(ctx context.Context, reporterEmail, bookID string) (*UpdateResult, error)
}

type reportService struct {
	db    *mongo.Database
	books IBookService
}

// NewReportService creates a new ReportService.
func NewReportService(database *mongo.Database, books IBookService) IReportService {
	return &reportService{db: database, books: books}
}

// SubmitReport flags the book as reported and stores one report per
// (reporter, book). A repeat report returns ErrAlreadyReported and writes nothing.
func (s *reportService) SubmitReport(ctx context.Context, reporterEmail, bookID string) (*UpdateResult, error) {
	if _, err := parseObjectID(bookID); err != nil {
		return nil, err
	}

	reports := s.db.Collection(db.ReportsCollection)
	filter := bson.M{"email": reporterEmail, "reportId": bookID}

	err := reports.FindOne(ctx, filter).Err()
	if err == nil {
		metrics.ReportsSubmittedTotal.WithLabelValues("duplicate").Inc()
		return nil, ErrAlreadyReported
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error checking report by %s on %s: %w", reporterEmail, bookID, err)
	}

	// The flag is set before the report row exists, so a failure here leaves
	// nothing behind and the reporter can retry.
	result, err := s.books.SetReported(ctx, bookID)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:        primitive.NewObjectID(),
		Email:     reporterEmail,
		ReportID:  bookID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := reports.InsertOne(ctx, report); err != nil {
		// The unique (email, reportId) index catches a concurrent duplicate.
		if db.IsMongoDuplicateKeyError(err) {
			metrics.ReportsSubmittedTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrAlreadyReported
		}
		return nil, fmt.Errorf("failed to insert report by %s on %s: %w", reporterEmail, bookID, err)
	}
	metrics.ReportsSubmittedTotal.WithLabelValues("accepted").Inc()
	logging.L().Info("book reported", zap.String("book_id", bookID), zap.String("reporter", reporterEmail))
	return result, nil
}

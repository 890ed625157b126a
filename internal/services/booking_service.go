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

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/db"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/metrics"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/payment"
)

// IBookingService covers a booking from reservation to confirmed payment.
type IBookingService interface {
	CreateBooking(ctx context.Context, buyerEmail string, booking *models.Booking) (*models.Booking, error)
	ListByBuyer(ctx context.Context, buyerEmail string) ([]models.Booking, error)
	FindByID(ctx context.Context, bookingID string) (*models.Booking, error)
	CreatePaymentIntent(ctx context.Context, resalePrice float64) (*payment.Intent, error)
	ConfirmPayment(ctx context.Context, buyerEmail string, p *models.Payment) (*models.Payment, error)
}

// bookingService implements IBookingService.
type bookingService struct {
	db        *mongo.Database
	cfg       *config.Config
	processor payment.Processor
	books     IBookService
	notifier  INotifier
}

// NewBookingService creates a new BookingService. notifier may be nil.
func NewBookingService(database *mongo.Database, cfg *config.Config, processor payment.Processor, books IBookService, notifier INotifier) IBookingService {
	return &bookingService{
		db:        database,
		cfg:       cfg,
		processor: processor,
		books:     books,
		notifier:  notifier,
	}
}

func (s *bookingService) bookings() *mongo.Collection {
	return s.db.Collection(db.BookingsCollection)
}

// CreateBooking records a reservation by buyerEmail. Availability of the book
// is not checked, so two buyers can hold bookings for the same listing.
func (s *bookingService) CreateBooking(ctx context.Context, buyerEmail string, booking *models.Booking) (*models.Booking, error) {
	booking.ID = primitive.NewObjectID()
	booking.BuyerEmail = buyerEmail
	booking.Paid = false
	booking.TransactionID = ""
	booking.CreatedAt = time.Now().UTC()

	if _, err := s.bookings().InsertOne(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to insert booking for %s: %w", buyerEmail, err)
	}
	metrics.BookingsCreatedTotal.Inc()
	logging.L().Info("booking created",
		zap.String("booking_id", booking.ID.Hex()),
		zap.String("book_id", booking.BookID),
		zap.String("buyer", buyerEmail))

	if book := s.lookupBook(ctx, booking.BookID); book != nil {
		notify(ctx, s.notifier, book.SellerEmail, TemplateBookingCreated, map[string]interface{}{
			"book_name":        book.Name,
			"buyer_name":       booking.BuyerName,
			"buyer_email":      buyerEmail,
			"phone":            booking.Phone,
			"meeting_location": booking.MeetingLocation,
			"price":            booking.ResalePrice,
		})
	}
	return booking, nil
}

// ListByBuyer returns the buyer's bookings. Never nil.
func (s *bookingService) ListByBuyer(ctx context.Context, buyerEmail string) ([]models.Booking, error) {
	cursor, err := s.bookings().Find(ctx, bson.M{"email": buyerEmail})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for %s: %w", buyerEmail, err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings for %s: %w", buyerEmail, err)
	}
	return bookings, nil
}

// FindByID returns the booking or mongo.ErrNoDocuments.
func (s *bookingService) FindByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	oid, err := parseObjectID(bookingID)
	if err != nil {
		return nil, err
	}
	var booking models.Booking
	if err := s.bookings().FindOne(ctx, bson.M{"_id": oid}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

// CreatePaymentIntent asks the processor for an intent covering resalePrice in
// the configured currency.
func (s *bookingService) CreatePaymentIntent(ctx context.Context, resalePrice float64) (*payment.Intent, error) {
	amount, err := payment.MinorUnits(resalePrice)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	intent, err := s.processor.CreatePaymentIntent(ctx, amount, s.cfg.PaymentCurrency)
	metrics.PaymentIntentLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create payment intent for %d %s: %w", amount, s.cfg.PaymentCurrency, err)
	}
	metrics.PaymentIntentsTotal.WithLabelValues("created").Inc()
	return intent, nil
}

// ConfirmPayment records p and then marks its booking paid and its book sold.
// Only the buyer who made the booking may confirm it.
// The three writes are independent. Once the payment is stored, a later
// failure is returned as *PaymentConsistencyError and nothing is undone.
func (s *bookingService) ConfirmPayment(ctx context.Context, buyerEmail string, p *models.Payment) (*models.Payment, error) {
	booking, err := s.FindByID(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.BuyerEmail != buyerEmail {
		return nil, fmt.Errorf("%w: booking %s", ErrNotBookingOwner, p.BookingID)
	}
	if booking.Paid {
		return nil, ErrBookingAlreadyPaid
	}
	if p.BookID == "" {
		p.BookID = booking.BookID
	} else if p.BookID != booking.BookID {
		return nil, fmt.Errorf("%w: booking %s is for book %s, payment names %s",
			ErrBookingMismatch, p.BookingID, booking.BookID, p.BookID)
	}
	if p.Price == 0 {
		p.Price = booking.ResalePrice
	}

	p.ID = primitive.NewObjectID()
	p.Email = buyerEmail
	p.CreatedAt = time.Now().UTC()

	log := logging.L().With(
		zap.String("payment_id", p.ID.Hex()),
		zap.String("booking_id", p.BookingID),
		zap.String("book_id", p.BookID),
		zap.String("transaction_id", p.TransactionID))

	if _, err := s.db.Collection(db.PaymentsCollection).InsertOne(ctx, p); err != nil {
		metrics.PaymentConfirmFailuresTotal.WithLabelValues(StepPayment).Inc()
		return nil, fmt.Errorf("failed to insert payment for booking %s: %w", p.BookingID, err)
	}

	// Only an unpaid booking is updated, so a concurrent confirmation of the
	// same booking cannot overwrite the first transaction id.
	result, err := s.bookings().UpdateOne(ctx,
		bson.M{"_id": booking.ID, "paid": false},
		bson.M{"$set": bson.M{"paid": true, "transactionId": p.TransactionID}})
	if err == nil && result.MatchedCount == 0 {
		err = ErrBookingAlreadyPaid
	}
	if err != nil {
		return nil, s.partialFailure(log, StepBooking, p.ID, err)
	}

	if err := s.books.MarkSold(ctx, p.BookID); err != nil {
		return nil, s.partialFailure(log, StepBook, p.ID, err)
	}

	metrics.PaymentsConfirmedTotal.Inc()
	log.Info("payment confirmed")

	notify(ctx, s.notifier, buyerEmail, TemplatePaymentConfirmed, map[string]interface{}{
		"book_name":      booking.BookName,
		"price":          p.Price,
		"transaction_id": p.TransactionID,
	})
	if book := s.lookupBook(ctx, p.BookID); book != nil {
		notify(ctx, s.notifier, book.SellerEmail, TemplateBookSold, map[string]interface{}{
			"book_name":   book.Name,
			"buyer_email": buyerEmail,
			"price":       p.Price,
		})
	}
	return p, nil
}

func (s *bookingService) partialFailure(log *zap.Logger, step string, paymentID primitive.ObjectID, err error) error {
	metrics.PaymentConfirmFailuresTotal.WithLabelValues(step).Inc()
	log.Error("payment recorded but confirmation incomplete", zap.String("failed_step", step), zap.Error(err))
	return &PaymentConsistencyError{Step: step, PaymentID: paymentID, Err: err}
}

// lookupBook loads a listing for notification content. Failures only cost the
// notification.
func (s *bookingService) lookupBook(ctx context.Context, bookID string) *models.Book {
	if s.notifier == nil || s.books == nil {
		return nil
	}
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		logging.L().Debug("book lookup for notification failed", zap.String("book_id", bookID), zap.Error(err))
		return nil
	}
	return book
}

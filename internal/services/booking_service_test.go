package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/db"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/payment"
	"bibliophile/server/internal/utils"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string) (*payment.Intent, error) {
	args := m.Called(ctx, amountMinor, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	args := m.Called(ctx, to, templateID, data)
	return args.Error(0)
}

type bookingFixture struct {
	db        *mongo.Database
	books     IBookService
	bookings  IBookingService
	processor *mockProcessor
	notifier  *mockNotifier
}

func setupBookingService(t *testing.T) *bookingFixture {
	database := utils.SetupTestDB(t, "test_bookings",
		db.BooksCollection, db.BookingsCollection, db.PaymentsCollection)
	f := &bookingFixture{
		db:        database,
		books:     NewBookService(database),
		processor: new(mockProcessor),
		notifier:  new(mockNotifier),
	}
	cfg := &config.Config{PaymentCurrency: "usd"}
	f.bookings = NewBookingService(database, cfg, f.processor, f.books, f.notifier)
	return f
}

func (f *bookingFixture) listAndBook(t *testing.T, buyer string, price float64) (*models.Book, *models.Booking) {
	ctx := context.Background()
	book, err := f.books.Create(ctx, &models.Book{Name: "Dune", CategoryID: "1", SellerEmail: "seller@x.io", ResalePrice: price})
	require.NoError(t, err)
	booking, err := f.bookings.CreateBooking(ctx, buyer, &models.Booking{
		BookID:      book.ID.Hex(),
		BookName:    book.Name,
		BuyerName:   "Buyer",
		ResalePrice: price,
	})
	require.NoError(t, err)
	return book, booking
}

func TestBookingService_CreateBooking_NotifiesSeller(t *testing.T) {
	f := setupBookingService(t)
	f.notifier.On("Notify", mock.Anything, "seller@x.io", TemplateBookingCreated, mock.Anything).Return(nil).Once()

	_, booking := f.listAndBook(t, "b@x.io", 20)

	assert.Equal(t, "b@x.io", booking.BuyerEmail)
	assert.False(t, booking.Paid)

	list, err := f.bookings.ListByBuyer(context.Background(), "b@x.io")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, booking.ID, list[0].ID)

	f.notifier.AssertExpectations(t)
}

func TestBookingService_NotifierFailureIsNotReturned(t *testing.T) {
	f := setupBookingService(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, booking := f.listAndBook(t, "b@x.io", 20)
	assert.False(t, booking.ID.IsZero())
}

func TestBookingService_ConfirmPayment_OnlyTouchesTarget(t *testing.T) {
	f := setupBookingService(t)
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	book, booking := f.listAndBook(t, "b@x.io", 20)
	otherBook, otherBooking := f.listAndBook(t, "c@x.io", 15)

	p, err := f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{
		BookingID:     booking.ID.Hex(),
		BookID:        book.ID.Hex(),
		TransactionID: "pi_123",
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.Price, "price defaults to the booking's resale price")
	assert.Equal(t, "b@x.io", p.Email)

	paid, err := f.bookings.FindByID(ctx, booking.ID.Hex())
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, "pi_123", paid.TransactionID)

	sold, err := f.books.FindByID(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusSold, sold.Status)

	untouched, err := f.bookings.FindByID(ctx, otherBooking.ID.Hex())
	require.NoError(t, err)
	assert.False(t, untouched.Paid)
	stillAvailable, err := f.books.FindByID(ctx, otherBook.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusAvailable, stillAvailable.Status)

	count, err := f.db.Collection(db.PaymentsCollection).CountDocuments(ctx, bson.M{"bookingId": booking.ID.Hex()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	f.notifier.AssertCalled(t, "Notify", mock.Anything, "b@x.io", TemplatePaymentConfirmed, mock.Anything)
	f.notifier.AssertCalled(t, "Notify", mock.Anything, "seller@x.io", TemplateBookSold, mock.Anything)
}

func TestBookingService_ConfirmPayment_PreChecks(t *testing.T) {
	f := setupBookingService(t)
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	book, booking := f.listAndBook(t, "b@x.io", 20)

	_, err := f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{BookingID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{BookingID: "bad"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{
		BookingID: booking.ID.Hex(),
		BookID:    primitive.NewObjectID().Hex(),
	})
	assert.ErrorIs(t, err, ErrBookingMismatch)

	// Another buyer cannot pay for this booking.
	_, err = f.bookings.ConfirmPayment(ctx, "other@x.io", &models.Payment{BookingID: booking.ID.Hex(), TransactionID: "pi_0"})
	assert.ErrorIs(t, err, ErrNotBookingOwner)
	stored, err := f.bookings.FindByID(ctx, booking.ID.Hex())
	require.NoError(t, err)
	assert.False(t, stored.Paid)

	_, err = f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{BookingID: booking.ID.Hex(), BookID: book.ID.Hex(), TransactionID: "pi_1"})
	require.NoError(t, err)

	_, err = f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{BookingID: booking.ID.Hex(), TransactionID: "pi_2"})
	assert.ErrorIs(t, err, ErrBookingAlreadyPaid)

	count, err := f.db.Collection(db.PaymentsCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "rejected confirmations write nothing")
}

func TestBookingService_ConfirmPayment_MissingBookIsConsistencyError(t *testing.T) {
	f := setupBookingService(t)
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	book, booking := f.listAndBook(t, "b@x.io", 20)
	_, err := f.books.Delete(ctx, book.ID.Hex())
	require.NoError(t, err)

	_, err = f.bookings.ConfirmPayment(ctx, "b@x.io", &models.Payment{BookingID: booking.ID.Hex(), TransactionID: "pi_9"})
	var consistencyErr *PaymentConsistencyError
	require.ErrorAs(t, err, &consistencyErr)
	assert.Equal(t, StepBook, consistencyErr.Step)
	assert.False(t, consistencyErr.PaymentID.IsZero())

	// The payment and booking writes stay in place.
	paid, err := f.bookings.FindByID(ctx, booking.ID.Hex())
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	count, err := f.db.Collection(db.PaymentsCollection).CountDocuments(ctx, bson.M{"_id": consistencyErr.PaymentID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, TemplateBookSold, mock.Anything)
}

func TestBookingService_CreatePaymentIntent(t *testing.T) {
	f := setupBookingService(t)
	ctx := context.Background()

	f.processor.On("CreatePaymentIntent", mock.Anything, int64(1999), "usd").
		Return(&payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: 1999, Currency: "usd"}, nil).Once()

	intent, err := f.bookings.CreatePaymentIntent(ctx, 19.99)
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)

	_, err = f.bookings.CreatePaymentIntent(ctx, 0)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	// Too large to charge; never reaches the processor.
	_, err = f.bookings.CreatePaymentIntent(ctx, 1e17)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	f.processor.On("CreatePaymentIntent", mock.Anything, int64(500), "usd").
		Return(nil, payment.ErrNotConfigured).Once()
	_, err = f.bookings.CreatePaymentIntent(ctx, 5)
	assert.ErrorIs(t, err, payment.ErrNotConfigured)

	f.processor.AssertExpectations(t)
}

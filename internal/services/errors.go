package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidID is returned when a path or body id is not a valid ObjectID.
	ErrInvalidID = errors.New("invalid id")
	// ErrAlreadyReported is returned when the reporter already reported the book.
	ErrAlreadyReported = errors.New("book already reported by this user")
	// ErrBookingAlreadyPaid is returned when a payment targets a booking that is already paid.
	ErrBookingAlreadyPaid = errors.New("booking already paid")
	// ErrNotBookingOwner is returned when a buyer confirms a booking made by someone else.
	ErrNotBookingOwner = errors.New("booking belongs to another buyer")
	// ErrBookingMismatch is returned when a payment names a book other than the booking's.
	ErrBookingMismatch = errors.New("payment book does not match booking")
)

// Steps of the payment confirmation sequence, in execution order.
const (
	StepPayment = "payment"
	StepBooking = "booking"
	StepBook    = "book"
)

// PaymentConsistencyError reports a payment confirmation that stopped after the
// payment record was written. The payment stays recorded; the booking and/or
// book named by Step were not updated and nothing was rolled back.
type PaymentConsistencyError struct {
	Step      string
	PaymentID primitive.ObjectID
	Err       error
}

func (e *PaymentConsistencyError) Error() string {
	return fmt.Sprintf("payment %s recorded but %s update failed: %v", e.PaymentID.Hex(), e.Step, e.Err)
}

func (e *PaymentConsistencyError) Unwrap() error {
	return e.Err
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

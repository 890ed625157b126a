package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bibliophile/server/internal/api/middleware"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/services"
)

// RestBookingHandler handles bookings and their payment.
type RestBookingHandler struct {
	bookingService services.IBookingService
}

// NewRestBookingHandler creates a new RestBookingHandler.
func NewRestBookingHandler(bookingService services.IBookingService) *RestBookingHandler {
	return &RestBookingHandler{bookingService: bookingService}
}

type createBookingRequest struct {
	BookID          string  `json:"bookId" binding:"required,mongodb"`
	BookName        string  `json:"bookName"`
	BuyerName       string  `json:"buyerName"`
	Image           string  `json:"image"`
	Phone           string  `json:"phone"`
	MeetingLocation string  `json:"meetingLocation"`
	ResalePrice     float64 `json:"resalePrice" binding:"gte=0"`
}

// CreateBooking handles POST /bookings. The buyer is the token holder.
func (h *RestBookingHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), middleware.EmailFromContext(c), &models.Booking{
		BookID:          req.BookID,
		BookName:        req.BookName,
		BuyerName:       req.BuyerName,
		Image:           req.Image,
		Phone:           req.Phone,
		MeetingLocation: req.MeetingLocation,
		ResalePrice:     req.ResalePrice,
	})
	if err != nil {
		respondError(c, err, "create booking")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"acknowledged": true, "insertedId": booking.ID.Hex()})
}

// ListBookings handles GET /bookings?email=. The owner check runs in middleware.
func (h *RestBookingHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListByBuyer(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, err, "list bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GetBooking handles GET /bookings/:id.
func (h *RestBookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

type paymentIntentRequest struct {
	ResalePrice float64 `json:"resalePrice" binding:"required,gt=0"`
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (h *RestBookingHandler) CreatePaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.bookingService.CreatePaymentIntent(c.Request.Context(), req.ResalePrice)
	if err != nil {
		respondError(c, err, "create payment intent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
}

type confirmPaymentRequest struct {
	BookingID     string  `json:"bookingId" binding:"required,mongodb"`
	BookID        string  `json:"bookId" binding:"omitempty,mongodb"`
	TransactionID string  `json:"transactionId" binding:"required"`
	Price         float64 `json:"price" binding:"gte=0"`
}

// ConfirmPayment handles POST /payments.
func (h *RestBookingHandler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.bookingService.ConfirmPayment(c.Request.Context(), middleware.EmailFromContext(c), &models.Payment{
		BookingID:     req.BookingID,
		BookID:        req.BookID,
		TransactionID: req.TransactionID,
		Price:         req.Price,
	})
	if err != nil {
		respondError(c, err, "confirm payment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "insertedId": p.ID.Hex()})
}

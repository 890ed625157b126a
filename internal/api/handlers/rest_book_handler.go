package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bibliophile/server/internal/api/middleware"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/services"
)

// RestBookHandler serves the catalog of listings.
type RestBookHandler struct {
	bookService services.IBookService
}

// NewRestBookHandler creates a new RestBookHandler.
func NewRestBookHandler(bookService services.IBookService) *RestBookHandler {
	return &RestBookHandler{bookService: bookService}
}

func (h *RestBookHandler) list(c *gin.Context, filter models.BookFilter) {
	books, err := h.bookService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// ListBooks handles GET /books.
func (h *RestBookHandler) ListBooks(c *gin.Context) {
	h.list(c, models.BookFilter{})
}

// ListAvailableByCategory handles GET /books/:id where :id is a category id.
// Sold listings are never returned.
func (h *RestBookHandler) ListAvailableByCategory(c *gin.Context) {
	h.list(c, models.BookFilter{CategoryID: c.Param("id"), Status: models.BookStatusAvailable})
}

// ListAdvertised handles GET /advertised.
func (h *RestBookHandler) ListAdvertised(c *gin.Context) {
	h.list(c, models.BookFilter{Advertised: true, Status: models.BookStatusAvailable})
}

// ListReported handles GET /reported.
func (h *RestBookHandler) ListReported(c *gin.Context) {
	h.list(c, models.BookFilter{Reported: true})
}

// ListMyBooks handles GET /myBooks?email=. The owner check runs in middleware.
func (h *RestBookHandler) ListMyBooks(c *gin.Context) {
	h.list(c, models.BookFilter{SellerEmail: c.Query("email")})
}

type createBookRequest struct {
	Name          string  `json:"name" binding:"required"`
	CategoryID    string  `json:"category_id" binding:"required"`
	SellerName    string  `json:"sellerName"`
	Image         string  `json:"image"`
	Location      string  `json:"location"`
	Phone         string  `json:"phone"`
	OriginalPrice float64 `json:"originalPrice" binding:"gte=0"`
	ResalePrice   float64 `json:"resalePrice" binding:"gte=0"`
	YearsOfUse    float64 `json:"yearsOfUse" binding:"gte=0"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
}

// CreateBook handles POST /books. The seller is always the token holder.
func (h *RestBookHandler) CreateBook(c *gin.Context) {
	var req createBookRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := h.bookService.Create(c.Request.Context(), &models.Book{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		SellerEmail:   middleware.EmailFromContext(c),
		SellerName:    req.SellerName,
		Image:         req.Image,
		Location:      req.Location,
		Phone:         req.Phone,
		OriginalPrice: req.OriginalPrice,
		ResalePrice:   req.ResalePrice,
		YearsOfUse:    req.YearsOfUse,
		Condition:     req.Condition,
		Description:   req.Description,
	})
	if err != nil {
		respondError(c, err, "create book")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"acknowledged": true, "insertedId": book.ID.Hex()})
}

// AdvertiseBook handles PUT /books/:id.
func (h *RestBookHandler) AdvertiseBook(c *gin.Context) {
	result, err := h.bookService.SetAdvertised(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "advertise book")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteBook handles DELETE /books/:id and DELETE /reported/:id.
func (h *RestBookHandler) DeleteBook(c *gin.Context) {
	deleted, err := h.bookService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "delete book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "deletedCount": deleted})
}

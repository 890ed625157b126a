package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"bibliophile/server/internal/api/middleware"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/services"
	"bibliophile/server/internal/storage"
	"bibliophile/server/internal/tasks"
)

// IAsynqClient defines the interface for the Asynq client methods used by the handler.
// This allows easier mocking than using the concrete asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestCoverHandler lets sellers upload a cover image for their own listing.
// Uploads go straight to S3 through a presigned URL; a background task
// normalizes the image and attaches it to the book.
type RestCoverHandler struct {
	bookService    services.IBookService
	storageService storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestCoverHandler creates a new RestCoverHandler.
func NewRestCoverHandler(bookService services.IBookService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestCoverHandler {
	return &RestCoverHandler{
		bookService:    bookService,
		storageService: storageService,
		taskClient:     taskClient,
	}
}

// ownBook aborts unless the book exists and belongs to the caller.
func (h *RestCoverHandler) ownBook(c *gin.Context) (string, bool) {
	bookID := c.Param("id")
	book, err := h.bookService.FindByID(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err, "retrieve book")
		return "", false
	}
	if book.SellerEmail != middleware.EmailFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
		return "", false
	}
	return bookID, true
}

type coverUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// GetUploadURL handles POST /books/:id/cover-upload-url.
func (h *RestCoverHandler) GetUploadURL(c *gin.Context) {
	var req coverUploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	bookID, ok := h.ownBook(c)
	if !ok {
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), bookID, req.ContentType)
	if err != nil {
		respondError(c, err, "generate upload URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}

type confirmCoverRequest struct {
	Key string `json:"key" binding:"required"`
}

// ConfirmUpload handles POST /books/:id/cover. Processing happens in the
// background; the response only acknowledges that it was scheduled.
func (h *RestCoverHandler) ConfirmUpload(c *gin.Context) {
	var req confirmCoverRequest
	if !bindJSON(c, &req) {
		return
	}
	bookID, ok := h.ownBook(c)
	if !ok {
		return
	}
	if !strings.HasPrefix(req.Key, storage.UploadPrefix(bookID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key does not belong to this book"})
		return
	}

	task, err := tasks.NewImageProcessTask(bookID, req.Key)
	if err != nil {
		respondError(c, err, "schedule image processing")
		return
	}
	info, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logging.L().Error("Failed to enqueue cover processing", zap.String("bookId", bookID), zap.String("key", req.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule image processing"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Cover upload confirmed, processing scheduled", "taskId": info.ID})
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"

	"bibliophile/server/internal/payment"
	"bibliophile/server/internal/services"
	"bibliophile/server/internal/storage"
)

// ValidationError is the 400 body for requests that fail binding rules.
type ValidationError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json names instead of Go
// field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the body into obj and answers 400 when it is malformed or
// breaks a binding rule. It reports whether the handler should continue.
func bindJSON(c *gin.Context, obj interface{}) bool {
	useJSONFieldNames()
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonFieldName(fe)] = fieldMessage(fe)
		}
		c.JSON(http.StatusBadRequest, ValidationError{Error: "Validation failed", Fields: fields})
		return false
	}

	c.JSON(http.StatusBadRequest, ValidationError{Error: "Invalid request body"})
	return false
}

func jsonFieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "mongodb":
		return "must be a valid id"
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

// respondError maps service errors onto HTTP responses. action completes the
// message for unexpected failures, e.g. "create booking".
func respondError(c *gin.Context, err error, action string) {
	var consistencyErr *services.PaymentConsistencyError

	switch {
	case errors.As(err, &consistencyErr):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Payment recorded but confirmation incomplete",
			"failedStep": consistencyErr.Step,
			"paymentId":  consistencyErr.PaymentID.Hex(),
		})
	case errors.Is(err, services.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id format"})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrBookingAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking already paid"})
	case errors.Is(err, services.ErrNotBookingOwner):
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
	case errors.Is(err, services.ErrBookingMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment does not match booking"})
	case errors.Is(err, payment.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a positive chargeable amount"})
	case errors.Is(err, storage.ErrUnsupportedContentType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
	case errors.Is(err, payment.ErrNotConfigured), errors.Is(err, storage.ErrNotConfigured):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to " + action + ": service not configured"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bibliophile/server/internal/api/handlers"
	"bibliophile/server/internal/api/middleware"
	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/config"
	"bibliophile/server/internal/email"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/services"
	"bibliophile/server/internal/storage"
)

// outboxWait bounds how long getTestEmail waits for a captured message.
const outboxWait = 2 * time.Second

// TokenService is what the router needs from the identity token service.
type TokenService interface {
	handlers.TokenIssuer
	middleware.TokenVerifier
}

// Dependencies are the services the public API is built from.
type Dependencies struct {
	Config     *config.Config
	Tokens     TokenService
	Users      services.IUserService
	Books      services.IBookService
	Categories services.ICategoryService
	Bookings   services.IBookingService
	Reports    services.IReportService
	Storage    storage.IS3Storage
	TaskClient handlers.IAsynqClient
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware(deps.Config.CORSAllowedOrigin))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(gin.Recovery())

	authHandler := handlers.NewRestAuthHandler(deps.Tokens)
	userHandler := handlers.NewRestUserHandler(deps.Users)
	bookHandler := handlers.NewRestBookHandler(deps.Books)
	categoryHandler := handlers.NewRestCategoryHandler(deps.Categories)
	bookingHandler := handlers.NewRestBookingHandler(deps.Bookings)
	reportHandler := handlers.NewRestReportHandler(deps.Reports)
	coverHandler := handlers.NewRestCoverHandler(deps.Books, deps.Storage, deps.TaskClient)

	authn := middleware.AuthMiddleware(deps.Tokens)
	admin := middleware.RequireRole(deps.Users, auth.RoleAdmin)
	seller := middleware.RequireRole(deps.Users, auth.RoleSeller)
	buyer := middleware.RequireRole(deps.Users, auth.RoleBuyer)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "bibliophile server is running")
	})

	// Public routes
	r.POST("/jwt", authHandler.IssueToken)
	r.POST("/users", userHandler.RegisterUser)
	r.GET("/users/admin/:email", userHandler.CheckRole(auth.RoleAdmin, "isAdmin"))
	r.GET("/users/seller/:email", userHandler.CheckRole(auth.RoleSeller, "isSeller"))
	r.GET("/users/buyer/:email", userHandler.CheckRole(auth.RoleBuyer, "isBuyer"))
	r.GET("/verifiedSeller", userHandler.GetVerifiedSeller)
	r.GET("/categories", categoryHandler.ListCategories)
	r.GET("/books", bookHandler.ListBooks)
	r.GET("/books/:id", bookHandler.ListAvailableByCategory)
	r.GET("/advertised", bookHandler.ListAdvertised)
	r.GET("/bookings/:id", bookingHandler.GetBooking)

	// Any signed-in user
	r.PUT("/reported/:id", authn, reportHandler.ReportBook)

	// Buyers
	r.GET("/bookings", authn, buyer, middleware.RequireQueryOwner("email"), bookingHandler.ListBookings)
	r.POST("/bookings", authn, buyer, bookingHandler.CreateBooking)
	r.POST("/create-payment-intent", authn, buyer, bookingHandler.CreatePaymentIntent)
	r.POST("/payments", authn, buyer, bookingHandler.ConfirmPayment)

	// Sellers
	r.GET("/myBooks", authn, seller, middleware.RequireQueryOwner("email"), bookHandler.ListMyBooks)
	r.POST("/books", authn, seller, bookHandler.CreateBook)
	r.PUT("/books/:id", authn, seller, bookHandler.AdvertiseBook)
	r.DELETE("/books/:id", authn, seller, bookHandler.DeleteBook)
	r.POST("/books/:id/cover-upload-url", authn, seller, coverHandler.GetUploadURL)
	r.POST("/books/:id/cover", authn, seller, coverHandler.ConfirmUpload)

	// Admins
	adminGroup := r.Group("/")
	adminGroup.Use(authn, admin)
	{
		adminGroup.GET("/buyers", userHandler.ListByRole(auth.RoleBuyer))
		adminGroup.GET("/sellers", userHandler.ListByRole(auth.RoleSeller))
		adminGroup.DELETE("/buyers/:id", userHandler.DeleteUser)
		adminGroup.DELETE("/sellers/:id", userHandler.DeleteUser)
		adminGroup.PUT("/sellers/:id", userHandler.VerifySeller)
		adminGroup.PUT("/users/:id/role", userHandler.SetRole)
		adminGroup.GET("/reported", bookHandler.ListReported)
		adminGroup.DELETE("/reported/:id", bookHandler.DeleteBook)
	}

	return r
}

// Outbox reads captured messages when outgoing mail is mocked.
type Outbox interface {
	PopMessage(ctx context.Context, to string) (*email.OutboxMessage, error)
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// SetupServiceRouter configures and returns the service Gin engine. outbox may
// be nil when mail is not mocked.
func SetupServiceRouter(outbox Outbox, checks map[string]HealthCheck, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.L().Warn("health check failed", zap.String("check", name), zap.Error(err))
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		c.JSON(status, gin.H{"success": status == http.StatusOK, "checks": result})
	})

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "ping":
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "pong"})
		case "shutdown":
			logging.L().Info("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logging.L().Info("shutdown already signaled")
			}
		case "getTestEmail":
			if outbox == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Mail capture is not enabled"})
				return
			}
			var args []string // ["email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 || args[0] == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}
			msg, err := pollOutbox(c.Request.Context(), outbox, args[0])
			if errors.Is(err, email.ErrNoMessage) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("No captured email for %s", args[0])})
				return
			}
			if err != nil {
				logging.L().Error("service API: reading outbox failed", zap.String("to", args[0]), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollOutbox waits up to outboxWait for mail delivered by a background task.
func pollOutbox(ctx context.Context, outbox Outbox, to string) (*email.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, outboxWait)
	defer cancel()

	for {
		msg, err := outbox.PopMessage(ctx, to)
		if err == nil {
			return msg, nil
		}
		if ctx.Err() != nil {
			return nil, email.ErrNoMessage
		}
		if !errors.Is(err, email.ErrNoMessage) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, email.ErrNoMessage
		case <-time.After(200 * time.Millisecond):
		}
	}
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"bibliophile/server/internal/api"
	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/cache"
	"bibliophile/server/internal/config"
	"bibliophile/server/internal/db"
	"bibliophile/server/internal/email"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/payment"
	"bibliophile/server/internal/services"
	"bibliophile/server/internal/storage"
	"bibliophile/server/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		logging.L().Fatal("failed to load configuration", zap.Error(err))
	}
	if err := logging.Init(cfg.AppEnv); err != nil {
		logging.L().Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logging.Sync()
	log := logging.L()

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	if err := db.EnsureIndexes(context.Background(), mongoDb); err != nil {
		log.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Error("error disconnecting from Redis", zap.Error(err))
		}
	}()

	storageService, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// Initialize Email Sender
	var primaryEmailSender email.Sender
	var outbox *email.RedisSender
	if cfg.MockServices {
		log.Info("MOCK_SERVICES enabled: capturing email in Redis")
		outbox = email.NewRedisSender(redisClient, cfg)
		primaryEmailSender = outbox
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			log.Warn("failed to initialize file email sender, continuing without it",
				zap.String("path", cfg.EmailLogFile), zap.Error(err))
		} else {
			compositeSender.AddSender(fileSender)
		}
	}

	// Initialize Task Client
	taskClient := tasks.NewClient(redisClient)
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Error("error closing task client", zap.Error(err))
		}
	}()

	// Initialize Services
	tokenService := auth.NewTokenService(cfg.JwtSecret, cfg.JwtTTL)
	userService := services.NewUserService(mongoDb)
	bookService := services.NewBookService(mongoDb)
	categoryService := services.NewCategoryService(mongoDb)
	bookingService := services.NewBookingService(mongoDb, cfg, payment.NewStripeProcessor(cfg), bookService, tasks.NewNotifier(taskClient))
	reportService := services.NewReportService(mongoDb, bookService)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)

	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, storageService, bookService, emailTemplateService)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Start Service API (always runs)
	var serviceOutbox api.Outbox
	if outbox != nil {
		serviceOutbox = outbox
	}
	serviceRouter := api.SetupServiceRouter(serviceOutbox, map[string]api.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
		"redis": func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
	}, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("service API ListenAndServe error", zap.Error(err))
		}
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	log.Info("starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		mainApiRouter := api.SetupRouter(api.Dependencies{
			Config:     cfg,
			Tokens:     tokenService,
			Users:      userService,
			Books:      bookService,
			Categories: categoryService,
			Bookings:   bookingService,
			Reports:    reportService,
			Storage:    storageService,
			TaskClient: taskClient,
		})
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("main API ListenAndServe error", zap.Error(err))
			}
		}()
	}

	bgMode := func() {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor)
		taskSrv = srv
		// Start returns once the workers are running; Shutdown below stops them.
		if err := taskSrv.Start(mux); err != nil {
			log.Fatal("task server error", zap.Error(err))
		}
		log.Info("background task server started")
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatal("invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("received signal, shutting down", zap.Stringer("signal", sig))
	case <-shutdownChan:
		log.Info("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Error("service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Error("main API shutdown error", zap.Error(err))
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	log.Info("server gracefully stopped")
}

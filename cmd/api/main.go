package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthe/healthe-api/internal/cache"
	"github.com/healthe/healthe-api/internal/config"
	"github.com/healthe/healthe-api/internal/events"
	"github.com/healthe/healthe-api/internal/handlers"
	"github.com/healthe/healthe-api/internal/metrics"
	"github.com/healthe/healthe-api/internal/middleware"
	"github.com/healthe/healthe-api/internal/services"
	"github.com/healthe/healthe-api/internal/store"
	"github.com/healthe/healthe-api/internal/utils"
	"github.com/healthe/healthe-api/pkg/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Default().Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting health-e api", "env", cfg.Env, "port", cfg.APIPort)

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		cancel()
		logger.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Warn("could not ensure indexes", "error", err)
	}
	redisCache := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	cancel()
	logger.Info("connected to mongodb", "database", cfg.MongoDatabase)

	publisher := events.NewPublisher(cfg.RabbitMQURL, logger)
	m := metrics.New(prometheus.DefaultRegisterer)
	tokens := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// --- Repositories ---
	users := store.NewUserRepository(db)
	consultations := store.NewConsultationRepository(db)
	withdrawals := store.NewWithdrawalRepository(db)
	transactions := store.NewTransactionRepository(db)
	notifications := store.NewNotificationRepository(db)
	tickets := store.NewTicketRepository(db)

	// --- Services ---
	var sms services.SMSSender
	if cfg.TextbeltAPIKey != "" {
		sms = services.NewTextbeltSender(cfg.TextbeltAPIKey, logger)
	} else {
		logger.Warn("TEXTBELT_API_KEY not set, sms confirmations disabled")
	}
	var demo *services.DemoAccounts
	if cfg.DemoAccountsEnabled && !cfg.IsProduction() {
		demo, err = services.NewDemoAccounts(cfg.DemoAccountPassword)
		if err != nil {
			logger.Error("failed to enable demo accounts", "error", err)
			os.Exit(1)
		}
		logger.Warn("demo accounts enabled")
	}
	notificationSvc := services.NewNotificationService(notifications, sms, logger)
	sessionSvc := services.NewSessionService(users, redisCache, cfg.SessionCacheTTL, logger,
		services.WithStoreResetter(db),
		services.WithSessionMetrics(m),
		services.WithDemoAccounts(demo),
	)
	revenueSvc := services.NewRevenueService(transactions, withdrawals)
	withdrawalSvc := services.NewWithdrawalService(services.WithdrawalDeps{
		Withdrawals:  withdrawals,
		Transactions: transactions,
		Balances:     revenueSvc,
		Notifier:     notificationSvc,
		Publisher:    publisher,
		Metrics:      m,
		Exchange:     cfg.EventsExchange,
		Logger:       logger,
	})
	paymentSvc := services.NewPaymentService(services.PaymentDeps{
		Consultations: consultations,
		Transactions:  transactions,
		Notifier:      notificationSvc,
		SMS:           notificationSvc,
		Publisher:     publisher,
		Exchange:      cfg.EventsExchange,
		Logger:        logger,
	})
	authSvc := services.NewAuthService(services.AuthDeps{
		Users:       users,
		Tokens:      tokens,
		Limiter:     cache.NewRateLimiter(redisCache.Client(), "healthe:rate_limit"),
		Sessions:    sessionSvc,
		Demo:        demo,
		LoginLimit:  cfg.LoginMaxAttempts,
		LoginWindow: cfg.LoginWindow,
		Logger:      logger,
	})

	h := handlers.NewHandler(handlers.Deps{
		Auth:           authSvc,
		Sessions:       sessionSvc,
		Withdrawals:    withdrawalSvc,
		Revenue:        revenueSvc,
		Payments:       paymentSvc,
		Notifications:  notificationSvc,
		Consultations:  services.NewConsultationService(consultations, users, users, notificationSvc, logger),
		Tickets:        services.NewTicketService(tickets, notificationSvc, logger),
		Metrics:        m,
		Health:         db,
		MetricsHandler: promhttp.Handler(),
		Webhooks: handlers.WebhookSecrets{
			PayTechAPIKey:     cfg.PayTechAPIKey,
			PayTechAPISecret:  cfg.PayTechAPISecret,
			PayDunyaMasterKey: cfg.PayDunyaMasterKey,
		},
		Logger: logger,
	})

	// --- Gin Router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	h.RegisterRoutes(r, tokens)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	publisher.Close()
	_ = redisCache.Close()
	if err := db.Close(shutdownCtx); err != nil {
		logger.Warn("mongodb disconnect failed", "error", err)
	}
	logger.Info("server stopped")
}

package main

import (
	"context"

	"github.com/Tiagocys/gamehub/internal/handlers"
	"github.com/Tiagocys/gamehub/internal/storage"
	stripeclient "github.com/Tiagocys/gamehub/internal/stripe"
	"github.com/Tiagocys/gamehub/internal/telegram"
	"github.com/Tiagocys/gamehub/pkg/auth"
	"github.com/Tiagocys/gamehub/pkg/config"
	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/monitoring"
	"github.com/Tiagocys/gamehub/pkg/server"
	"github.com/Tiagocys/gamehub/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("gamehub")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Gamehub (Marketplace API)")

	dbURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := config.RequireEnv("JWT_SECRET")
	stripeSecretKey := config.RequireEnv("STRIPE_SECRET_KEY")
	stripeWebhookSecret := config.RequireEnv("STRIPE_WEBHOOK_SECRET")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	// Probe which optional tables and columns this deployment carries
	caps := database.DetectCapabilities(context.Background(), db, logger)

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("gamehub", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("gamehub", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":          dbURL,
		"JWT_SECRET":            jwtSecret,
		"STRIPE_SECRET_KEY":     stripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": stripeWebhookSecret,
	}))

	// Create custom marketplace metrics
	metrics := &handlers.GamehubMetrics{
		WalletOperations: metricsCollector.NewCounter("wallet_operations_total", "Wallet operations performed", []string{"operation", "status"}),
		SecondsConsumed:  metricsCollector.NewCounter("highlight_seconds_consumed_total", "Highlight seconds consumed", []string{"source"}),
		Settlements:      metricsCollector.NewCounter("checkout_settlements_total", "Checkout settlements processed", []string{"status"}),
		WebhookFailures:  metricsCollector.NewCounter("webhook_signature_failures_total", "Webhook signature verification failures", []string{"provider"}),
		PayoutQueries:    metricsCollector.NewCounter("payout_summary_queries_total", "Payout summary queries", []string{"status"}),
	}

	// Create database metrics
	metrics.DBQueries, metrics.DBDuration, metrics.DBConnections = metricsCollector.CreateDatabaseMetrics()

	// Stripe client
	stripeClient := stripeclient.NewClient(stripeclient.Config{
		SecretKey:     stripeSecretKey,
		WebhookSecret: stripeWebhookSecret,
		Logger:        logger,
	})

	// R2 object storage (optional; image endpoints degrade without it)
	var r2Client *storage.R2Client
	if bucket := config.GetEnv("R2_BUCKET", ""); bucket != "" {
		var err error
		r2Client, err = storage.NewR2Client(storage.R2Config{
			Bucket:    bucket,
			Endpoint:  config.RequireEnv("R2_ENDPOINT"),
			AccessKey: config.RequireEnv("R2_ACCESS_KEY_ID"),
			SecretKey: config.RequireEnv("R2_SECRET_ACCESS_KEY"),
			PublicURL: config.GetEnv("R2_PUBLIC_URL", ""),
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize R2 client")
		}
	} else {
		logger.Warn("R2_BUCKET not set, image upload and cleanup disabled")
	}

	// Initialize handlers
	handlers.Init(handlers.Deps{
		DB:           db,
		Logger:       logger,
		Metrics:      metrics,
		Capabilities: caps,
		Stripe:       stripeClient,
		R2:           r2Client,
		Email:        handlers.NewEmailService(logger),
	})

	// Telegram verification bot (optional)
	if token := config.GetEnv("TELEGRAM_BOT_TOKEN", ""); token != "" && caps.PhoneVerifications {
		verifyBot, err := telegram.New(token, db, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Telegram bot")
		}
		botCtx, botCancel := context.WithCancel(context.Background())
		defer botCancel()
		go verifyBot.Start(botCtx)
		logger.Info("Telegram verification bot started")
	}

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "gamehub", healthChecker, metricsCollector)

	// API routes (root level - nginx adds /api/ prefix)
	{
		// Webhook endpoints (no auth required)
		router.POST("/webhooks/stripe", handlers.HandleStripeWebhook)

		// Authentication required endpoints
		protected := router.Group("")
		protected.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
		{
			protected.GET("/wallet", handlers.GetWallet)
			protected.POST("/wallet/activate", handlers.ActivateHighlight)
			protected.POST("/wallet/deactivate", handlers.DeactivateHighlight)
			protected.POST("/wallet/checkout", handlers.CreateTopupCheckout)

			protected.GET("/partner/payout-summary", handlers.GetPayoutSummary)

			protected.POST("/uploads/sign", handlers.SignListingImageUpload)
			protected.DELETE("/listings/:id", handlers.DeleteListing)

			protected.POST("/partner/connect/onboarding", handlers.ConnectOnboarding)
			protected.GET("/partner/connect/status", handlers.ConnectStatus)

			protected.POST("/phone/verify/start", handlers.StartPhoneVerification)
			protected.GET("/phone/verify/status", handlers.PhoneVerificationStatus)

			protected.PATCH("/servers/:id/settings", handlers.UpdateServerSettings)
		}

		// Admin endpoints
		admin := router.Group("/admin")
		admin.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)), auth.AdminOnlyMiddleware())
		{
			admin.POST("/games/:id/approve", handlers.ApproveGame)
			admin.POST("/reports/:id/moderate", handlers.ModerateReport)
		}
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("gamehub", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

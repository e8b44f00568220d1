package handlers

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tiagocys/gamehub/internal/payout"
	"github.com/Tiagocys/gamehub/internal/storage"
	stripeclient "github.com/Tiagocys/gamehub/internal/stripe"
	"github.com/Tiagocys/gamehub/internal/wallet"
	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
)

var (
	db               *sql.DB
	logger           logging.Logger
	metrics          *GamehubMetrics
	caps             database.Capabilities
	walletEngine     *wallet.Engine
	payoutSummarizer *payout.Summarizer
	revenueRecorder  *payout.Recorder
	stripeClient     *stripeclient.Client
	r2Client         *storage.R2Client
	emailService     *EmailService
)

// GamehubMetrics holds all Prometheus metrics for the marketplace API
type GamehubMetrics struct {
	WalletOperations *prometheus.CounterVec
	SecondsConsumed  *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	WebhookFailures  *prometheus.CounterVec
	PayoutQueries    *prometheus.CounterVec
	DBQueries        *prometheus.CounterVec
	DBDuration       *prometheus.HistogramVec
	DBConnections    *prometheus.GaugeVec
}

// Deps bundles everything the handlers need.
type Deps struct {
	DB           *sql.DB
	Logger       logging.Logger
	Metrics      *GamehubMetrics
	Capabilities database.Capabilities
	Stripe       *stripeclient.Client
	R2           *storage.R2Client
	Email        *EmailService
}

// Init initializes the handlers with database, logger and service clients
func Init(deps Deps) {
	db = deps.DB
	logger = deps.Logger
	metrics = deps.Metrics
	caps = deps.Capabilities
	stripeClient = deps.Stripe
	r2Client = deps.R2
	emailService = deps.Email
	walletEngine = wallet.NewEngine(deps.DB, deps.Logger)
	payoutSummarizer = payout.NewSummarizer(deps.DB, deps.Logger, deps.Capabilities)
	revenueRecorder = payout.NewRecorder(deps.DB, deps.Logger, deps.Capabilities)
}

func recordWalletOperation(operation, status string) {
	if metrics == nil || metrics.WalletOperations == nil {
		return
	}
	metrics.WalletOperations.WithLabelValues(operation, status).Inc()
}

func recordSettlement(status string) {
	if metrics == nil || metrics.Settlements == nil {
		return
	}
	metrics.Settlements.WithLabelValues(status).Inc()
}

func recordWebhookSignatureFailure(provider string) {
	if metrics == nil || metrics.WebhookFailures == nil {
		return
	}
	metrics.WebhookFailures.WithLabelValues(provider).Inc()
}

func recordSecondsConsumed(seconds int64) {
	if metrics == nil || metrics.SecondsConsumed == nil || seconds <= 0 {
		return
	}
	metrics.SecondsConsumed.WithLabelValues("sync").Add(float64(seconds))
}

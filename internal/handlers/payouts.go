package handlers

import (
	"net/http"
	"time"

	"github.com/Tiagocys/gamehub/internal/wallet"
	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

// GetPayoutSummary returns the caller's earned/pending payout amounts,
// apportioned FIFO from their payers' wallet consumption.
func GetPayoutSummary(c middleware.Context) {
	userID := c.GetString("user_id")

	summary, err := payoutSummarizer.Summary(c.Request.Context(), userID, time.Now())
	if err != nil {
		logger.WithFields(logging.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to compute payout summary")
		if metrics != nil && metrics.PayoutQueries != nil {
			metrics.PayoutQueries.WithLabelValues("error").Inc()
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to compute payout summary"})
		return
	}

	if metrics != nil && metrics.PayoutQueries != nil {
		metrics.PayoutQueries.WithLabelValues("success").Inc()
	}
	c.JSON(http.StatusOK, api.PayoutSummaryResponse{
		TotalExpected: wallet.CentsToBRL(summary.TotalExpectedCents),
		Available:     wallet.CentsToBRL(summary.AvailableCents),
		Pending:       wallet.CentsToBRL(summary.PendingCents),
		Count:         summary.Count,
		Method:        summary.Method,
		Unsupported:   summary.Unsupported,
	})
}

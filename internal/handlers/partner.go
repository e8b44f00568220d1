package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"os"

	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

// ConnectOnboarding creates (or reuses) the caller's Stripe Connect express
// account and returns a fresh onboarding link.
func ConnectOnboarding(c middleware.Context) {
	userID := c.GetString("user_id")
	email := c.GetString("email")

	var serverID string
	var accountID sql.NullString
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT id, stripe_account_id FROM servers WHERE owner_id = $1
	`, userID).Scan(&serverID, &accountID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No server registered for this account"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load server for onboarding")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load server"})
		return
	}

	if !accountID.Valid || accountID.String == "" {
		account, err := stripeClient.CreateConnectAccount(c.Request.Context(), email)
		if err != nil {
			logger.WithFields(logging.Fields{
				"user_id": userID,
				"error":   err,
			}).Error("Failed to create Connect account")
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Failed to create Stripe account"})
			return
		}
		if _, err := db.ExecContext(c.Request.Context(), `
			UPDATE servers SET stripe_account_id = $1, updated_at = NOW() WHERE id = $2
		`, account.ID, serverID); err != nil {
			logger.WithError(err).Error("Failed to persist Connect account id")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to save Stripe account"})
			return
		}
		accountID = sql.NullString{String: account.ID, Valid: true}
	}

	refreshURL := os.Getenv("CONNECT_REFRESH_URL")
	returnURL := os.Getenv("CONNECT_RETURN_URL")
	link, err := stripeClient.CreateAccountLink(c.Request.Context(), accountID.String, refreshURL, returnURL)
	if err != nil {
		logger.WithFields(logging.Fields{
			"user_id":    userID,
			"account_id": accountID.String,
			"error":      err,
		}).Error("Failed to create account link")
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Failed to create onboarding link"})
		return
	}

	c.JSON(http.StatusOK, api.ConnectOnboardingResponse{
		AccountID: accountID.String,
		URL:       link.URL,
	})
}

// ConnectStatus refreshes and reports the caller's Connect account flags.
func ConnectStatus(c middleware.Context) {
	userID := c.GetString("user_id")

	var serverID string
	var accountID sql.NullString
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT id, stripe_account_id FROM servers WHERE owner_id = $1
	`, userID).Scan(&serverID, &accountID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No server registered for this account"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load server for Connect status")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load server"})
		return
	}

	if !accountID.Valid || accountID.String == "" {
		c.JSON(http.StatusOK, api.ConnectStatusResponse{})
		return
	}

	account, err := stripeClient.GetAccount(c.Request.Context(), accountID.String)
	if err != nil {
		logger.WithFields(logging.Fields{
			"account_id": accountID.String,
			"error":      err,
		}).Error("Failed to fetch Connect account")
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Failed to fetch Stripe account"})
		return
	}

	// Best-effort persistence of the refreshed flags.
	if _, err := db.ExecContext(c.Request.Context(), `
		UPDATE servers SET charges_enabled = $1, payouts_enabled = $2, details_submitted = $3, updated_at = NOW()
		WHERE id = $4
	`, account.ChargesEnabled, account.PayoutsEnabled, account.DetailsSubmitted, serverID); err != nil {
		logger.WithError(err).Warn("Failed to persist Connect account flags")
	}

	c.JSON(http.StatusOK, api.ConnectStatusResponse{
		AccountID:        accountID.String,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	})
}

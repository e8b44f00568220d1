package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tiagocys/gamehub/internal/payout"
	"github.com/Tiagocys/gamehub/internal/wallet"
	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

// StripeWebhookPayload is the envelope of a Stripe webhook event
type StripeWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// StripeCheckoutSessionObject is the checkout session inside a
// checkout.session.completed event
type StripeCheckoutSessionObject struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// verifyStripeSignature verifies the Stripe webhook signature using HMAC-SHA256
func verifyStripeSignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	// Parse Stripe signature header format: t=timestamp,v1=signature,v1=signature
	elements := strings.Split(signature, ",")
	var timestamp string
	var signatures []string

	for _, element := range elements {
		parts := strings.SplitN(element, "=", 2)
		if len(parts) != 2 {
			continue
		}

		switch parts[0] {
		case "t":
			timestamp = parts[1]
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		logger.Error("Invalid Stripe signature format: missing timestamp or signatures")
		return false
	}

	// Verify timestamp is within tolerance (5 minutes)
	timestampInt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		logger.WithFields(logging.Fields{
			"timestamp": timestamp,
			"error":     err,
		}).Error("Failed to parse Stripe webhook timestamp")
		return false
	}

	now := time.Now().Unix()
	age := now - timestampInt
	if age < 0 {
		age = -age
	}
	if age > 300 {
		logger.WithFields(logging.Fields{
			"timestamp":   timestampInt,
			"current":     now,
			"age_seconds": age,
		}).Warn("Stripe webhook timestamp outside tolerance")
		return false
	}

	// Create signed payload: timestamp + "." + payload
	signedPayload := timestamp + "." + string(payload)

	// Calculate expected signature using HMAC-SHA256
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	// Compare with provided signatures using constant-time comparison
	for _, providedSig := range signatures {
		if hmac.Equal([]byte(expectedSignature), []byte(providedSig)) {
			return true
		}
	}

	return false
}

// HandleStripeWebhook settles checkout sessions into highlight wallets.
func HandleStripeWebhook(c middleware.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Failed to read body"})
		return
	}

	ack, status := processStripeWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	if status >= 400 {
		c.JSON(status, api.ErrorResponse{Error: ack})
		return
	}

	switch ack {
	case "duplicate":
		c.JSON(http.StatusOK, api.WebhookAck{OK: true, Duplicate: true})
	case "received":
		c.JSON(http.StatusOK, api.WebhookAck{Received: true})
	default:
		c.JSON(http.StatusOK, api.WebhookAck{OK: true})
	}
}

// processStripeWebhook verifies and dispatches one webhook delivery.
// Returns ("", 200) style pairs: on >=400 the first value is the error text.
func processStripeWebhook(ctx context.Context, body []byte, signature string) (string, int) {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		logger.Error("STRIPE_WEBHOOK_SECRET not configured; rejecting webhook")
		return "Webhook verification not configured", http.StatusServiceUnavailable
	}
	if !verifyStripeSignature(body, signature, webhookSecret) {
		logger.WithFields(logging.Fields{
			"signature": signature,
		}).Warn("Invalid Stripe webhook signature")
		recordWebhookSignatureFailure("stripe")
		return "Invalid signature", http.StatusUnauthorized
	}

	var payload StripeWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.WithFields(logging.Fields{
			"error": err.Error(),
		}).Warn("Invalid Stripe webhook payload")
		return "Invalid payload", http.StatusBadRequest
	}

	logger.WithFields(logging.Fields{
		"event_id":   payload.ID,
		"event_type": payload.Type,
	}).Info("Received Stripe webhook")

	if payload.Type != "checkout.session.completed" {
		logger.WithField("event_type", payload.Type).Debug("Ignoring unhandled Stripe event type")
		return "received", http.StatusOK
	}

	duplicate, err := handleCheckoutCompleted(ctx, payload.Data.Object)
	if err != nil {
		logger.WithError(err).WithField("event_id", payload.ID).Error("Failed to settle checkout session")
		recordSettlement("error")
		return "Failed to process webhook", http.StatusInternalServerError
	}
	if duplicate {
		recordSettlement("duplicate")
		return "duplicate", http.StatusOK
	}
	recordSettlement("success")
	return "", http.StatusOK
}

// handleCheckoutCompleted credits a wallet top-up and records revenue shares.
// The credit itself is one transaction keyed by the checkout session id, so
// webhook replays and concurrent deliveries settle exactly once.
func handleCheckoutCompleted(ctx context.Context, object json.RawMessage) (bool, error) {
	var session StripeCheckoutSessionObject
	if err := json.Unmarshal(object, &session); err != nil {
		return false, fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if session.Metadata["purpose"] != "highlight_wallet_topup" {
		logger.WithFields(logging.Fields{
			"session_id": session.ID,
			"purpose":    session.Metadata["purpose"],
		}).Debug("Checkout session is not a wallet topup, ignoring")
		return false, nil
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		logger.WithField("session_id", session.ID).Warn("Missing user_id in checkout metadata")
		return false, nil
	}

	seconds, _ := strconv.ParseInt(session.Metadata["purchased_seconds"], 10, 64)
	if seconds <= 0 {
		// Older sessions carried no seconds; derive them from the paid amount.
		seconds = wallet.AmountToSeconds(session.AmountTotal)
	}

	now := time.Now()
	duplicate, err := walletEngine.CreditTopup(ctx, userID, session.ID, seconds, session.AmountTotal, now)
	if err != nil {
		return false, err
	}
	if duplicate {
		logger.WithFields(logging.Fields{
			"session_id": session.ID,
			"user_id":    userID,
		}).Info("Checkout session already settled, skipping")
		return true, nil
	}

	listingID := session.Metadata["listing_id"]

	// Platform net comes from the processor's balance transaction when it can
	// be fetched; otherwise the recorder falls back to the estimated ratio.
	var netCents int64
	if session.PaymentIntent != "" && stripeClient != nil {
		net, err := stripeClient.GetPaymentNetCents(ctx, session.PaymentIntent)
		if err != nil {
			logger.WithError(err).WithFields(logging.Fields{
				"session_id":     session.ID,
				"payment_intent": session.PaymentIntent,
			}).Warn("Could not fetch processor net amount, estimating from gross")
		} else {
			netCents = net
		}
	}

	// Revenue shares are bookkeeping, not part of the credit invariant:
	// a failure here must not undo the settled topup.
	if err := revenueRecorder.RecordShares(ctx, payout.ShareParams{
		CheckoutSessionID: session.ID,
		PayerUserID:       userID,
		ListingID:         listingID,
		GrossCents:        session.AmountTotal,
		NetCents:          netCents,
	}, now); err != nil {
		logger.WithError(err).WithField("session_id", session.ID).Error("Failed to record revenue shares")
	}

	if session.Metadata["auto_activate"] == "true" && listingID != "" {
		if _, err := walletEngine.Activate(ctx, userID, listingID, now); err != nil {
			logger.WithFields(logging.Fields{
				"session_id": session.ID,
				"listing_id": listingID,
				"error":      err,
			}).Warn("Auto-activate after topup failed")
		}
	}

	return false, nil
}

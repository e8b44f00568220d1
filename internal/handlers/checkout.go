package handlers

import (
	"net/http"

	stripeclient "github.com/Tiagocys/gamehub/internal/stripe"
	"github.com/Tiagocys/gamehub/internal/wallet"
	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/config"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

// CreateTopupCheckout creates a hosted checkout session for a wallet top-up.
// The caller either picks a number of days (legacy flow) or a free BRL
// amount; both are converted to purchased seconds at the fixed day rate.
func CreateTopupCheckout(c middleware.Context) {
	userID := c.GetString("user_id")

	var req api.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return
	}

	amountBRL := req.AmountBRL
	if req.Days > 0 && amountBRL == 0 {
		amountBRL = float64(req.Days) * wallet.MinTopupBRL
	}
	if amountBRL < wallet.MinTopupBRL {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Minimum top-up is R$ 5.00"})
		return
	}

	totalCents := wallet.BRLToCents(amountBRL)
	purchasedSeconds := wallet.AmountToSeconds(totalCents)

	days := req.Days
	if days <= 0 {
		days = int((purchasedSeconds + wallet.DaySeconds - 1) / wallet.DaySeconds)
		if days < 1 {
			days = 1
		}
	}

	sess, err := stripeClient.CreateTopupCheckout(c.Request.Context(), stripeclient.TopupCheckoutParams{
		UserID:           userID,
		Days:             days,
		AmountBRL:        amountBRL,
		TotalCents:       totalCents,
		PurchasedSeconds: purchasedSeconds,
		AutoActivate:     req.AutoActivate,
		ListingID:        req.ListingID,
		SuccessURL:       config.GetEnv("CHECKOUT_SUCCESS_URL", "https://gimerr.com/wallet?checkout=success"),
		CancelURL:        config.GetEnv("CHECKOUT_CANCEL_URL", "https://gimerr.com/wallet?checkout=cancelled"),
	})
	if err != nil {
		logger.WithFields(logging.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to create topup checkout")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, api.CheckoutResponse{SessionID: sess.ID, URL: sess.URL})
}

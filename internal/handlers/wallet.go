package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Tiagocys/gamehub/internal/wallet"
	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

func walletResponse(sync wallet.SyncResult) api.WalletResponse {
	human := wallet.SecondsToHuman(sync.Wallet.AvailableSeconds)
	return api.WalletResponse{
		Wallet: sync.Wallet,
		Human: api.HumanBalance{
			Days:    human.Days,
			Hours:   human.Hours,
			Minutes: human.Minutes,
		},
		Rate: api.HighlightRates{
			Day1PerSecond:  wallet.PerSecondPrice(0),
			Day30PerSecond: wallet.PerSecondPrice(29),
		},
	}
}

// GetWallet settles elapsed consumption and returns the caller's wallet.
func GetWallet(c middleware.Context) {
	userID := c.GetString("user_id")

	sync, err := walletEngine.Sync(c.Request.Context(), userID, time.Now())
	if err != nil {
		logger.WithFields(logging.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to sync wallet")
		recordWalletOperation("sync", "error")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load wallet"})
		return
	}

	recordWalletOperation("sync", "success")
	recordSecondsConsumed(sync.ConsumedNow)
	c.JSON(http.StatusOK, walletResponse(sync))
}

// ActivateHighlight turns on the highlight for one of the caller's listings.
func ActivateHighlight(c middleware.Context) {
	userID := c.GetString("user_id")

	var req api.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "listing_id is required"})
		return
	}

	result, err := walletEngine.Activate(c.Request.Context(), userID, req.ListingID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrListingNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Listing not found"})
		case errors.Is(err, wallet.ErrListingNotActive):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Only active listings can be highlighted"})
		case errors.Is(err, wallet.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Insufficient highlight balance, top up to activate"})
		default:
			logger.WithFields(logging.Fields{
				"user_id":    userID,
				"listing_id": req.ListingID,
				"error":      err,
			}).Error("Failed to activate highlight")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to activate highlight"})
		}
		recordWalletOperation("activate", "error")
		return
	}

	recordWalletOperation("activate", "success")
	recordSecondsConsumed(result.Sync.ConsumedNow)
	c.JSON(http.StatusOK, api.ActivateResponse{
		Activated: result.Activated,
		Reason:    result.Reason,
		Wallet:    walletResponse(result.Sync),
	})
}

// DeactivateHighlight turns off the highlight for one of the caller's listings.
func DeactivateHighlight(c middleware.Context) {
	userID := c.GetString("user_id")

	var req api.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "listing_id is required"})
		return
	}

	sync, err := walletEngine.Deactivate(c.Request.Context(), userID, req.ListingID, time.Now())
	if err != nil {
		if errors.Is(err, wallet.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Listing not found"})
			recordWalletOperation("deactivate", "error")
			return
		}
		logger.WithFields(logging.Fields{
			"user_id":    userID,
			"listing_id": req.ListingID,
			"error":      err,
		}).Error("Failed to deactivate highlight")
		recordWalletOperation("deactivate", "error")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to deactivate highlight"})
		return
	}

	recordWalletOperation("deactivate", "success")
	recordSecondsConsumed(sync.ConsumedNow)
	c.JSON(http.StatusOK, api.DeactivateResponse{
		Deactivated: true,
		Wallet:      walletResponse(sync),
	})
}

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/lib/pq"

	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
	"github.com/Tiagocys/gamehub/pkg/models"
)

// DeleteListing removes a listing, its stored images and any active
// highlight. The owner's wallet is settled before and after so a highlighted
// listing stops draining at the moment of deletion.
func DeleteListing(c middleware.Context) {
	callerID := c.GetString("user_id")
	role := c.GetString("role")
	listingID := c.Param("id")

	var ownerID, highlightStatus string
	var imageKeys []string
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT user_id, highlight_status, image_keys FROM listings WHERE id = $1
	`, listingID).Scan(&ownerID, &highlightStatus, pq.Array(&imageKeys))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Listing not found"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load listing")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load listing"})
		return
	}

	if ownerID != callerID && role != "admin" {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Not allowed to delete this listing"})
		return
	}

	now := time.Now()
	if _, err := walletEngine.Sync(c.Request.Context(), ownerID, now); err != nil {
		logger.WithError(err).Error("Failed to sync wallet before deletion")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to settle wallet"})
		return
	}

	if highlightStatus == models.HighlightStatusActive {
		if _, err := walletEngine.Deactivate(c.Request.Context(), ownerID, listingID, now); err != nil {
			logger.WithFields(logging.Fields{
				"listing_id": listingID,
				"error":      err,
			}).Error("Failed to deactivate highlight before deletion")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to deactivate highlight"})
			return
		}
	}

	deleted, failed := deleteObjects(c.Request.Context(), imageKeys)

	if _, err := db.ExecContext(c.Request.Context(), `DELETE FROM listings WHERE id = $1`, listingID); err != nil {
		logger.WithError(err).Error("Failed to delete listing")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete listing"})
		return
	}

	// Settle again so the wallet's active count reflects the deletion.
	if _, err := walletEngine.Sync(c.Request.Context(), ownerID, time.Now()); err != nil {
		logger.WithError(err).Warn("Failed to sync wallet after deletion")
	}

	logger.WithFields(logging.Fields{
		"listing_id":     listingID,
		"owner_id":       ownerID,
		"images_deleted": deleted,
		"images_failed":  failed,
	}).Info("Listing deleted")

	c.JSON(http.StatusOK, api.DeleteListingResponse{
		Deleted:       true,
		ImagesDeleted: deleted,
		ImagesFailed:  failed,
	})
}

// deleteObjects best-effort deletes stored objects, counting outcomes.
// Storage cleanup failures never veto the database deletion.
func deleteObjects(ctx context.Context, keys []string) (deleted, failed int) {
	if r2Client == nil {
		return 0, len(keys)
	}
	for _, raw := range keys {
		key := r2Client.ParseKey(raw)
		if key == "" {
			continue
		}
		if err := r2Client.Delete(ctx, key); err != nil {
			logger.WithFields(logging.Fields{
				"key":   key,
				"error": err,
			}).Warn("Failed to delete stored object")
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}

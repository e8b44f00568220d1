package handlers

import (
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

// Moderation actions
const (
	ReportActionHandled       = "handled"
	ReportActionDeleteListing = "delete-listing"
	ReportActionBanUser       = "ban-user"
)

// ModerateReport applies a moderation action to an open report. Admin only.
// All actions close the report and clean up its evidence objects.
func ModerateReport(c middleware.Context) {
	reportID := c.Param("id")

	var req api.ModerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "action is required"})
		return
	}
	if req.Action != ReportActionHandled && req.Action != ReportActionDeleteListing && req.Action != ReportActionBanUser {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown moderation action"})
		return
	}

	var report models.Report
	var evidenceKeys []string
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT id, listing_id, reporter_id, status, evidence_keys FROM reports WHERE id = $1
	`, reportID).Scan(&report.ID, &report.ListingID, &report.ReporterID, &report.Status, pq.Array(&evidenceKeys))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Report not found"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load report")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load report"})
		return
	}

	if report.Status != models.ReportStatusOpen {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Report already handled"})
		return
	}

	switch req.Action {
	case ReportActionDeleteListing:
		if err := deleteListingForModeration(c, report.ListingID); err != nil {
			logger.WithFields(logging.Fields{
				"report_id":  reportID,
				"listing_id": report.ListingID,
				"error":      err,
			}).Error("Failed to delete reported listing")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete reported listing"})
			return
		}
	case ReportActionBanUser:
		if err := banListingOwner(c, report.ListingID); err != nil {
			logger.WithFields(logging.Fields{
				"report_id": reportID,
				"error":     err,
			}).Error("Failed to ban listing owner")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to ban user"})
			return
		}
	}

	_, err = db.ExecContext(c.Request.Context(), `
		UPDATE reports SET status = 'handled', updated_at = NOW() WHERE id = $1
	`, reportID)
	if err != nil {
		logger.WithError(err).Error("Failed to close report")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to close report"})
		return
	}

	evidenceDeleted, _ := deleteObjects(c.Request.Context(), evidenceKeys)

	var reporterEmail string
	if err := db.QueryRowContext(c.Request.Context(), `
		SELECT email FROM users WHERE id = $1
	`, report.ReporterID).Scan(&reporterEmail); err == nil {
		emailService.SendReportResolved(c.Request.Context(), reporterEmail, req.Action)
	}

	logger.WithFields(logging.Fields{
		"report_id": reportID,
		"action":    req.Action,
	}).Info("Report moderated")

	c.JSON(http.StatusOK, api.ModerateReportResponse{
		Action:          req.Action,
		EvidenceDeleted: evidenceDeleted,
	})
}

// deleteListingForModeration runs the listing-deletion flow (wallet settle,
// highlight deactivation, storage cleanup) on behalf of a moderator.
func deleteListingForModeration(c middleware.Context, listingID string) error {
	var ownerID, highlightStatus string
	var imageKeys []string
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT user_id, highlight_status, image_keys FROM listings WHERE id = $1
	`, listingID).Scan(&ownerID, &highlightStatus, pq.Array(&imageKeys))
	if errors.Is(err, sql.ErrNoRows) {
		// Already gone, nothing to moderate.
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	if highlightStatus == models.HighlightStatusActive {
		if _, err := walletEngine.Deactivate(c.Request.Context(), ownerID, listingID, now); err != nil {
			return err
		}
	}

	deleteObjects(c.Request.Context(), imageKeys)

	if _, err := db.ExecContext(c.Request.Context(), `DELETE FROM listings WHERE id = $1`, listingID); err != nil {
		return err
	}

	_, err = walletEngine.Sync(c.Request.Context(), ownerID, time.Now())
	return err
}

// banListingOwner flags the owner banned and drops all their highlights.
func banListingOwner(c middleware.Context, listingID string) error {
	var ownerID string
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT user_id FROM listings WHERE id = $1
	`, listingID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	// Settle consumption up to the ban before dropping the highlights.
	if _, err := walletEngine.Sync(c.Request.Context(), ownerID, time.Now()); err != nil {
		return err
	}

	if _, err := db.ExecContext(c.Request.Context(), `
		UPDATE users SET banned = TRUE, updated_at = NOW() WHERE id = $1
	`, ownerID); err != nil {
		return err
	}

	_, err = db.ExecContext(c.Request.Context(), `
		UPDATE listings SET status = 'removed', highlight_status = 'none', highlight_started_at = NULL, updated_at = NOW()
		WHERE user_id = $1
	`, ownerID)
	return err
}

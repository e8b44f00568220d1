package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
	"github.com/Tiagocys/gamehub/pkg/models"
)

// ApproveGame approves a pending game submission and provisions a server
// entry for the submitter. Admin only.
func ApproveGame(c middleware.Context) {
	gameID := c.Param("id")
	adminID := c.GetString("user_id")

	var game models.Game
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT id, name, official_site, status, submitted_by FROM games WHERE id = $1
	`, gameID).Scan(&game.ID, &game.Name, &game.OfficialSite, &game.Status, &game.SubmittedBy)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Game not found"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load game")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load game"})
		return
	}

	if game.Status != models.GameStatusPending {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Game is not pending approval"})
		return
	}

	// An admin cannot approve their own submission: the resulting server
	// would pay its revenue share back to the approver.
	if game.SubmittedBy == adminID {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Admins cannot approve their own submissions"})
		return
	}

	// The same game cannot enter the catalogue twice under a different name.
	var duplicate bool
	err = db.QueryRowContext(c.Request.Context(), `
		SELECT EXISTS(
			SELECT 1 FROM games WHERE official_site = $1 AND status = 'approved' AND id != $2
		)
	`, game.OfficialSite, game.ID).Scan(&duplicate)
	if err != nil {
		logger.WithError(err).Error("Failed to check duplicate game")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to check duplicates"})
		return
	}
	if duplicate {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "A game with this official site is already approved"})
		return
	}

	tx, err := db.BeginTx(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to approve game"})
		return
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	_, err = tx.ExecContext(c.Request.Context(), `
		UPDATE games SET status = 'approved', updated_at = NOW() WHERE id = $1
	`, game.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to approve game")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to approve game"})
		return
	}

	var serverID string
	err = tx.QueryRowContext(c.Request.Context(), `
		INSERT INTO servers (owner_id, game_id, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, game.SubmittedBy, game.ID, game.Name).Scan(&serverID)
	if err != nil {
		logger.WithError(err).Error("Failed to create server for approved game")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create server"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to approve game"})
		return
	}

	logger.WithFields(logging.Fields{
		"game_id":   game.ID,
		"server_id": serverID,
	}).Info("Game approved")

	// Notify the submitter; a missing email or SMTP outage is not an error.
	var submitterEmail string
	if err := db.QueryRowContext(c.Request.Context(), `
		SELECT email FROM users WHERE id = $1
	`, game.SubmittedBy).Scan(&submitterEmail); err == nil {
		emailService.SendGameApproved(c.Request.Context(), submitterEmail, game.Name)
	}

	c.JSON(http.StatusOK, api.ApproveGameResponse{Approved: true, ServerID: serverID})
}

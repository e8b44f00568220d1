package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
)

func normalizeWebsite(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", true
	}
	if !strings.HasPrefix(value, "https://") {
		return "", false
	}
	return value, true
}

func normalizeDiscordURL(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", true
	}
	value = strings.TrimPrefix(value, "http://")
	if !strings.HasPrefix(value, "https://") {
		value = "https://" + value
	}
	if !strings.Contains(value, "discord.gg/") && !strings.Contains(value, "discord.com/invite/") {
		return "", false
	}
	return value, true
}

// UpdateServerSettings updates partner-facing settings for a server. The
// owner, an admin, or the current admin beneficiary may edit; only admins may
// reassign the beneficiary.
func UpdateServerSettings(c middleware.Context) {
	serverID := c.Param("id")
	userID := c.GetString("user_id")
	role := c.GetString("role")

	var req api.UpdateServerSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return
	}

	var ownerID string
	var beneficiaryID sql.NullString
	var err error
	if caps.AdminBeneficiary {
		err = db.QueryRowContext(c.Request.Context(), `
			SELECT owner_id, admin_beneficiary_id FROM servers WHERE id = $1
		`, serverID).Scan(&ownerID, &beneficiaryID)
	} else {
		err = db.QueryRowContext(c.Request.Context(), `
			SELECT owner_id FROM servers WHERE id = $1
		`, serverID).Scan(&ownerID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Server not found"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load server")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load server"})
		return
	}

	isAdmin := role == "admin"
	isOwner := userID == ownerID
	isBeneficiary := beneficiaryID.Valid && beneficiaryID.String == userID
	if !isAdmin && !isOwner && !isBeneficiary {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Not allowed to edit this server"})
		return
	}

	var setClauses []string
	var args []interface{}
	addUpdate := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, column+" = $"+strconv.Itoa(len(args)))
	}

	if req.Website != nil {
		website, ok := normalizeWebsite(*req.Website)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Website must use https"})
			return
		}
		addUpdate("website", website)
	}
	if req.DiscordURL != nil {
		discordURL, ok := normalizeDiscordURL(*req.DiscordURL)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Discord URL must be a discord.gg invite"})
			return
		}
		addUpdate("discord_url", discordURL)
	}
	if req.BannerURL != nil {
		addUpdate("banner_url", strings.TrimSpace(*req.BannerURL))
	}
	if req.AdminBeneficiaryID != nil {
		if !caps.AdminBeneficiary {
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Admin beneficiary is not supported"})
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Only admins can set the beneficiary"})
			return
		}
		if *req.AdminBeneficiaryID == ownerID {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "The server owner cannot be the admin beneficiary"})
			return
		}
		if *req.AdminBeneficiaryID == "" {
			addUpdate("admin_beneficiary_id", nil)
		} else {
			addUpdate("admin_beneficiary_id", *req.AdminBeneficiaryID)
		}
	}

	if len(setClauses) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No settings to update"})
		return
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, serverID)

	query := "UPDATE servers SET " + strings.Join(setClauses, ", ") + " WHERE id = $" + strconv.Itoa(len(args))
	if _, err := db.ExecContext(c.Request.Context(), query, args...); err != nil {
		logger.WithFields(logging.Fields{
			"server_id": serverID,
			"error":     err,
		}).Error("Failed to update server settings")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update server"})
		return
	}

	logger.WithFields(logging.Fields{
		"server_id": serverID,
		"user_id":   userID,
	}).Info("Server settings updated")

	c.JSON(http.StatusOK, middleware.H{"updated": true})
}

package handlers

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	api "github.com/Tiagocys/gamehub/pkg/api/gamehub"
	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/middleware"
	"github.com/Tiagocys/gamehub/pkg/models"
)

const (
	verificationCodePrefix   = "GMR-"
	verificationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	verificationCodeLength   = 5
	verificationTTL          = 10 * time.Minute
)

func generateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(verificationCodePrefix)
	for _, b := range buf {
		sb.WriteByte(verificationCodeAlphabet[int(b)%len(verificationCodeAlphabet)])
	}
	return sb.String(), nil
}

func botStartLink(code string) string {
	username := os.Getenv("TELEGRAM_BOT_USERNAME")
	if username == "" {
		username = "gimerrbot"
	}
	return fmt.Sprintf("https://t.me/%s?start=verify_%s", username, code)
}

// StartPhoneVerification issues a fresh verification code the user relays to
// the Telegram bot. Any in-flight verification for the user is expired first.
func StartPhoneVerification(c middleware.Context) {
	if !caps.PhoneVerifications {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "Phone verification is not available"})
		return
	}

	userID := c.GetString("user_id")

	var req api.PhoneVerifyStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "phone is required"})
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if len(phone) < 8 {
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Invalid phone number"})
		return
	}

	var taken bool
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT EXISTS(
			SELECT 1 FROM users WHERE phone = $1 AND phone_verified = TRUE AND id != $2
		)
	`, phone, userID).Scan(&taken)
	if err != nil {
		logger.WithError(err).Error("Failed to check phone availability")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to start verification"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "This phone number is already verified on another account"})
		return
	}

	_, err = db.ExecContext(c.Request.Context(), `
		UPDATE phone_verifications SET status = 'expired', updated_at = NOW()
		WHERE user_id = $1 AND status IN ('pending', 'code_confirmed')
	`, userID)
	if err != nil {
		logger.WithError(err).Error("Failed to expire previous verifications")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to start verification"})
		return
	}

	expiresAt := time.Now().Add(verificationTTL)
	var code string
	for attempt := 0; attempt < 5; attempt++ {
		code, err = generateVerificationCode()
		if err != nil {
			logger.WithError(err).Error("Failed to generate verification code")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to start verification"})
			return
		}
		_, err = db.ExecContext(c.Request.Context(), `
			INSERT INTO phone_verifications (user_id, phone, code, status, expires_at)
			VALUES ($1, $2, $3, $4, $5)
		`, userID, phone, code, models.PhoneVerificationPending, expiresAt)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			logger.WithError(err).Error("Failed to create verification")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to start verification"})
			return
		}
	}
	if err != nil {
		logger.WithFields(logging.Fields{"user_id": userID}).Error("Exhausted verification code attempts")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to start verification"})
		return
	}

	logger.WithFields(logging.Fields{"user_id": userID}).Info("Phone verification started")

	c.JSON(http.StatusOK, api.PhoneVerifyStartResponse{
		Code:      code,
		BotURL:    botStartLink(code),
		ExpiresAt: expiresAt,
	})
}

// PhoneVerificationStatus reports the latest verification state for the caller.
func PhoneVerificationStatus(c middleware.Context) {
	if !caps.PhoneVerifications {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "Phone verification is not available"})
		return
	}

	userID := c.GetString("user_id")

	var status string
	var expiresAt time.Time
	err := db.QueryRowContext(c.Request.Context(), `
		SELECT status, expires_at FROM phone_verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&status, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No verification in progress"})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load verification status")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load verification"})
		return
	}

	if status != models.PhoneVerificationVerified && time.Now().After(expiresAt) {
		status = models.PhoneVerificationExpired
	}

	c.JSON(http.StatusOK, api.PhoneVerifyStatusResponse{Status: status})
}

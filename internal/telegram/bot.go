package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/models"
)

var (
	startCodeRegex  = regexp.MustCompile(`(?i)/start\s+verify_([A-Z0-9-]+)`)
	verifyCodeRegex = regexp.MustCompile(`(?i)/verify\s+(GMR-[A-Z0-9-]+)`)
	bareCodeRegex   = regexp.MustCompile(`(?i)GMR-[A-Z0-9-]+`)
)

const sharePrompt = "Gimerr Phone Verification\n\nClick on the share button below to confirm your phone number."

// Bot handles the phone-verification conversation: the user brings a code
// generated on the website, then shares their contact to prove ownership of
// the phone number.
type Bot struct {
	bot    *bot.Bot
	db     *sql.DB
	logger logging.Logger
}

// New creates the verification bot and registers its handlers.
func New(token string, db *sql.DB, logger logging.Logger) (*Bot, error) {
	b := &Bot{db: db, logger: logger}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
	}

	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	b.bot = tgBot

	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.defaultHandler)

	return b, nil
}

// Start starts the bot polling. Blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	b.sendSharePrompt(ctx, update.Message.Chat.ID)
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	message := update.Message
	if message == nil {
		message = update.EditedMessage
	}
	if message == nil || message.From == nil {
		return
	}

	chatID := message.Chat.ID
	fromID := message.From.ID

	if message.Contact != nil {
		b.handleContact(ctx, chatID, fromID, message.Contact)
		return
	}

	if code := extractCode(message.Text); code != "" {
		b.handleCode(ctx, chatID, fromID, code)
		return
	}
}

func extractCode(text string) string {
	if m := startCodeRegex.FindStringSubmatch(text); len(m) == 2 {
		return strings.ToUpper(m[1])
	}
	if m := verifyCodeRegex.FindStringSubmatch(text); len(m) == 2 {
		return strings.ToUpper(m[1])
	}
	if m := bareCodeRegex.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

// handleCode links a verification code to the Telegram user who sent it.
func (b *Bot) handleCode(ctx context.Context, chatID, fromID int64, code string) {
	var id string
	var expiresAt time.Time
	err := b.db.QueryRowContext(ctx, `
		SELECT id, expires_at FROM phone_verifications WHERE code = $1
	`, code).Scan(&id, &expiresAt)
	if err == sql.ErrNoRows {
		b.sendText(ctx, chatID, "Invalid code. Please generate a new code on the website.")
		return
	}
	if err != nil {
		b.logger.WithError(err).Error("Failed to look up verification code")
		return
	}

	if time.Now().After(expiresAt) {
		b.expireVerification(ctx, id)
		b.sendText(ctx, chatID, "Your code has expired. Please generate a new one on the website.")
		return
	}

	_, err = b.db.ExecContext(ctx, `
		UPDATE phone_verifications SET telegram_user_id = $1, status = $2 WHERE id = $3
	`, fromID, models.PhoneVerificationCodeConfirmed, id)
	if err != nil {
		b.logger.WithError(err).Error("Failed to confirm verification code")
		return
	}

	b.sendSharePrompt(ctx, chatID)
}

// handleContact matches the shared contact against the pending verification.
func (b *Bot) handleContact(ctx context.Context, chatID, fromID int64, contact *tgmodels.Contact) {
	if contact.UserID != 0 && contact.UserID != fromID {
		b.sendText(ctx, chatID, "Please share your own contact to verify.")
		return
	}

	var id, userID string
	var storedPhone sql.NullString
	var expiresAt time.Time
	err := b.db.QueryRowContext(ctx, `
		SELECT id, user_id, phone, expires_at FROM phone_verifications
		WHERE telegram_user_id = $1 AND status IN ('pending', 'code_confirmed')
		ORDER BY created_at DESC LIMIT 1
	`, fromID).Scan(&id, &userID, &storedPhone, &expiresAt)
	if err == sql.ErrNoRows {
		b.sendText(ctx, chatID, "No pending verification found. Please generate a new code on the website.")
		return
	}
	if err != nil {
		b.logger.WithError(err).Error("Failed to load pending verification")
		return
	}

	if time.Now().After(expiresAt) {
		b.expireVerification(ctx, id)
		b.sendText(ctx, chatID, "Your code has expired. Please generate a new one on the website.")
		return
	}

	if storedPhone.Valid && storedPhone.String != "" &&
		!matchesPhone(normalizePhone(contact.PhoneNumber), normalizePhone(storedPhone.String)) {
		b.sendText(ctx, chatID, "The phone number doesn't match the one on record. Please generate a new code on the website.")
		return
	}

	phoneToSave := contact.PhoneNumber
	if phoneToSave == "" {
		phoneToSave = storedPhone.String
	}
	now := time.Now()

	_, err = b.db.ExecContext(ctx, `
		UPDATE users SET phone = $1, phone_verified = TRUE, phone_verified_at = $2 WHERE id = $3
	`, phoneToSave, now, userID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			b.expireVerification(ctx, id)
			b.sendText(ctx, chatID, "This phone number is already verified on another account. Please use a different number.")
			return
		}
		b.logger.WithError(err).Error("Failed to save verified phone")
		return
	}

	_, err = b.db.ExecContext(ctx, `
		UPDATE phone_verifications SET status = $1, phone = $2, verified_at = $3 WHERE id = $4
	`, models.PhoneVerificationVerified, phoneToSave, now, id)
	if err != nil {
		b.logger.WithError(err).Error("Failed to finalize verification")
		return
	}

	b.logger.WithFields(logging.Fields{
		"user_id": userID,
	}).Info("Phone verified via Telegram")
	b.sendText(ctx, chatID, "Phone number verified successfully!")
}

func (b *Bot) expireVerification(ctx context.Context, id string) {
	_, err := b.db.ExecContext(ctx, `
		UPDATE phone_verifications SET status = $1 WHERE id = $2
	`, models.PhoneVerificationExpired, id)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to expire verification")
	}
}

func (b *Bot) sendSharePrompt(ctx context.Context, chatID int64) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sharePrompt,
		ReplyMarkup: &tgmodels.ReplyKeyboardMarkup{
			Keyboard: [][]tgmodels.KeyboardButton{
				{{Text: "Share contact", RequestContact: true}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		},
	})
	if err != nil {
		b.logger.WithError(err).Warn("Failed to send share prompt")
	}
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		b.logger.WithError(err).Warn("Failed to send message")
	}
}

func normalizePhone(value string) string {
	var sb strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func matchesPhone(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

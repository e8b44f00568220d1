package models

import "time"

// Listing statuses
const (
	ListingStatusActive  = "active"
	ListingStatusPending = "pending"
	ListingStatusRemoved = "removed"
)

// Highlight statuses
const (
	HighlightStatusNone   = "none"
	HighlightStatusActive = "active"
)

// Listing is a marketplace listing tied to a game server.
type Listing struct {
	ID                 string     `json:"id" db:"id"`
	UserID             string     `json:"user_id" db:"user_id"`
	ServerID           string     `json:"server_id" db:"server_id"`
	Title              string     `json:"title" db:"title"`
	Status             string     `json:"status" db:"status"`
	HighlightStatus    string     `json:"highlight_status" db:"highlight_status"`
	HighlightStartedAt *time.Time `json:"highlight_started_at,omitempty" db:"highlight_started_at"`
	HighlightExpiresAt *time.Time `json:"highlight_expires_at,omitempty" db:"highlight_expires_at"`
	HighlightDays      *int       `json:"highlight_days,omitempty" db:"highlight_days"`
	ImageKeys          []string   `json:"image_keys" db:"image_keys"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// GameServer is a community server whose owner can receive payouts.
type GameServer struct {
	ID                 string    `json:"id" db:"id"`
	OwnerID            string    `json:"owner_id" db:"owner_id"`
	GameID             string    `json:"game_id" db:"game_id"`
	Name               string    `json:"name" db:"name"`
	Website            *string   `json:"website,omitempty" db:"website"`
	DiscordURL         *string   `json:"discord_url,omitempty" db:"discord_url"`
	BannerURL          *string   `json:"banner_url,omitempty" db:"banner_url"`
	AdminBeneficiaryID *string   `json:"admin_beneficiary_id,omitempty" db:"admin_beneficiary_id"`
	StripeAccountID    *string   `json:"stripe_account_id,omitempty" db:"stripe_account_id"`
	ChargesEnabled     bool      `json:"charges_enabled" db:"charges_enabled"`
	PayoutsEnabled     bool      `json:"payouts_enabled" db:"payouts_enabled"`
	DetailsSubmitted   bool      `json:"details_submitted" db:"details_submitted"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Game statuses
const (
	GameStatusPending  = "pending"
	GameStatusApproved = "approved"
	GameStatusRejected = "rejected"
)

// Game is a catalogue entry submitted by a user and approved by an admin.
type Game struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	OfficialSite string    `json:"official_site" db:"official_site"`
	Status       string    `json:"status" db:"status"`
	SubmittedBy  string    `json:"submitted_by" db:"submitted_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Report statuses
const (
	ReportStatusOpen    = "open"
	ReportStatusHandled = "handled"
)

// Report is a user-submitted moderation report against a listing.
type Report struct {
	ID           string    `json:"id" db:"id"`
	ListingID    string    `json:"listing_id" db:"listing_id"`
	ReporterID   string    `json:"reporter_id" db:"reporter_id"`
	Reason       string    `json:"reason" db:"reason"`
	Status       string    `json:"status" db:"status"`
	EvidenceKeys []string  `json:"evidence_keys" db:"evidence_keys"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Phone verification statuses
const (
	PhoneVerificationPending       = "pending"
	PhoneVerificationCodeConfirmed = "code_confirmed"
	PhoneVerificationVerified      = "verified"
	PhoneVerificationExpired       = "expired"
)

// PhoneVerification is a pending phone verification via the Telegram bot.
type PhoneVerification struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	Code           string     `json:"code" db:"code"`
	Status         string     `json:"status" db:"status"`
	TelegramUserID *int64     `json:"telegram_user_id,omitempty" db:"telegram_user_id"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

package gamehub

import (
	"time"

	"github.com/Tiagocys/gamehub/pkg/models"
)

// ErrorResponse is the standard error body for all endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// HumanBalance is a wallet balance broken down for display
type HumanBalance struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
}

// HighlightRates exposes the effective per-second prices
type HighlightRates struct {
	Day1PerSecond  float64 `json:"day1_per_second"`
	Day30PerSecond float64 `json:"day30_per_second"`
}

// WalletResponse is returned by wallet reads and mutations
type WalletResponse struct {
	Wallet models.HighlightWallet `json:"wallet"`
	Human  HumanBalance           `json:"human"`
	Rate   HighlightRates         `json:"rate"`
}

// ActivateRequest selects the listing to highlight
type ActivateRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// ActivateResponse reports the outcome of an activation attempt
type ActivateResponse struct {
	Activated bool           `json:"activated"`
	Reason    string         `json:"reason,omitempty"`
	Wallet    WalletResponse `json:"wallet"`
}

// DeactivateResponse reports the outcome of a deactivation
type DeactivateResponse struct {
	Deactivated bool           `json:"deactivated"`
	Wallet      WalletResponse `json:"wallet"`
}

// CheckoutRequest creates a wallet top-up checkout session
type CheckoutRequest struct {
	Days         int     `json:"days"`
	AmountBRL    float64 `json:"amount_brl"`
	AutoActivate bool    `json:"auto_activate"`
	ListingID    string  `json:"listing_id"`
}

// CheckoutResponse carries the hosted checkout URL
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookAck acknowledges a processed webhook
type WebhookAck struct {
	OK        bool `json:"ok"`
	Duplicate bool `json:"duplicate,omitempty"`
	Received  bool `json:"received,omitempty"`
}

// PayoutSummaryResponse aggregates earned/pending amounts for a partner.
// Amounts are decimal currency units; cents stay internal.
type PayoutSummaryResponse struct {
	TotalExpected float64 `json:"total_expected"`
	Available     float64 `json:"available"`
	Pending       float64 `json:"pending"`
	Count         int     `json:"count"`
	Method        string  `json:"method"`
	Unsupported   bool    `json:"unsupported,omitempty"`
}

// SignUploadRequest asks for a presigned listing image upload
type SignUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	Ext         string `json:"ext" binding:"required"`
}

// SignUploadResponse carries the presigned PUT URL and object key
type SignUploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

// DeleteListingResponse reports a listing deletion with storage cleanup counts
type DeleteListingResponse struct {
	Deleted       bool `json:"deleted"`
	ImagesDeleted int  `json:"images_deleted"`
	ImagesFailed  int  `json:"images_failed"`
}

// PhoneVerifyStartRequest begins phone verification
type PhoneVerifyStartRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// PhoneVerifyStartResponse carries the code the user sends to the bot
type PhoneVerifyStartResponse struct {
	Code      string    `json:"code"`
	BotURL    string    `json:"bot_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PhoneVerifyStatusResponse reports verification progress
type PhoneVerifyStatusResponse struct {
	Status string `json:"status"` // pending, verified, expired
}

// ConnectOnboardingResponse carries the Stripe Connect onboarding link
type ConnectOnboardingResponse struct {
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

// ConnectStatusResponse reports the partner's Connect account state
type ConnectStatusResponse struct {
	AccountID        string `json:"account_id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// ModerateReportRequest selects a moderation action for a report
type ModerateReportRequest struct {
	Action string `json:"action" binding:"required"` // handled, delete-listing, ban-user
	Note   string `json:"note"`
}

// ModerateReportResponse reports the applied action
type ModerateReportResponse struct {
	Action          string `json:"action"`
	EvidenceDeleted int    `json:"evidence_deleted"`
}

// ApproveGameResponse reports a game approval
type ApproveGameResponse struct {
	Approved bool   `json:"approved"`
	ServerID string `json:"server_id,omitempty"`
}

// UpdateServerSettingsRequest updates partner-facing server settings
type UpdateServerSettingsRequest struct {
	Website            *string `json:"website"`
	DiscordURL         *string `json:"discord_url"`
	BannerURL          *string `json:"banner_url"`
	AdminBeneficiaryID *string `json:"admin_beneficiary_id"`
}

package models

import "time"

// Wallet event types. Events are append-only; balances are derived state
// that must always agree with the event stream.
const (
	WalletEventTopup      = "topup"
	WalletEventConsume    = "consume"
	WalletEventActivate   = "activate"
	WalletEventDeactivate = "deactivate"
	WalletEventExpire     = "expire"
)

// HighlightWallet is the per-user balance of purchased highlight seconds.
type HighlightWallet struct {
	ID                    string    `json:"id" db:"id"`
	UserID                string    `json:"user_id" db:"user_id"`
	AvailableSeconds      int64     `json:"available_seconds" db:"available_seconds"`
	TotalPurchasedSeconds int64     `json:"total_purchased_seconds" db:"total_purchased_seconds"`
	TotalConsumedSeconds  int64     `json:"total_consumed_seconds" db:"total_consumed_seconds"`
	ActiveListingCount    int       `json:"active_listing_count" db:"active_listing_count"`
	LastConsumedAt        time.Time `json:"last_consumed_at" db:"last_consumed_at"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// WalletEvent is one append-only ledger entry for a wallet.
type WalletEvent struct {
	ID                string    `json:"id" db:"id"`
	WalletID          string    `json:"wallet_id" db:"wallet_id"`
	UserID            string    `json:"user_id" db:"user_id"`
	EventType         string    `json:"event_type" db:"event_type"`
	SecondsDelta      int64     `json:"seconds_delta" db:"seconds_delta"`
	BalanceAfter      int64     `json:"balance_after" db:"balance_after"`
	ListingID         *string   `json:"listing_id,omitempty" db:"listing_id"`
	CheckoutSessionID *string   `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	AmountCents       *int64    `json:"amount_cents,omitempty" db:"amount_cents"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

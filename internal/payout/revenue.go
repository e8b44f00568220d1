package payout

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
)

// Revenue-share constants. When the processor's net-of-fee amount is not
// available, platform net is estimated from gross.
const (
	EstimatedNetRatio = 0.921
	OwnerShareRatio   = 0.5
	AdminShareRatio   = 0.25
)

// ShareParams describes one settled payment to split between recipients.
type ShareParams struct {
	CheckoutSessionID string
	PayerUserID       string
	ListingID         string
	GrossCents        int64
	NetCents          int64 // 0 when the processor did not report a net amount
}

// Recorder writes partner revenue-share rows at settlement time.
type Recorder struct {
	db     *sql.DB
	logger logging.Logger
	caps   database.Capabilities
}

// NewRecorder creates a revenue-share recorder.
func NewRecorder(db *sql.DB, logger logging.Logger, caps database.Capabilities) *Recorder {
	return &Recorder{db: db, logger: logger, caps: caps}
}

// RecordShares splits the platform's net proceeds of one payment between the
// listing's server owner (0.5) and the server's admin beneficiary (0.25) and
// upserts one payout row per recipient, keyed by (checkout_session_id,
// payout_role) so webhook replays cannot double-write. The admin row is
// suppressed when the beneficiary is the owner themselves.
func (r *Recorder) RecordShares(ctx context.Context, p ShareParams, now time.Time) error {
	if !r.caps.PayoutEvents {
		r.logger.WithFields(logging.Fields{
			"checkout_session_id": p.CheckoutSessionID,
		}).Warn("Payout events table not provisioned, skipping revenue shares")
		return nil
	}
	if p.ListingID == "" {
		r.logger.WithFields(logging.Fields{
			"checkout_session_id": p.CheckoutSessionID,
		}).Debug("No listing attached to topup, skipping revenue shares")
		return nil
	}

	platformNetCents := p.NetCents
	if platformNetCents <= 0 {
		platformNetCents = int64(math.Round(float64(p.GrossCents) * EstimatedNetRatio))
	}

	var ownerID string
	var adminBeneficiaryID sql.NullString
	query := `
		SELECT s.owner_id, s.admin_beneficiary_id
		FROM listings l JOIN servers s ON l.server_id = s.id
		WHERE l.id = $1
	`
	if !r.caps.AdminBeneficiary {
		query = `
			SELECT s.owner_id, NULL
			FROM listings l JOIN servers s ON l.server_id = s.id
			WHERE l.id = $1
		`
	}
	err := r.db.QueryRowContext(ctx, query, p.ListingID).Scan(&ownerID, &adminBeneficiaryID)
	if err == sql.ErrNoRows {
		r.logger.WithFields(logging.Fields{
			"listing_id": p.ListingID,
		}).Warn("Listing has no server, skipping revenue shares")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve revenue recipients: %w", err)
	}

	ownerCents := int64(math.Round(float64(platformNetCents) * OwnerShareRatio))
	if err := r.upsertShare(ctx, p, "owner", ownerID, ownerCents, now); err != nil {
		return err
	}

	if !adminBeneficiaryID.Valid || adminBeneficiaryID.String == "" {
		return nil
	}
	if adminBeneficiaryID.String == ownerID {
		// Self-dealing: the owner cannot also collect the admin share.
		r.logger.WithFields(logging.Fields{
			"checkout_session_id": p.CheckoutSessionID,
			"owner_id":            ownerID,
		}).Warn("Admin beneficiary equals server owner, suppressing admin share")
		return nil
	}

	adminCents := int64(math.Round(float64(platformNetCents) * AdminShareRatio))
	return r.upsertShare(ctx, p, "admin", adminBeneficiaryID.String, adminCents, now)
}

func (r *Recorder) upsertShare(ctx context.Context, p ShareParams, role, recipientID string, shareCents int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO partner_payout_events (
			owner_user_id, payout_role, payer_user_id, checkout_session_id,
			gross_cents, expected_net_cents, refunded_net_cents, payout_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 'pending', $7)
		ON CONFLICT (checkout_session_id, payout_role) DO NOTHING
	`, recipientID, role, p.PayerUserID, p.CheckoutSessionID, p.GrossCents, shareCents, now)
	if err != nil {
		if database.IsMissingSchema(err) {
			r.logger.WithError(err).Warn("Payout events schema missing, skipping revenue share")
			return nil
		}
		return fmt.Errorf("failed to record %s revenue share: %w", role, err)
	}

	r.logger.WithFields(logging.Fields{
		"checkout_session_id": p.CheckoutSessionID,
		"role":                role,
		"recipient_id":        recipientID,
		"share_cents":         shareCents,
	}).Info("Revenue share recorded")
	return nil
}

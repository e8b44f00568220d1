package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Tiagocys/gamehub/pkg/database"
	"github.com/Tiagocys/gamehub/pkg/logging"
	"github.com/Tiagocys/gamehub/pkg/models"
)

var (
	// ErrListingNotFound means the listing does not exist or is not owned by the caller.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingNotActive means only active listings can be highlighted.
	ErrListingNotActive = errors.New("only active listings can be highlighted")
	// ErrInsufficientBalance means the wallet has no highlight seconds left.
	ErrInsufficientBalance = errors.New("insufficient highlight balance")
)

// Engine owns all mutations of highlight wallets. Consumption is lazy: no
// background job drains balances, every read first settles elapsed time
// against the wallet inside a transaction.
type Engine struct {
	db     *sql.DB
	logger logging.Logger
}

// NewEngine creates a wallet engine on top of the given database.
func NewEngine(db *sql.DB, logger logging.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// SyncResult is the settled wallet state after a sync.
type SyncResult struct {
	Wallet      models.HighlightWallet
	ConsumedNow int64
	Depleted    bool
}

// ActivationResult reports the outcome of an activate call.
type ActivationResult struct {
	Activated bool
	Reason    string
	Sync      SyncResult
}

const walletColumns = `id, user_id, available_seconds, total_purchased_seconds, total_consumed_seconds, active_listing_count, last_consumed_at, created_at, updated_at`

func scanWallet(row *sql.Row) (models.HighlightWallet, error) {
	var w models.HighlightWallet
	err := row.Scan(&w.ID, &w.UserID, &w.AvailableSeconds, &w.TotalPurchasedSeconds,
		&w.TotalConsumedSeconds, &w.ActiveListingCount, &w.LastConsumedAt, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// Sync settles elapsed highlight time for a user and returns the wallet.
// N active listings drain N seconds of balance per elapsed second. When the
// balance cannot cover the elapsed drain it is consumed down to zero and
// every active highlight is force-deactivated.
func (e *Engine) Sync(ctx context.Context, userID string, now time.Time) (SyncResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	result, err := e.syncTx(ctx, tx, userID, now)
	if err != nil {
		return SyncResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("failed to commit wallet sync: %w", err)
	}
	return result, nil
}

// syncTx runs the drain inside the caller's transaction.
func (e *Engine) syncTx(ctx context.Context, tx *sql.Tx, userID string, now time.Time) (SyncResult, error) {
	wallet, err := e.ensureWalletTx(ctx, tx, userID, now)
	if err != nil {
		return SyncResult{}, err
	}

	activeCount, err := countActiveHighlights(ctx, tx, userID)
	if err != nil {
		return SyncResult{}, err
	}

	available := wallet.AvailableSeconds
	totalConsumed := wallet.TotalConsumedSeconds
	elapsed := int64(now.Sub(wallet.LastConsumedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	var consumedNow int64
	depleted := false

	if activeCount > 0 {
		if available <= 0 {
			if err := deactivateAllHighlights(ctx, tx, userID); err != nil {
				return SyncResult{}, err
			}
			activeCount = 0
			depleted = true
		} else if elapsed > 0 {
			requested := elapsed * int64(activeCount)
			if requested >= available {
				consumedNow = available
				available = 0
				totalConsumed += consumedNow
				if err := deactivateAllHighlights(ctx, tx, userID); err != nil {
					return SyncResult{}, err
				}
				activeCount = 0
				depleted = true
			} else {
				consumedNow = requested
				available -= consumedNow
				totalConsumed += consumedNow
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET available_seconds = $1, total_consumed_seconds = $2,
		    active_listing_count = $3, last_consumed_at = $4, updated_at = NOW()
		WHERE id = $5
	`, available, totalConsumed, activeCount, now, wallet.ID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to update wallet: %w", err)
	}

	wallet.AvailableSeconds = available
	wallet.TotalConsumedSeconds = totalConsumed
	wallet.ActiveListingCount = activeCount
	wallet.LastConsumedAt = now

	if consumedNow > 0 {
		if err := appendEvent(ctx, tx, eventParams{
			walletID:     wallet.ID,
			userID:       userID,
			eventType:    models.WalletEventConsume,
			secondsDelta: -consumedNow,
			balanceAfter: available,
		}); err != nil {
			return SyncResult{}, err
		}
	}

	if depleted {
		if err := appendEvent(ctx, tx, eventParams{
			walletID:     wallet.ID,
			userID:       userID,
			eventType:    models.WalletEventExpire,
			secondsDelta: 0,
			balanceAfter: 0,
		}); err != nil {
			return SyncResult{}, err
		}
		e.logger.WithFields(logging.Fields{
			"user_id":      userID,
			"consumed_now": consumedNow,
		}).Info("Wallet depleted, highlights force-deactivated")
	}

	return SyncResult{Wallet: wallet, ConsumedNow: consumedNow, Depleted: depleted}, nil
}

// ensureWalletTx loads the wallet row with a lock, creating it when absent.
func (e *Engine) ensureWalletTx(ctx context.Context, tx *sql.Tx, userID string, now time.Time) (models.HighlightWallet, error) {
	wallet, err := scanWallet(tx.QueryRowContext(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.HighlightWallet{}, fmt.Errorf("failed to load wallet: %w", err)
	}

	activeCount, err := countActiveHighlights(ctx, tx, userID)
	if err != nil {
		return models.HighlightWallet{}, err
	}

	wallet, err = scanWallet(tx.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, available_seconds, total_purchased_seconds, total_consumed_seconds, active_listing_count, last_consumed_at)
		VALUES ($1, 0, 0, 0, $2, $3)
		RETURNING `+walletColumns+`
	`, userID, activeCount, now))
	if err != nil {
		// Another request created the wallet concurrently; load theirs.
		if database.IsUniqueViolation(err) {
			wallet, err = scanWallet(tx.QueryRowContext(ctx, `
				SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE
			`, userID))
			if err != nil {
				return models.HighlightWallet{}, fmt.Errorf("failed to reload wallet: %w", err)
			}
			return wallet, nil
		}
		return models.HighlightWallet{}, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func countActiveHighlights(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE user_id = $1 AND status = 'active' AND highlight_status = 'active'
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active highlights: %w", err)
	}
	return count, nil
}

func deactivateAllHighlights(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET highlight_status = 'none', highlight_started_at = NULL, highlight_expires_at = NULL, highlight_days = 0, updated_at = NOW()
		WHERE user_id = $1 AND highlight_status = 'active'
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate highlights: %w", err)
	}
	return nil
}

type eventParams struct {
	walletID          string
	userID            string
	eventType         string
	secondsDelta      int64
	balanceAfter      int64
	listingID         *string
	checkoutSessionID *string
	amountCents       *int64
}

func appendEvent(ctx context.Context, tx *sql.Tx, p eventParams) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_events (wallet_id, user_id, event_type, seconds_delta, balance_after, listing_id, checkout_session_id, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.walletID, p.userID, p.eventType, p.secondsDelta, p.balanceAfter, p.listingID, p.checkoutSessionID, p.amountCents)
	if err != nil {
		return fmt.Errorf("failed to append wallet event: %w", err)
	}
	return nil
}

// Activate turns on the highlight for one listing after settling the wallet.
func (e *Engine) Activate(ctx context.Context, userID, listingID string, now time.Time) (ActivationResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return ActivationResult{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	sync, err := e.syncTx(ctx, tx, userID, now)
	if err != nil {
		return ActivationResult{}, err
	}

	var status, highlightStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status, highlight_status FROM listings WHERE id = $1 AND user_id = $2
	`, listingID, userID).Scan(&status, &highlightStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ActivationResult{}, ErrListingNotFound
	}
	if err != nil {
		return ActivationResult{}, fmt.Errorf("failed to load listing: %w", err)
	}

	if status != models.ListingStatusActive {
		return ActivationResult{}, ErrListingNotActive
	}
	if highlightStatus == models.HighlightStatusActive {
		// Already highlighted; report as a no-op with settled state.
		if err := tx.Commit(); err != nil {
			return ActivationResult{}, fmt.Errorf("failed to commit: %w", err)
		}
		return ActivationResult{Activated: false, Reason: "already active", Sync: sync}, nil
	}
	if sync.Wallet.AvailableSeconds <= 0 {
		return ActivationResult{}, ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE listings
		SET highlight_status = 'active', highlight_started_at = $3, highlight_expires_at = NULL, highlight_days = 0, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, listingID, userID, now)
	if err != nil {
		return ActivationResult{}, fmt.Errorf("failed to activate highlight: %w", err)
	}

	if err := appendEvent(ctx, tx, eventParams{
		walletID:     sync.Wallet.ID,
		userID:       userID,
		eventType:    models.WalletEventActivate,
		secondsDelta: 0,
		balanceAfter: sync.Wallet.AvailableSeconds,
		listingID:    &listingID,
	}); err != nil {
		return ActivationResult{}, err
	}

	sync.Wallet.ActiveListingCount++
	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET active_listing_count = $1, updated_at = NOW() WHERE id = $2
	`, sync.Wallet.ActiveListingCount, sync.Wallet.ID)
	if err != nil {
		return ActivationResult{}, fmt.Errorf("failed to update wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ActivationResult{}, fmt.Errorf("failed to commit activation: %w", err)
	}

	e.logger.WithFields(logging.Fields{
		"user_id":    userID,
		"listing_id": listingID,
	}).Info("Highlight activated")

	return ActivationResult{Activated: true, Sync: sync}, nil
}

// Deactivate turns off the highlight for one listing. Deactivating a listing
// that is not highlighted is a no-op.
func (e *Engine) Deactivate(ctx context.Context, userID, listingID string, now time.Time) (SyncResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	sync, err := e.syncTx(ctx, tx, userID, now)
	if err != nil {
		return SyncResult{}, err
	}

	var highlightStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT highlight_status FROM listings WHERE id = $1 AND user_id = $2
	`, listingID, userID).Scan(&highlightStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncResult{}, ErrListingNotFound
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to load listing: %w", err)
	}

	if highlightStatus == models.HighlightStatusActive {
		_, err = tx.ExecContext(ctx, `
			UPDATE listings
			SET highlight_status = 'none', highlight_started_at = NULL, highlight_expires_at = NULL, highlight_days = 0, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, listingID, userID)
		if err != nil {
			return SyncResult{}, fmt.Errorf("failed to deactivate highlight: %w", err)
		}

		if err := appendEvent(ctx, tx, eventParams{
			walletID:     sync.Wallet.ID,
			userID:       userID,
			eventType:    models.WalletEventDeactivate,
			secondsDelta: 0,
			balanceAfter: sync.Wallet.AvailableSeconds,
			listingID:    &listingID,
		}); err != nil {
			return SyncResult{}, err
		}

		if sync.Wallet.ActiveListingCount > 0 {
			sync.Wallet.ActiveListingCount--
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET active_listing_count = $1, updated_at = NOW() WHERE id = $2
		`, sync.Wallet.ActiveListingCount, sync.Wallet.ID)
		if err != nil {
			return SyncResult{}, fmt.Errorf("failed to update wallet: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("failed to commit deactivation: %w", err)
	}
	return sync, nil
}

// CreditTopup credits purchased seconds from a settled checkout session.
// Idempotent per checkout session: replayed webhooks return duplicate=true
// without touching balances. The whole settlement is one transaction.
func (e *Engine) CreditTopup(ctx context.Context, userID, checkoutSessionID string, seconds, amountCents int64, now time.Time) (duplicate bool, err error) {
	if seconds <= 0 {
		return false, fmt.Errorf("topup seconds must be positive, got %d", seconds)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallet_events WHERE event_type = 'topup' AND checkout_session_id = $1)
	`, checkoutSessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check topup idempotency: %w", err)
	}
	if exists {
		return true, nil
	}

	// Elapsed consumption is settled before the credit so prior idle time
	// never drains the seconds purchased here.
	sync, err := e.syncTx(ctx, tx, userID, now)
	if err != nil {
		return false, err
	}
	wallet := sync.Wallet

	newAvailable := wallet.AvailableSeconds + seconds
	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET available_seconds = $1, total_purchased_seconds = $2, updated_at = NOW()
		WHERE id = $3
	`, newAvailable, wallet.TotalPurchasedSeconds+seconds, wallet.ID)
	if err != nil {
		return false, fmt.Errorf("failed to credit wallet: %w", err)
	}

	if err := appendEvent(ctx, tx, eventParams{
		walletID:          wallet.ID,
		userID:            userID,
		eventType:         models.WalletEventTopup,
		secondsDelta:      seconds,
		balanceAfter:      newAvailable,
		checkoutSessionID: &checkoutSessionID,
		amountCents:       &amountCents,
	}); err != nil {
		// The unique index on checkout_session_id closes the race between
		// the existence check and the insert.
		if database.IsUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit topup: %w", err)
	}

	// Settle once more so callers reading the wallet right after the credit
	// see a fresh listing count and clock.
	if _, err := e.Sync(ctx, userID, now); err != nil {
		e.logger.WithError(err).WithFields(logging.Fields{
			"user_id": userID,
		}).Warn("Post-topup wallet sync failed")
	}

	e.logger.WithFields(logging.Fields{
		"user_id":             userID,
		"checkout_session_id": checkoutSessionID,
		"seconds":             seconds,
		"amount_cents":        amountCents,
	}).Info("Wallet topup credited")

	return false, nil
}

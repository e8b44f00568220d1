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

// Summarizer computes partner payout summaries. It is read-only with respect
// to wallets: elapsed consumption is projected, never written back.
type Summarizer struct {
	db     *sql.DB
	logger logging.Logger
	caps   database.Capabilities
}

// Summary holds cent-precision payout aggregates for one owner. Callers
// convert to display currency at the response boundary.
type Summary struct {
	TotalExpectedCents int64
	AvailableCents     int64
	PendingCents       int64
	Count              int
	Method             string
	Unsupported        bool
}

// NewSummarizer creates a payout summarizer.
func NewSummarizer(db *sql.DB, logger logging.Logger, caps database.Capabilities) *Summarizer {
	return &Summarizer{db: db, logger: logger, caps: caps}
}

type payoutRow struct {
	payerUserID       string
	checkoutSessionID string
	expectedNetCents  int64
	refundedNetCents  int64
	payoutStatus      string
}

type payerConsumption struct {
	consumedSeconds int64
	ratios          map[string]float64
}

// Summary aggregates the owner's non-paid payout rows into earned (available)
// and still-refundable (pending) cents using FIFO apportionment.
func (s *Summarizer) Summary(ctx context.Context, ownerUserID string, now time.Time) (Summary, error) {
	if !s.caps.PayoutEvents {
		return Summary{Unsupported: true}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payer_user_id, checkout_session_id, expected_net_cents, refunded_net_cents, payout_status
		FROM partner_payout_events
		WHERE owner_user_id = $1 AND payout_status != 'paid'
	`, ownerUserID)
	if err != nil {
		// Mid-flight migration: the capability probe ran before the table was dropped.
		if database.IsMissingSchema(err) {
			return Summary{Unsupported: true}, nil
		}
		return Summary{}, fmt.Errorf("failed to load payout events: %w", err)
	}
	defer rows.Close()

	var events []payoutRow
	for rows.Next() {
		var r payoutRow
		if err := rows.Scan(&r.payerUserID, &r.checkoutSessionID, &r.expectedNetCents, &r.refundedNetCents, &r.payoutStatus); err != nil {
			return Summary{}, fmt.Errorf("failed to scan payout event: %w", err)
		}
		events = append(events, r)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("failed to iterate payout events: %w", err)
	}

	summary := Summary{Method: Method}
	if len(events) == 0 {
		return summary, nil
	}

	consumptionByPayer := make(map[string]payerConsumption)
	for _, event := range events {
		if event.payerUserID == "" {
			continue
		}
		if _, done := consumptionByPayer[event.payerUserID]; done {
			continue
		}
		consumption, err := s.computePayerConsumption(ctx, event.payerUserID, now)
		if err != nil {
			return Summary{}, err
		}
		consumptionByPayer[event.payerUserID] = consumption
	}

	for _, event := range events {
		if event.payoutStatus == "refunded" {
			continue
		}
		effectiveCents := event.expectedNetCents - event.refundedNetCents
		if effectiveCents <= 0 {
			continue
		}

		var ratio float64
		if event.payerUserID != "" && event.checkoutSessionID != "" {
			ratio = consumptionByPayer[event.payerUserID].ratios[event.checkoutSessionID]
		}
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}

		rowAvailable := int64(math.Round(float64(effectiveCents) * ratio))
		if rowAvailable > effectiveCents {
			rowAvailable = effectiveCents
		}

		summary.TotalExpectedCents += effectiveCents
		summary.AvailableCents += rowAvailable
		summary.PendingCents += effectiveCents - rowAvailable
		summary.Count++
	}

	return summary, nil
}

// computePayerConsumption projects the payer's consumed seconds (settled plus
// elapsed-but-unsettled) and maps them onto topup sessions FIFO.
func (s *Summarizer) computePayerConsumption(ctx context.Context, payerUserID string, now time.Time) (payerConsumption, error) {
	var availableSeconds, consumedAlready int64
	var lastConsumedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT available_seconds, total_consumed_seconds, last_consumed_at
		FROM wallets WHERE user_id = $1
	`, payerUserID).Scan(&availableSeconds, &consumedAlready, &lastConsumedAt)
	if err == sql.ErrNoRows {
		return payerConsumption{ratios: map[string]float64{}}, nil
	}
	if err != nil {
		if database.IsMissingSchema(err) {
			return payerConsumption{ratios: map[string]float64{}}, nil
		}
		return payerConsumption{}, fmt.Errorf("failed to load payer wallet: %w", err)
	}

	var activeCount int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE user_id = $1 AND status = 'active' AND highlight_status = 'active'
	`, payerUserID).Scan(&activeCount)
	if err != nil {
		return payerConsumption{}, fmt.Errorf("failed to count payer highlights: %w", err)
	}

	elapsed := int64(now.Sub(lastConsumedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	var consumedNow int64
	if activeCount > 0 && elapsed > 0 && availableSeconds > 0 {
		consumedNow = elapsed * activeCount
		if consumedNow > availableSeconds {
			consumedNow = availableSeconds
		}
	}
	consumedSeconds := consumedAlready + consumedNow

	rows, err := s.db.QueryContext(ctx, `
		SELECT checkout_session_id, seconds_delta
		FROM wallet_events
		WHERE user_id = $1 AND event_type = 'topup' AND checkout_session_id IS NOT NULL
		ORDER BY created_at ASC
	`, payerUserID)
	if err != nil {
		if database.IsMissingSchema(err) {
			return payerConsumption{consumedSeconds: consumedSeconds, ratios: map[string]float64{}}, nil
		}
		return payerConsumption{}, fmt.Errorf("failed to load payer topups: %w", err)
	}
	defer rows.Close()

	var topups []TopupEvent
	for rows.Next() {
		var sessionID string
		var seconds int64
		if err := rows.Scan(&sessionID, &seconds); err != nil {
			return payerConsumption{}, fmt.Errorf("failed to scan topup event: %w", err)
		}
		topups = append(topups, TopupEvent{CheckoutSessionID: sessionID, Seconds: seconds})
	}
	if err := rows.Err(); err != nil {
		return payerConsumption{}, fmt.Errorf("failed to iterate topup events: %w", err)
	}

	return payerConsumption{
		consumedSeconds: consumedSeconds,
		ratios:          ApportionRatios(topups, consumedSeconds),
	}, nil
}

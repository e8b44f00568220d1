package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Tiagocys/gamehub/pkg/database"
)

func stripeSignatureHeader(payload []byte, secret string, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, expectedSignature)
}

func topupEventBody(t *testing.T, sessionID string, metadata map[string]string, amountTotal int64) []byte {
	t.Helper()
	object, err := json.Marshal(map[string]interface{}{
		"id":             sessionID,
		"amount_total":   amountTotal,
		"currency":       "brl",
		"payment_status": "paid",
		"metadata":       metadata,
	})
	if err != nil {
		t.Fatalf("failed to marshal session: %v", err)
	}
	payload := StripeWebhookPayload{
		ID:   "evt_test_123",
		Type: "checkout.session.completed",
	}
	payload.Data.Object = object
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return body
}

func TestProcessStripeWebhookMissingSecret(t *testing.T) {
	logger = logrus.New()
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	body := []byte(`{"id":"evt_missing_secret"}`)
	msg, code := processStripeWebhook(context.Background(), body, "t=123,v1=deadbeef")
	if code != 503 {
		t.Fatalf("expected 503, got %d (msg=%q)", code, msg)
	}
}

func TestProcessStripeWebhookInvalidSignature(t *testing.T) {
	logger = logrus.New()
	metrics = nil
	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := []byte(`{"id":"evt_invalid_signature"}`)
	msg, code := processStripeWebhook(context.Background(), body, fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))
	if code != 401 {
		t.Fatalf("expected 401, got %d (msg=%q)", code, msg)
	}
}

func TestProcessStripeWebhookStaleTimestamp(t *testing.T) {
	logger = logrus.New()
	metrics = nil
	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := []byte(`{"id":"evt_stale"}`)
	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Add(-10*time.Minute).Unix())
	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 401 {
		t.Fatalf("expected 401 for stale timestamp, got %d (msg=%q)", code, msg)
	}
}

func TestProcessStripeWebhookInvalidPayload(t *testing.T) {
	logger = logrus.New()
	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := []byte(`not-json`)
	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Unix())
	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 400 {
		t.Fatalf("expected 400, got %d (msg=%q)", code, msg)
	}
}

func TestProcessStripeWebhookIgnoresOtherEvents(t *testing.T) {
	logger = logrus.New()
	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	payload := StripeWebhookPayload{ID: "evt_test_456", Type: "payment_intent.succeeded"}
	payload.Data.Object = json.RawMessage(`{"id":"pi_test"}`)
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Unix())
	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 200 {
		t.Fatalf("expected 200, got %d (msg=%q)", code, msg)
	}
	if msg != "received" {
		t.Fatalf("expected received ack, got %q", msg)
	}
}

func TestProcessStripeWebhookDuplicateSettlement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	Init(Deps{DB: mockDB, Logger: logrus.New()})
	t.Cleanup(func() {
		db = nil
		walletEngine = nil
	})

	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := topupEventBody(t, "cs_test_dup", map[string]string{
		"purpose":           "highlight_wallet_topup",
		"user_id":           "user-1",
		"purchased_seconds": "86400",
	}, 500)
	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Unix())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM wallet_events").
		WithArgs("cs_test_dup").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 200 {
		t.Fatalf("expected 200, got %d (msg=%q)", code, msg)
	}
	if msg != "duplicate" {
		t.Fatalf("expected duplicate ack, got %q", msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessStripeWebhookSettlesAndRecordsEstimatedShares(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	Init(Deps{DB: mockDB, Logger: logrus.New(), Capabilities: database.Capabilities{
		PayoutEvents:     true,
		AdminBeneficiary: true,
	}})
	t.Cleanup(func() {
		db = nil
		walletEngine = nil
		revenueRecorder = nil
	})

	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := topupEventBody(t, "cs_test_shares", map[string]string{
		"purpose":           "highlight_wallet_topup",
		"user_id":           "user-1",
		"purchased_seconds": "86400",
		"listing_id":        "listing-1",
	}, 1000)
	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Unix())

	now := time.Now()
	walletCols := []string{
		"id", "user_id", "available_seconds", "total_purchased_seconds",
		"total_consumed_seconds", "active_listing_count", "last_consumed_at",
		"created_at", "updated_at",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM wallet_events").
		WithArgs("cs_test_shares").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow("wallet-1", "user-1", int64(0), int64(0), int64(0), 0, now, now, now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(0), int64(0), 0, sqlmock.AnyArg(), "wallet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(86400), int64(86400), "wallet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wallet_events").
		WithArgs("wallet-1", "user-1", "topup", int64(86400), int64(86400), nil, "cs_test_shares", int64(1000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow("wallet-1", "user-1", int64(86400), int64(86400), int64(0), 0, now, now, now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(86400), int64(0), 0, sqlmock.AnyArg(), "wallet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// No payment intent on the session: net falls back to the estimated
	// ratio, 1000 gross -> 921 net -> 461 owner / 230 admin.
	mock.ExpectQuery("SELECT s.owner_id, s.admin_beneficiary_id").
		WithArgs("listing-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "admin_beneficiary_id"}).
			AddRow("owner-1", "admin-2"))
	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("owner-1", "owner", "user-1", "cs_test_shares", int64(1000), int64(461), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("admin-2", "admin", "user-1", "cs_test_shares", int64(1000), int64(230), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 200 {
		t.Fatalf("expected 200, got %d (msg=%q)", code, msg)
	}
	if msg != "" {
		t.Fatalf("expected plain ack, got %q", msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessStripeWebhookIgnoresForeignCheckouts(t *testing.T) {
	logger = logrus.New()
	t.Setenv("STRIPE_WEBHOOK_SECRET", "unit-test-secret")

	body := topupEventBody(t, "cs_test_other", map[string]string{
		"purpose": "something_else",
	}, 500)
	signature := stripeSignatureHeader(body, "unit-test-secret", time.Now().Unix())

	msg, code := processStripeWebhook(context.Background(), body, signature)
	if code != 200 {
		t.Fatalf("expected 200, got %d (msg=%q)", code, msg)
	}
	if msg != "" {
		t.Fatalf("expected plain ack, got %q", msg)
	}
}

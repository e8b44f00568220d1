package payout

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Tiagocys/gamehub/pkg/database"
)

func TestSummaryUnsupportedWithoutPayoutTable(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	summarizer := NewSummarizer(mockDB, logrus.New(), database.Capabilities{PayoutEvents: false})

	summary, err := summarizer.Summary(context.Background(), "owner-1", time.Now())
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.Unsupported {
		t.Fatal("expected unsupported summary when payout table is absent")
	}
}

func TestSummaryApportionsFIFO(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	summarizer := NewSummarizer(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true})

	now := time.Now()

	mock.ExpectQuery("FROM partner_payout_events").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"payer_user_id", "checkout_session_id", "expected_net_cents", "refunded_net_cents", "payout_status",
		}).AddRow("payer-1", "cs_1", int64(1000), int64(0), "pending"))

	// The payer bought a day and has burned half of it.
	mock.ExpectQuery("SELECT available_seconds, total_consumed_seconds, last_consumed_at").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seconds", "total_consumed_seconds", "last_consumed_at"}).
			AddRow(int64(43200), int64(43200), now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM wallet_events").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"checkout_session_id", "seconds_delta"}).
			AddRow("cs_1", int64(86400)))

	summary, err := summarizer.Summary(context.Background(), "owner-1", now)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Method != Method {
		t.Fatalf("expected method %q, got %q", Method, summary.Method)
	}
	if summary.TotalExpectedCents != 1000 {
		t.Fatalf("expected 1000 total cents, got %d", summary.TotalExpectedCents)
	}
	if summary.AvailableCents != 500 {
		t.Fatalf("expected 500 available cents, got %d", summary.AvailableCents)
	}
	if summary.PendingCents != 500 {
		t.Fatalf("expected 500 pending cents, got %d", summary.PendingCents)
	}
	if summary.Count != 1 {
		t.Fatalf("expected 1 row, got %d", summary.Count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummaryProjectsElapsedConsumption(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	summarizer := NewSummarizer(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true})

	now := time.Now()

	mock.ExpectQuery("FROM partner_payout_events").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"payer_user_id", "checkout_session_id", "expected_net_cents", "refunded_net_cents", "payout_status",
		}).AddRow("payer-1", "cs_1", int64(1000), int64(0), "pending"))

	// Nothing settled yet, but one highlight has been active for the whole
	// purchased window: the projection should treat the topup as consumed.
	mock.ExpectQuery("SELECT available_seconds, total_consumed_seconds, last_consumed_at").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seconds", "total_consumed_seconds", "last_consumed_at"}).
			AddRow(int64(86400), int64(0), now.Add(-48*time.Hour)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM wallet_events").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"checkout_session_id", "seconds_delta"}).
			AddRow("cs_1", int64(86400)))

	summary, err := summarizer.Summary(context.Background(), "owner-1", now)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.AvailableCents != 1000 {
		t.Fatalf("expected fully available row, got %d cents", summary.AvailableCents)
	}
	if summary.PendingCents != 0 {
		t.Fatalf("expected nothing pending, got %d cents", summary.PendingCents)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummarySkipsRefundedRows(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	summarizer := NewSummarizer(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true})

	now := time.Now()

	mock.ExpectQuery("FROM partner_payout_events").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"payer_user_id", "checkout_session_id", "expected_net_cents", "refunded_net_cents", "payout_status",
		}).AddRow("payer-1", "cs_1", int64(1000), int64(0), "refunded"))

	mock.ExpectQuery("SELECT available_seconds, total_consumed_seconds, last_consumed_at").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seconds", "total_consumed_seconds", "last_consumed_at"}).
			AddRow(int64(0), int64(0), now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM wallet_events").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"checkout_session_id", "seconds_delta"}))

	summary, err := summarizer.Summary(context.Background(), "owner-1", now)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Count != 0 {
		t.Fatalf("refunded rows should not count, got %d", summary.Count)
	}
	if summary.TotalExpectedCents != 0 || summary.AvailableCents != 0 || summary.PendingCents != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

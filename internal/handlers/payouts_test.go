package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Tiagocys/gamehub/pkg/database"
)

func TestGetPayoutSummaryReturnsDecimalAmounts(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	Init(Deps{DB: mockDB, Logger: logrus.New(), Capabilities: database.Capabilities{PayoutEvents: true}})
	t.Cleanup(func() {
		db = nil
		payoutSummarizer = nil
	})

	mock.ExpectQuery("FROM partner_payout_events").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"payer_user_id", "checkout_session_id", "expected_net_cents", "refunded_net_cents", "payout_status",
		}).AddRow("payer-1", "cs_1", int64(1000), int64(0), "pending"))
	mock.ExpectQuery("SELECT available_seconds, total_consumed_seconds, last_consumed_at").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seconds", "total_consumed_seconds", "last_consumed_at"}).
			AddRow(int64(43200), int64(43200), time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM listings").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM wallet_events").
		WithArgs("payer-1").
		WillReturnRows(sqlmock.NewRows([]string{"checkout_session_id", "seconds_delta"}).
			AddRow("cs_1", int64(86400)))

	c, w := handlerTestContext(t, "GET", "/partner/payout-summary", "owner-1", "user", nil, nil)

	GetPayoutSummary(c)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d (body=%s)", w.Code, w.Body.String())
	}

	// Cents stay internal: the response carries currency decimals.
	var resp struct {
		TotalExpected float64 `json:"total_expected"`
		Available     float64 `json:"available"`
		Pending       float64 `json:"pending"`
		Count         int     `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.TotalExpected != 10.0 {
		t.Fatalf("expected total 10.00, got %v", resp.TotalExpected)
	}
	if resp.Available != 5.0 || resp.Pending != 5.0 {
		t.Fatalf("expected 5.00/5.00 split, got %v/%v", resp.Available, resp.Pending)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 row, got %d", resp.Count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

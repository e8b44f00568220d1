package payout

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Tiagocys/gamehub/pkg/database"
)

func TestRecordSharesSplitsOwnerAndAdmin(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	recorder := NewRecorder(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true, AdminBeneficiary: true})

	now := time.Now()

	mock.ExpectQuery("SELECT s.owner_id, s.admin_beneficiary_id").
		WithArgs("listing-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "admin_beneficiary_id"}).
			AddRow("owner-1", "admin-1"))

	// Gross 1000, no reported net: platform net = round(1000*0.921) = 921.
	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("owner-1", "owner", "payer-1", "cs_1", int64(1000), int64(461), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("admin-1", "admin", "payer-1", "cs_1", int64(1000), int64(230), now).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err = recorder.RecordShares(context.Background(), ShareParams{
		CheckoutSessionID: "cs_1",
		PayerUserID:       "payer-1",
		ListingID:         "listing-1",
		GrossCents:        1000,
	}, now)
	if err != nil {
		t.Fatalf("record shares failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSharesSuppressesSelfDealingAdmin(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	recorder := NewRecorder(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true, AdminBeneficiary: true})

	now := time.Now()

	mock.ExpectQuery("SELECT s.owner_id, s.admin_beneficiary_id").
		WithArgs("listing-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "admin_beneficiary_id"}).
			AddRow("owner-1", "owner-1"))

	// Only the owner row lands; the admin share stays with the platform.
	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("owner-1", "owner", "payer-1", "cs_1", int64(1000), int64(461), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = recorder.RecordShares(context.Background(), ShareParams{
		CheckoutSessionID: "cs_1",
		PayerUserID:       "payer-1",
		ListingID:         "listing-1",
		GrossCents:        1000,
	}, now)
	if err != nil {
		t.Fatalf("record shares failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSharesUsesReportedNet(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	recorder := NewRecorder(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true, AdminBeneficiary: true})

	now := time.Now()

	mock.ExpectQuery("SELECT s.owner_id, s.admin_beneficiary_id").
		WithArgs("listing-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "admin_beneficiary_id"}).
			AddRow("owner-1", nil))

	mock.ExpectExec("INSERT INTO partner_payout_events").
		WithArgs("owner-1", "owner", "payer-1", "cs_1", int64(1000), int64(450), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = recorder.RecordShares(context.Background(), ShareParams{
		CheckoutSessionID: "cs_1",
		PayerUserID:       "payer-1",
		ListingID:         "listing-1",
		GrossCents:        1000,
		NetCents:          900,
	}, now)
	if err != nil {
		t.Fatalf("record shares failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSharesSkipsWithoutListing(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	recorder := NewRecorder(mockDB, logrus.New(), database.Capabilities{PayoutEvents: true, AdminBeneficiary: true})

	err = recorder.RecordShares(context.Background(), ShareParams{
		CheckoutSessionID: "cs_1",
		PayerUserID:       "payer-1",
		GrossCents:        1000,
	}, time.Now())
	if err != nil {
		t.Fatalf("record shares failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

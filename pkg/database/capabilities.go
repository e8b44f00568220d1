package database

import (
	"context"
	"database/sql"

	"github.com/Tiagocys/gamehub/pkg/logging"
)

// Capabilities describes which optional tables and columns are provisioned.
// Core wallet tables are required and are not probed here; missing optional
// schema downgrades the features that depend on it instead of erroring on
// every request.
type Capabilities struct {
	PayoutEvents       bool // partner_payout_events table
	AdminBeneficiary   bool // servers.admin_beneficiary_id column
	PhoneVerifications bool // phone_verifications table
}

// DetectCapabilities probes the information schema once at startup.
func DetectCapabilities(ctx context.Context, db *sql.DB, logger logging.Logger) Capabilities {
	caps := Capabilities{
		PayoutEvents:       tableExists(ctx, db, "partner_payout_events"),
		AdminBeneficiary:   columnExists(ctx, db, "servers", "admin_beneficiary_id"),
		PhoneVerifications: tableExists(ctx, db, "phone_verifications"),
	}

	logger.WithFields(logging.Fields{
		"payout_events":       caps.PayoutEvents,
		"admin_beneficiary":   caps.AdminBeneficiary,
		"phone_verifications": caps.PhoneVerifications,
	}).Info("Database capabilities detected")

	return caps
}

func tableExists(ctx context.Context, db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, table).Scan(&exists)
	return err == nil && exists
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) bool {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
		)
	`, table, column).Scan(&exists)
	return err == nil && exists
}

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("expected unique violation to be detected")
	}
	if IsUniqueViolation(&pq.Error{Code: "42P01"}) {
		t.Fatal("undefined table is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain errors are not unique violations")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a unique violation")
	}
}

func TestIsMissingSchema(t *testing.T) {
	if !IsMissingSchema(&pq.Error{Code: "42P01"}) {
		t.Fatal("undefined table should count as missing schema")
	}
	if !IsMissingSchema(&pq.Error{Code: "42703"}) {
		t.Fatal("undefined column should count as missing schema")
	}
	if IsMissingSchema(&pq.Error{Code: "23505"}) {
		t.Fatal("unique violation is not missing schema")
	}
}

func TestErrorDetectionUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("failed to append wallet event: %w", &pq.Error{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatal("wrapped pq errors should still be detected")
	}
}

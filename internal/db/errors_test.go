package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErrorNil(t *testing.T) {
	if err := MapError(nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	plain := errors.New("connection refused")
	if got := MapError(plain); got != plain {
		t.Errorf("Expected passthrough, got %v", got)
	}
}

func TestMapErrorDuplicateKey(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		TableName:      "fact_order_items",
		ConstraintName: "fact_order_items_pkey",
	}

	got := MapError(fmt.Errorf("insert failed: %w", pgErr))

	var dup *DuplicateKeyError
	if !errors.As(got, &dup) {
		t.Fatalf("Expected DuplicateKeyError, got %T: %v", got, got)
	}
	if dup.Table != "fact_order_items" {
		t.Errorf("Expected table fact_order_items, got %s", dup.Table)
	}
	if dup.Constraint != "fact_order_items_pkey" {
		t.Errorf("Expected constraint fact_order_items_pkey, got %s", dup.Constraint)
	}
}

func TestMapErrorConstraintViolation(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"foreign key", "23503"},
		{"not null", "23502"},
		{"check", "23514"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{
				Code:           tt.code,
				TableName:      "fact_reviews",
				ConstraintName: "fact_reviews_order_id_fkey",
			}

			got := MapError(pgErr)

			var cv *ConstraintViolationError
			if !errors.As(got, &cv) {
				t.Fatalf("Expected ConstraintViolationError, got %T: %v", got, got)
			}
			if cv.Table != "fact_reviews" {
				t.Errorf("Expected table fact_reviews, got %s", cv.Table)
			}
			if cv.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, cv.Code)
			}
		})
	}
}

func TestMapErrorUndefinedTable(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:    "42P01",
		Message: `relation "fact_orders" does not exist`,
	}

	got := MapError(pgErr)
	if !errors.Is(got, ErrSchemaNotProvisioned) {
		t.Errorf("Expected ErrSchemaNotProvisioned, got %v", got)
	}
}

func TestErrorMessages(t *testing.T) {
	cv := &ConstraintViolationError{Table: "fact_orders", Constraint: "fk_customer", Code: "23503"}
	if cv.Error() == "" {
		t.Error("ConstraintViolationError message is empty")
	}

	dup := &DuplicateKeyError{Table: "dim_date", Constraint: "dim_date_pkey"}
	if dup.Error() == "" {
		t.Error("DuplicateKeyError message is empty")
	}
}

//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes mapped to the warehouse error taxonomy.
const (
	sqlstateNotNullViolation    = "23502"
	sqlstateForeignKeyViolation = "23503"
	sqlstateUniqueViolation     = "23505"
	sqlstateCheckViolation      = "23514"
	sqlstateUndefinedTable      = "42P01"
)

// ErrSchemaNotProvisioned indicates that the warehouse schema does not exist
// in the target database. Callers should run provisioning first.
var ErrSchemaNotProvisioned = errors.New("warehouse schema not provisioned")

// ConstraintViolationError reports a rejected row: a dangling foreign key,
// a NULL in a NOT NULL column, or a CHECK constraint failure. The offending
// statement has no effect on the table.
type ConstraintViolationError struct {
	Table      string
	Constraint string
	Code       string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation on %s (constraint %s, sqlstate %s)",
		e.Table, e.Constraint, e.Code)
}

// DuplicateKeyError reports re-insertion of an already-present natural or
// surrogate key.
type DuplicateKeyError struct {
	Table      string
	Constraint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s (constraint %s)", e.Table, e.Constraint)
}

// MapError converts a pgx error into the warehouse error taxonomy.
// Unique violations become DuplicateKeyError; foreign key, not-null and check
// violations become ConstraintViolationError; references to missing tables
// become ErrSchemaNotProvisioned. Other errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case sqlstateUniqueViolation:
		return &DuplicateKeyError{
			Table:      pgErr.TableName,
			Constraint: pgErr.ConstraintName,
		}
	case sqlstateForeignKeyViolation, sqlstateNotNullViolation, sqlstateCheckViolation:
		return &ConstraintViolationError{
			Table:      pgErr.TableName,
			Constraint: pgErr.ConstraintName,
			Code:       pgErr.Code,
		}
	case sqlstateUndefinedTable:
		return fmt.Errorf("%w: %s", ErrSchemaNotProvisioned, pgErr.Message)
	}

	return err
}

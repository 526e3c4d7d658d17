package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/orderflow-api/internal/domain"
)

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeInvalidTextRep       = "22P02"
)

// mapError traduce errores de PostgreSQL a los sentinels del dominio, conservando el contexto.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrAlreadyExists, op, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, op, pgErr.Message)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrCorruption, op, pgErr.ConstraintName)
		case codeInvalidTextRep:
			return fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, op, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// limitArg NULL en LIMIT equivale a sin límite.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func offsetArg(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
	pqNumericOverflow = "22003"
)

// querier is satisfied by both *sql.DB and *sql.Tx so a repository can run
// standalone or inside a unit of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Configure connection pool for concurrent goroutines
	db.SetMaxIdleConns(20)
	db.SetMaxOpenConns(30)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(15 * time.Minute)

	return db, nil
}

func isUniqueViolation(err error) bool {
	return hasPQCode(err, pqUniqueViolation)
}

func isCheckViolation(err error) bool {
	return hasPQCode(err, pqCheckViolation)
}

func isNumericOverflow(err error) bool {
	return hasPQCode(err, pqNumericOverflow)
}

// storeError wraps a failed statement. Values Postgres refuses to hold come
// back as overflow, check violations as InvalidArgument, anything else as a
// store failure.
func storeError(op string, err error, overflow error) error {
	switch {
	case isNumericOverflow(err):
		return fmt.Errorf("%w: %v", overflow, err)
	case isCheckViolation(err):
		return fmt.Errorf("%w: %v", commons.ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

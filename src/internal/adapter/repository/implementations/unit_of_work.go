package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/sony/gobreaker"
)

var (
	_ repo_interfaces.UnitOfWork         = (*UnitOfWork)(nil)
	_ repo_interfaces.AccountRepository  = (*AccountRepository)(nil)
	_ repo_interfaces.TransferRepository = (*TransferRepository)(nil)
	_ repo_interfaces.UserRepository     = (*UserRepository)(nil)
)

type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// UnitOfWork runs each call in its own database transaction behind a
// circuit breaker. Business errors returned by fn roll the transaction back
// but do not count against the breaker.
type UnitOfWork struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
}

func NewUnitOfWork(db *sql.DB, settings BreakerSettings) *UnitOfWork {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres-ledger",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", logger.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
		IsSuccessful: countsAsSuccess,
	})

	return &UnitOfWork{db: db, breaker: breaker}
}

// countsAsSuccess keeps caller mistakes from tripping the breaker; only store
// failures count against it.
func countsAsSuccess(err error) bool {
	return err == nil || commons.IsBusinessError(err)
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, stores repo_interfaces.Stores) error) error {
	_, err := u.breaker.Execute(func() (any, error) {
		return nil, u.run(ctx, fn)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", commons.ErrEngineUnavailable, err)
	}
	return err
}

func (u *UnitOfWork) run(ctx context.Context, fn func(ctx context.Context, stores repo_interfaces.Stores) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("unit of work begin tx failed", err, nil)
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stores := repo_interfaces.Stores{
		Accounts:  &AccountRepository{db: tx},
		Transfers: &TransferRepository{db: tx},
	}

	if err = fn(ctx, stores); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("unit of work commit failed", err, nil)
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

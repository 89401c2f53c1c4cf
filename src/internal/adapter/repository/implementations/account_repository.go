package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	db querier
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID int64) (domain.Account, error) {
	const query = `
SELECT account_id, user_id, balance
FROM account
WHERE account_id = $1`

	return r.getOne(ctx, query, accountID, logger.Fields{"accountId": accountID})
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (domain.Account, error) {
	const query = `
SELECT account_id, user_id, balance
FROM account
WHERE user_id = $1`

	return r.getOne(ctx, query, userID, logger.Fields{"userId": userID})
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg int64, fields logger.Fields) (domain.Account, error) {
	var account domain.Account
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("account repository record not found", fields)
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, fields)
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	const query = `
SELECT account_id, user_id, balance
FROM account
ORDER BY account_id`

	return r.query(ctx, "list accounts", query)
}

func (r *AccountRepository) Lock(ctx context.Context, accountIDs ...int64) ([]domain.Account, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	const query = `
SELECT account_id, user_id, balance
FROM account
WHERE account_id = ANY($1)
ORDER BY account_id
FOR UPDATE`

	return r.query(ctx, "lock accounts", query, pq.Array(accountIDs))
}

func (r *AccountRepository) query(ctx context.Context, op string, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("account repository "+op+" failed", err, nil)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.UserID, &account.Balance); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}

	return accounts, nil
}

func (r *AccountRepository) ConditionalDebit(ctx context.Context, accountID int64, amount decimal.Decimal) (bool, error) {
	logger.Info("account repository conditional debit", logger.Fields{
		"accountId": accountID,
		"amount":    amount,
	})

	const query = `
UPDATE account
SET balance = balance - $2::numeric
WHERE account_id = $1
  AND balance >= $2::numeric`

	result, err := r.db.ExecContext(ctx, query, accountID, amount)
	if err != nil {
		logger.Error("account repository conditional debit failed", err, logger.Fields{
			"accountId": accountID,
			"amount":    amount,
		})
		return false, storeError("debit account", err, domain.ErrAmountTooLarge)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit account rows affected: %w", err)
	}

	applied := rowsAffected > 0
	logger.Info("account repository conditional debit done", logger.Fields{
		"accountId": accountID,
		"applied":   applied,
	})
	return applied, nil
}

func (r *AccountRepository) Credit(ctx context.Context, accountID int64, amount decimal.Decimal) error {
	logger.Info("account repository credit", logger.Fields{
		"accountId": accountID,
		"amount":    amount,
	})

	const query = `
UPDATE account
SET balance = balance + $2::numeric
WHERE account_id = $1`

	result, err := r.db.ExecContext(ctx, query, accountID, amount)
	if err != nil {
		logger.Error("account repository credit failed", err, logger.Fields{
			"accountId": accountID,
			"amount":    amount,
		})
		return storeError("credit account", err, domain.ErrBalanceOverflow)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit account rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return commons.ErrRecordNotFound
	}

	return nil
}

package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	const query = `
SELECT user_id, username, password_hash, created_at
FROM tenmo_user
WHERE user_id = $1`

	return r.get(ctx, query, userID, logger.Fields{"userId": userID})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
SELECT user_id, username, password_hash, created_at
FROM tenmo_user
WHERE LOWER(username) = LOWER($1)`

	return r.get(ctx, query, strings.TrimSpace(username), logger.Fields{"username": username})
}

func (r *UserRepository) get(ctx context.Context, query string, arg any, fields logger.Fields) (domain.User, error) {
	var user domain.User
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("user repository record not found", fields)
			return domain.User{}, commons.ErrRecordNotFound
		}
		logger.Error("user repository get failed", err, fields)
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
SELECT user_id, username, created_at
FROM tenmo_user
ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("user repository list failed", err, nil)
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("list users scan: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) CreateWithAccount(ctx context.Context, username string, passwordHash string, openingBalance decimal.Decimal) (user domain.User, account domain.Account, err error) {
	logger.Info("user repository create with account", logger.Fields{
		"username":       username,
		"openingBalance": openingBalance,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, domain.Account{}, fmt.Errorf("begin create user transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertUser = `
INSERT INTO tenmo_user (username, password_hash)
VALUES ($1, $2)
RETURNING user_id, username, password_hash, created_at`

	if err = tx.QueryRowContext(ctx, insertUser, strings.TrimSpace(username), passwordHash).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrUsernameTaken
			return domain.User{}, domain.Account{}, err
		}
		logger.Error("user repository create user failed", err, logger.Fields{
			"username": username,
		})
		return domain.User{}, domain.Account{}, fmt.Errorf("create user: %w", err)
	}

	const insertAccount = `
INSERT INTO account (user_id, balance)
VALUES ($1, $2::numeric)
RETURNING account_id, user_id, balance`

	if err = tx.QueryRowContext(ctx, insertAccount, user.ID, openingBalance).Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
	); err != nil {
		logger.Error("user repository create account failed", err, logger.Fields{
			"userId": user.ID,
		})
		err = storeError("create account", err, domain.ErrAmountTooLarge)
		return domain.User{}, domain.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.User{}, domain.Account{}, fmt.Errorf("commit create user transaction: %w", err)
	}

	logger.Info("user repository create with account success", logger.Fields{
		"userId":    user.ID,
		"accountId": account.ID,
	})
	return user, account, nil
}

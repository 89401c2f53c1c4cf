package repo_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// CreateWithAccount inserts a user and its single account atomically.
	CreateWithAccount(ctx context.Context, username string, passwordHash string, openingBalance decimal.Decimal) (domain.User, domain.Account, error)
}

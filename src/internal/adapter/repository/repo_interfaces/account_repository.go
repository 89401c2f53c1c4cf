package repo_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	GetByID(ctx context.Context, accountID int64) (domain.Account, error)
	GetByUserID(ctx context.Context, userID int64) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	// Lock returns the requested accounts ordered by id, holding them for the
	// rest of the unit of work. Missing ids are simply absent from the result.
	Lock(ctx context.Context, accountIDs ...int64) ([]domain.Account, error)
	// ConditionalDebit subtracts amount only when the balance covers it and
	// reports whether it did. The check and the write are one store operation.
	ConditionalDebit(ctx context.Context, accountID int64, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, accountID int64, amount decimal.Decimal) error
}

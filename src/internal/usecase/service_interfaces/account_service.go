package service_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
)

type AccountService interface {
	GetBalance(ctx context.Context, accountID int64) (domain.Account, error)
	GetByUserID(ctx context.Context, userID int64) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

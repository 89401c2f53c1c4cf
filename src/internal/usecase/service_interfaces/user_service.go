package service_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID int64) (domain.User, error)
	Authenticate(ctx context.Context, username string, password string) (domain.Caller, error)
	Provision(ctx context.Context, username string, password string, openingBalance decimal.Decimal) (domain.User, domain.Account, error)
}

package repo_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type TransferRepository interface {
	Insert(ctx context.Context, transferType domain.TransferType, status domain.TransferStatus, accountFrom int64, accountTo int64, amount decimal.Decimal) (int64, error)
	UpdateStatus(ctx context.Context, transferID int64, status domain.TransferStatus) error
	GetByID(ctx context.Context, transferID int64) (domain.Transfer, error)
	GetByIDForUpdate(ctx context.Context, transferID int64) (domain.Transfer, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Transfer, error)
}

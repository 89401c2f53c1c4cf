package service_interfaces

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type TransferService interface {
	ExecuteSend(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error)
	CreateRequest(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error)
	ResolveRequest(ctx context.Context, callerUserID int64, transferID int64, decision domain.Decision) (domain.Transfer, error)
	GetTransfer(ctx context.Context, transferID int64) (domain.Transfer, error)
	GetTransferForUser(ctx context.Context, callerUserID int64, transferID int64) (domain.Transfer, error)
	ListTransfers(ctx context.Context, accountID int64) ([]domain.Transfer, error)
	ListPending(ctx context.Context, accountID int64) ([]domain.Transfer, error)
}

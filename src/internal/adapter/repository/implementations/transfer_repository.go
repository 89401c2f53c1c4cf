package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

const transferColumns = `transfer_id, transfer_type, transfer_status, account_from, account_to, amount, created_at`

type TransferRepository struct {
	db querier
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Insert(
	ctx context.Context,
	transferType domain.TransferType,
	status domain.TransferStatus,
	accountFrom int64,
	accountTo int64,
	amount decimal.Decimal,
) (int64, error) {
	logger.Info("transfer repository insert", logger.Fields{
		"transferType": transferType,
		"status":       status,
		"accountFrom":  accountFrom,
		"accountTo":    accountTo,
		"amount":       amount,
	})

	const query = `
INSERT INTO transfer (transfer_type, transfer_status, account_from, account_to, amount)
VALUES ($1, $2, $3, $4, $5::numeric)
RETURNING transfer_id`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, string(transferType), string(status), accountFrom, accountTo, amount).Scan(&id); err != nil {
		logger.Error("transfer repository insert failed", err, logger.Fields{
			"accountFrom": accountFrom,
			"accountTo":   accountTo,
		})
		return 0, storeError("insert transfer", err, domain.ErrAmountTooLarge)
	}

	logger.Info("transfer repository insert success", logger.Fields{
		"transferId": id,
		"status":     status,
	})
	return id, nil
}

func (r *TransferRepository) UpdateStatus(ctx context.Context, transferID int64, status domain.TransferStatus) error {
	logger.Info("transfer repository update status", logger.Fields{
		"transferId": transferID,
		"status":     status,
	})

	const query = `
UPDATE transfer
SET transfer_status = $2
WHERE transfer_id = $1`

	result, err := r.db.ExecContext(ctx, query, transferID, string(status))
	if err != nil {
		logger.Error("transfer repository update status failed", err, logger.Fields{
			"transferId": transferID,
			"status":     status,
		})
		return fmt.Errorf("update transfer status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transfer status rows affected: %w", err)
	}
	if rows == 0 {
		return commons.ErrRecordNotFound
	}

	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, transferID int64) (domain.Transfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfer WHERE transfer_id = $1`, transferID)
}

func (r *TransferRepository) GetByIDForUpdate(ctx context.Context, transferID int64) (domain.Transfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfer WHERE transfer_id = $1 FOR UPDATE`, transferID)
}

func (r *TransferRepository) get(ctx context.Context, query string, transferID int64) (domain.Transfer, error) {
	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, transferID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("transfer repository record not found", logger.Fields{
				"transferId": transferID,
			})
			return domain.Transfer{}, commons.ErrRecordNotFound
		}
		logger.Error("transfer repository get failed", err, logger.Fields{
			"transferId": transferID,
		})
		return domain.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}

	return transfer, nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	query := `
SELECT ` + transferColumns + `
FROM transfer
WHERE account_from = $1 OR account_to = $1
ORDER BY transfer_id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		logger.Error("transfer repository list by account failed", err, logger.Fields{
			"accountId": accountID,
		})
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]domain.Transfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("list transfers scan: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers rows: %w", err)
	}

	return transfers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (domain.Transfer, error) {
	var (
		transfer     domain.Transfer
		transferType string
		status       string
	)

	if err := row.Scan(
		&transfer.ID,
		&transferType,
		&status,
		&transfer.AccountFrom,
		&transfer.AccountTo,
		&transfer.Amount,
		&transfer.CreatedAt,
	); err != nil {
		return domain.Transfer{}, err
	}

	transfer.Type = domain.TransferType(transferType)
	transfer.Status = domain.TransferStatus(status)
	return transfer, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var _ service_interfaces.TransferService = (*TransferService)(nil)

// TransferService is the ledger engine. Every mutating call runs in a single
// unit of work, so a transfer record and the balance changes it implies are
// committed together or not at all.
type TransferService struct {
	uow          repo_interfaces.UnitOfWork
	accountRepo  repo_interfaces.AccountRepository
	transferRepo repo_interfaces.TransferRepository
}

func NewTransferService(
	uow repo_interfaces.UnitOfWork,
	accountRepo repo_interfaces.AccountRepository,
	transferRepo repo_interfaces.TransferRepository,
) *TransferService {
	return &TransferService{
		uow:          uow,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
	}
}

// ExecuteSend moves amount from accountFrom to accountTo immediately. A payer
// without enough funds yields a Rejected transfer, not an error.
func (s *TransferService) ExecuteSend(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error) {
	logger.Info("transfer service execute send request", logger.Fields{
		"accountFrom": accountFrom,
		"accountTo":   accountTo,
		"amount":      amount,
	})

	if err := validateTransfer(accountFrom, accountTo, amount); err != nil {
		logger.Error("transfer service execute send validation failed", err, nil)
		return domain.Transfer{}, err
	}

	var transfer domain.Transfer
	err := s.uow.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
		if err := lockParties(ctx, stores.Accounts, accountFrom, accountTo); err != nil {
			return err
		}

		status, err := settle(ctx, stores.Accounts, accountFrom, accountTo, amount)
		if err != nil {
			return err
		}

		transfer, err = insertTransfer(ctx, stores.Transfers, domain.TransferTypeSend, status, accountFrom, accountTo, amount)
		return err
	})
	if err != nil {
		err = classify(err)
		logger.Error("transfer service execute send failed", err, logger.Fields{
			"accountFrom": accountFrom,
			"accountTo":   accountTo,
		})
		return domain.Transfer{}, err
	}

	logger.Info("transfer service execute send done", logger.Fields{
		"transferId": transfer.ID,
		"status":     transfer.Status,
	})
	return transfer, nil
}

// CreateRequest records that accountTo asks accountFrom for amount. Balances
// are untouched until the payer approves.
func (s *TransferService) CreateRequest(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error) {
	logger.Info("transfer service create request", logger.Fields{
		"accountFrom": accountFrom,
		"accountTo":   accountTo,
		"amount":      amount,
	})

	if err := validateTransfer(accountFrom, accountTo, amount); err != nil {
		logger.Error("transfer service create request validation failed", err, nil)
		return domain.Transfer{}, err
	}

	var transfer domain.Transfer
	err := s.uow.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
		if err := lockParties(ctx, stores.Accounts, accountFrom, accountTo); err != nil {
			return err
		}

		var err error
		transfer, err = insertTransfer(ctx, stores.Transfers, domain.TransferTypeRequest, domain.TransferStatusPending, accountFrom, accountTo, amount)
		return err
	})
	if err != nil {
		err = classify(err)
		logger.Error("transfer service create request failed", err, logger.Fields{
			"accountFrom": accountFrom,
			"accountTo":   accountTo,
		})
		return domain.Transfer{}, err
	}

	logger.Info("transfer service create request done", logger.Fields{
		"transferId": transfer.ID,
	})
	return transfer, nil
}

// ResolveRequest approves or rejects a pending request on behalf of the payer.
// Approval with insufficient funds settles as Rejected.
func (s *TransferService) ResolveRequest(ctx context.Context, callerUserID int64, transferID int64, decision domain.Decision) (domain.Transfer, error) {
	logger.Info("transfer service resolve request", logger.Fields{
		"userId":     callerUserID,
		"transferId": transferID,
		"decision":   decision,
	})

	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return domain.Transfer{}, domain.ErrUnknownDecision
	}

	var resolved domain.Transfer
	err := s.uow.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
		transfer, err := stores.Transfers.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Type != domain.TransferTypeRequest {
			return domain.ErrNotRequest
		}

		payer, err := stores.Accounts.GetByUserID(ctx, callerUserID)
		if err != nil {
			if errors.Is(err, commons.ErrRecordNotFound) {
				return fmt.Errorf("%w: caller has no account", commons.ErrForbidden)
			}
			return err
		}
		if payer.ID != transfer.AccountFrom {
			return fmt.Errorf("%w: only the payer can resolve transfer %d", commons.ErrForbidden, transferID)
		}

		target := domain.TransferStatusRejected
		if decision == domain.DecisionApprove {
			target = domain.TransferStatusApproved
		}
		// Validate the transition before any balance moves.
		if _, err := transfer.Transition(target); err != nil {
			return err
		}

		if target == domain.TransferStatusApproved {
			if err := lockParties(ctx, stores.Accounts, transfer.AccountFrom, transfer.AccountTo); err != nil {
				return err
			}
			target, err = settle(ctx, stores.Accounts, transfer.AccountFrom, transfer.AccountTo, transfer.Amount)
			if err != nil {
				return err
			}
		}

		resolved, err = transfer.Transition(target)
		if err != nil {
			return err
		}
		return stores.Transfers.UpdateStatus(ctx, transferID, resolved.Status)
	})
	if err != nil {
		err = classify(err)
		logger.Error("transfer service resolve request failed", err, logger.Fields{
			"transferId": transferID,
			"decision":   decision,
		})
		return domain.Transfer{}, err
	}

	logger.Info("transfer service resolve request done", logger.Fields{
		"transferId": resolved.ID,
		"status":     resolved.Status,
	})
	return resolved, nil
}

func (s *TransferService) GetTransfer(ctx context.Context, transferID int64) (domain.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return domain.Transfer{}, classify(err)
	}
	return transfer, nil
}

// GetTransferForUser returns a transfer only when the caller's account is one
// of its parties.
func (s *TransferService) GetTransferForUser(ctx context.Context, callerUserID int64, transferID int64) (domain.Transfer, error) {
	var (
		account  domain.Account
		transfer domain.Transfer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.accountRepo.GetByUserID(gctx, callerUserID)
		if errors.Is(err, commons.ErrRecordNotFound) {
			return fmt.Errorf("%w: caller has no account", commons.ErrForbidden)
		}
		return err
	})
	g.Go(func() error {
		var err error
		transfer, err = s.transferRepo.GetByID(gctx, transferID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Transfer{}, classify(err)
	}

	if !transfer.Involves(account.ID) {
		return domain.Transfer{}, fmt.Errorf("%w: transfer %d does not involve caller", commons.ErrForbidden, transferID)
	}
	return transfer, nil
}

func (s *TransferService) ListTransfers(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, classify(err)
	}

	transfers, err := s.transferRepo.ListByAccount(ctx, accountID)
	if err != nil {
		logger.Error("transfer service list transfers failed", err, logger.Fields{
			"accountId": accountID,
		})
		return nil, classify(err)
	}
	return transfers, nil
}

// ListPending returns the requests waiting on accountID to pay.
func (s *TransferService) ListPending(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	transfers, err := s.ListTransfers(ctx, accountID)
	if err != nil {
		return nil, err
	}

	pending := make([]domain.Transfer, 0)
	for _, transfer := range transfers {
		if transfer.Type == domain.TransferTypeRequest &&
			transfer.Status == domain.TransferStatusPending &&
			transfer.AccountFrom == accountID {
			pending = append(pending, transfer)
		}
	}
	return pending, nil
}

func validateTransfer(accountFrom int64, accountTo int64, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	return domain.ValidateParties(accountFrom, accountTo)
}

func lockParties(ctx context.Context, accounts repo_interfaces.AccountRepository, accountFrom int64, accountTo int64) error {
	locked, err := accounts.Lock(ctx, accountFrom, accountTo)
	if err != nil {
		return err
	}

	found := make(map[int64]struct{}, len(locked))
	for _, account := range locked {
		found[account.ID] = struct{}{}
	}
	for _, id := range []int64{accountFrom, accountTo} {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("account %d: %w", id, commons.ErrRecordNotFound)
		}
	}
	return nil
}

// settle debits the payer if the balance covers amount and credits the payee.
// It reports Approved when funds moved and Rejected when they could not.
func settle(ctx context.Context, accounts repo_interfaces.AccountRepository, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.TransferStatus, error) {
	debited, err := accounts.ConditionalDebit(ctx, accountFrom, amount)
	if err != nil {
		return "", err
	}
	if !debited {
		logger.Info("transfer service insufficient funds", logger.Fields{
			"accountFrom": accountFrom,
			"amount":      amount,
		})
		return domain.TransferStatusRejected, nil
	}

	if err := accounts.Credit(ctx, accountTo, amount); err != nil {
		return "", err
	}
	return domain.TransferStatusApproved, nil
}

func insertTransfer(
	ctx context.Context,
	transfers repo_interfaces.TransferRepository,
	transferType domain.TransferType,
	status domain.TransferStatus,
	accountFrom int64,
	accountTo int64,
	amount decimal.Decimal,
) (domain.Transfer, error) {
	id, err := transfers.Insert(ctx, transferType, status, accountFrom, accountTo, amount)
	if err != nil {
		return domain.Transfer{}, err
	}
	return transfers.GetByID(ctx, id)
}

// classify keeps business errors as they are and folds everything else into
// ErrEngineUnavailable.
func classify(err error) error {
	if err == nil || commons.IsBusinessError(err) || errors.Is(err, commons.ErrEngineUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", commons.ErrEngineUnavailable, err)
}

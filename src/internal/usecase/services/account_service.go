package services

import (
	"context"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/service_interfaces"
)

var _ service_interfaces.AccountService = (*AccountService)(nil)

type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
}

func NewAccountService(accountRepo repo_interfaces.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

func (s *AccountService) GetBalance(ctx context.Context, accountID int64) (domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		logger.Error("account service get balance failed", err, logger.Fields{
			"accountId": accountID,
		})
		return domain.Account{}, classify(err)
	}
	return account, nil
}

func (s *AccountService) GetByUserID(ctx context.Context, userID int64) (domain.Account, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error("account service get by user failed", err, logger.Fields{
			"userId": userID,
		})
		return domain.Account{}, classify(err)
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		logger.Error("account service list failed", err, nil)
		return nil, classify(err)
	}
	return accounts, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var _ service_interfaces.UserService = (*UserService)(nil)

const maxUsernameLength = 50

// passwordCost is the bcrypt cost for stored hashes and for dummyHash.
const passwordCost = bcrypt.DefaultCost

// dummyHash keeps Authenticate's timing similar for unknown usernames.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tenmo-dummy-password"), passwordCost)

type UserService struct {
	userRepo repo_interfaces.UserRepository
}

func NewUserService(userRepo repo_interfaces.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		logger.Error("user service list failed", err, nil)
		return nil, classify(err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error("user service get user failed", err, logger.Fields{
			"userId": userID,
		})
		return domain.User{}, classify(err)
	}
	return user, nil
}

// Authenticate checks username and password and returns the caller identity.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username string, password string) (domain.Caller, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Caller{}, commons.ErrUnauthorized
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			logger.Info("user service authenticate unknown user", logger.Fields{
				"username": username,
			})
			return domain.Caller{}, commons.ErrUnauthorized
		}
		logger.Error("user service authenticate lookup failed", err, logger.Fields{
			"username": username,
		})
		return domain.Caller{}, classify(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Info("user service authenticate wrong password", logger.Fields{
			"userId": user.ID,
		})
		return domain.Caller{}, commons.ErrUnauthorized
	}

	return domain.Caller{UserID: user.ID, Username: user.Username}, nil
}

// Provision creates a user and its account with openingBalance.
func (s *UserService) Provision(ctx context.Context, username string, password string, openingBalance decimal.Decimal) (domain.User, domain.Account, error) {
	logger.Info("user service provision request", logger.Fields{
		"username":       username,
		"password":       password,
		"openingBalance": openingBalance,
	})

	username = strings.TrimSpace(username)
	if err := validateProvision(username, password, openingBalance); err != nil {
		logger.Error("user service provision validation failed", err, nil)
		return domain.User{}, domain.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		logger.Error("user service provision hash password failed", err, nil)
		return domain.User{}, domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	user, account, err := s.userRepo.CreateWithAccount(ctx, username, string(hash), openingBalance)
	if err != nil {
		logger.Error("user service provision failed", err, logger.Fields{
			"username": username,
		})
		return domain.User{}, domain.Account{}, classify(err)
	}

	logger.Info("user service provision success", logger.Fields{
		"userId":    user.ID,
		"accountId": account.ID,
	})
	return user, account, nil
}

func validateProvision(username string, password string, openingBalance decimal.Decimal) error {
	var errs []string

	if username == "" {
		errs = append(errs, "username is required")
	}
	if len(username) > maxUsernameLength {
		errs = append(errs, fmt.Sprintf("username cannot exceed %d characters", maxUsernameLength))
	}
	if strings.TrimSpace(password) == "" {
		errs = append(errs, "password is required")
	}
	if openingBalance.IsNegative() {
		errs = append(errs, "opening balance cannot be negative")
	}
	if !openingBalance.Equal(openingBalance.Truncate(domain.AmountScale)) {
		errs = append(errs, fmt.Sprintf("opening balance cannot have more than %d decimal places", domain.AmountScale))
	}
	if openingBalance.GreaterThan(domain.MaxAmount) {
		errs = append(errs, "opening balance cannot exceed "+domain.MaxAmount.StringFixed(domain.AmountScale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", commons.ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}

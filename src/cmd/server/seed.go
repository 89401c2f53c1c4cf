package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type seedUser struct {
	username string
	password string
	balance  decimal.Decimal
}

// parseSeed reads "username:password[:balance]". The password cannot contain
// a colon; a missing balance falls back to openingBalance.
func parseSeed(raw string, openingBalance decimal.Decimal) (seedUser, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || parts[1] == "" {
		return seedUser{}, fmt.Errorf("--seed %q must be username:password[:balance]", raw)
	}

	seed := seedUser{
		username: strings.TrimSpace(parts[0]),
		password: parts[1],
		balance:  openingBalance,
	}
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		balance, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return seedUser{}, fmt.Errorf("--seed %q balance must be numeric: %w", raw, err)
		}
		seed.balance = balance
	}
	return seed, nil
}

// seedUsers provisions each seed through UserService so seeded users get the
// same validation and password hashing as provisioned ones.
func seedUsers(ctx context.Context, users repo_interfaces.UserRepository, raw []string, openingBalance decimal.Decimal) error {
	userService := services.NewUserService(users)
	for _, entry := range raw {
		seed, err := parseSeed(entry, openingBalance)
		if err != nil {
			return err
		}

		user, account, err := userService.Provision(ctx, seed.username, seed.password, seed.balance)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", seed.username, err)
		}
		logger.Info("seeded user", logger.Fields{
			"userId":    user.ID,
			"username":  user.Username,
			"accountId": account.ID,
			"balance":   account.Balance.StringFixed(2),
		})
	}
	return nil
}

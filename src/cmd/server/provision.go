package main

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newProvisionCommand() *cobra.Command {
	var (
		username string
		password string
		balance  string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a user with an account and opening balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			openingBalance := cfg.OpeningBalance
			if balance != "" {
				openingBalance, err = decimal.NewFromString(balance)
				if err != nil {
					return fmt.Errorf("balance must be numeric: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := implementations.Open(ctx, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			userService := services.NewUserService(implementations.NewUserRepository(db))
			user, account, err := userService.Provision(ctx, username, password, openingBalance)
			if err != nil {
				return fmt.Errorf("provision user: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) account %d balance %s\n",
				user.ID, user.Username, account.ID, account.Balance.StringFixed(2))
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&balance, "balance", "", "opening balance (defaults to OPENING_BALANCE)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

package models

import (
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountResponse struct {
	AccountID int64            `json:"accountId"`
	UserID    int64            `json:"userId"`
	Balance   *decimal.Decimal `json:"balance"`
}

func NewAccountResponse(account domain.Account) AccountResponse {
	balance := account.Balance.Round(domain.AmountScale)
	return AccountResponse{
		AccountID: account.ID,
		UserID:    account.UserID,
		Balance:   &balance,
	}
}

func NewAccountResponses(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, NewAccountResponse(account))
	}
	return out
}

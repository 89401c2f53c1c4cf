package models

import (
	"errors"
	"strings"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// SendTransferRequest pays AccountTo from the caller's account.
type SendTransferRequest struct {
	AccountTo int64           `json:"accountTo"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r SendTransferRequest) Validate() error {
	var errs []string

	if r.AccountTo <= 0 {
		errs = append(errs, "accountTo is required")
	}
	errs = appendAmountErrors(errs, r.Amount)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// RequestTransferRequest asks AccountFrom to pay the caller's account.
type RequestTransferRequest struct {
	AccountFrom int64           `json:"accountFrom"`
	Amount      decimal.Decimal `json:"amount"`
}

func (r RequestTransferRequest) Validate() error {
	var errs []string

	if r.AccountFrom <= 0 {
		errs = append(errs, "accountFrom is required")
	}
	errs = appendAmountErrors(errs, r.Amount)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ResolveTransferRequest struct {
	Status string `json:"status"`
}

func (r ResolveTransferRequest) Validate() error {
	if strings.TrimSpace(r.Status) == "" {
		return errors.New("status is required")
	}
	if _, err := domain.ParseDecision(r.Status); err != nil {
		return errors.New("status must be Approved or Rejected")
	}
	return nil
}

func (r ResolveTransferRequest) Decision() domain.Decision {
	decision, _ := domain.ParseDecision(r.Status)
	return decision
}

type TransferResponse struct {
	TransferID     int64            `json:"transferId"`
	TransferType   string           `json:"transferType"`
	TransferStatus string           `json:"transferStatus"`
	AccountFrom    int64            `json:"accountFrom"`
	AccountTo      int64            `json:"accountTo"`
	Amount         *decimal.Decimal `json:"amount"`
	CreatedAt      string           `json:"createdAt,omitempty"`
}

func NewTransferResponse(transfer domain.Transfer) TransferResponse {
	amount := transfer.Amount.Round(domain.AmountScale)
	response := TransferResponse{
		TransferID:     transfer.ID,
		TransferType:   string(transfer.Type),
		TransferStatus: string(transfer.Status),
		AccountFrom:    transfer.AccountFrom,
		AccountTo:      transfer.AccountTo,
		Amount:         &amount,
	}
	if !transfer.CreatedAt.IsZero() {
		response.CreatedAt = transfer.CreatedAt.Format(time.RFC3339)
	}
	return response
}

func NewTransferResponses(transfers []domain.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for _, transfer := range transfers {
		out = append(out, NewTransferResponse(transfer))
	}
	return out
}

func appendAmountErrors(errs []string, amount decimal.Decimal) []string {
	if amount.LessThanOrEqual(decimal.Zero) {
		return append(errs, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(domain.AmountScale)) {
		return append(errs, "amount cannot have more than 2 decimal places")
	}
	if amount.GreaterThan(domain.MaxAmount) {
		return append(errs, "amount cannot exceed "+domain.MaxAmount.StringFixed(domain.AmountScale))
	}
	return errs
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits money carries.
const AmountScale = 2

// MaxAmount is the largest amount or balance the ledger stores. It matches
// the NUMERIC(13,2) money columns.
var MaxAmount = decimal.RequireFromString("99999999999.99")

type TransferType string

const (
	TransferTypeRequest TransferType = "Request"
	TransferTypeSend    TransferType = "Send"
)

type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "Pending"
	TransferStatusApproved TransferStatus = "Approved"
	TransferStatusRejected TransferStatus = "Rejected"
)

func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusApproved || s == TransferStatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "Approve"
	DecisionReject  Decision = "Reject"
)

// ParseDecision accepts the decision verbs as well as the status they lead to,
// so "Approved" and "approve" both map to DecisionApprove.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	default:
		return "", ErrUnknownDecision
	}
}

type Transfer struct {
	ID          int64
	Type        TransferType
	Status      TransferStatus
	AccountFrom int64
	AccountTo   int64
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

func (t Transfer) Involves(accountID int64) bool {
	return t.AccountFrom == accountID || t.AccountTo == accountID
}

// Transition moves a Request out of Pending. Send transfers are born settled
// and every terminal status is final.
func (t Transfer) Transition(to TransferStatus) (Transfer, error) {
	if t.Type != TransferTypeRequest {
		return t, ErrNotRequest
	}
	if t.Status != TransferStatusPending {
		return t, fmt.Errorf("%w: transfer %d is %s", ErrNotPending, t.ID, t.Status)
	}
	if !to.IsTerminal() {
		return t, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}

	t.Status = to
	return t, nil
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

func ValidateParties(accountFrom, accountTo int64) error {
	if accountFrom == accountTo {
		return ErrSelfTransfer
	}
	return nil
}

package domain

import (
	"fmt"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
)

var (
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be greater than zero", commons.ErrInvalidArgument)
	ErrAmountPrecision   = fmt.Errorf("%w: amount cannot have more than %d decimal places", commons.ErrInvalidArgument, AmountScale)
	ErrAmountTooLarge    = fmt.Errorf("%w: amount cannot exceed %s", commons.ErrInvalidArgument, MaxAmount.StringFixed(AmountScale))
	ErrBalanceOverflow   = fmt.Errorf("%w: balance would exceed %s", commons.ErrInvalidArgument, MaxAmount.StringFixed(AmountScale))
	ErrSelfTransfer      = fmt.Errorf("%w: accountFrom and accountTo must differ", commons.ErrInvalidArgument)
	ErrUnknownDecision   = fmt.Errorf("%w: decision must be Approve or Reject", commons.ErrInvalidArgument)
	ErrNotPending        = fmt.Errorf("%w: transfer is not pending", commons.ErrInvalidState)
	ErrNotRequest        = fmt.Errorf("%w: only request transfers can be resolved", commons.ErrInvalidState)
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", commons.ErrInvalidState)
	ErrUsernameTaken     = fmt.Errorf("%w: username already exists", commons.ErrInvalidArgument)
)

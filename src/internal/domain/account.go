package domain

import "github.com/shopspring/decimal"

// Account is a user's balance record. Balance is never negative once a unit
// of work has committed.
type Account struct {
	ID      int64
	UserID  int64
	Balance decimal.Decimal
}

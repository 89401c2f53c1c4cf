package repo_interfaces

import "context"

// Stores are repositories bound to a single unit of work.
type Stores struct {
	Accounts  AccountRepository
	Transfers TransferRepository
}

// UnitOfWork runs fn atomically: everything fn wrote is kept when it returns
// nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

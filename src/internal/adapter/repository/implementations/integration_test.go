//go:build integration

package implementations_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/api-sage/tenmo-ledger/src/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tenmo"),
		tcpostgres.WithUsername("tenmo"),
		tcpostgres.WithPassword("tenmo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := implementations.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := implementations.RunMigrations(ctx, db, migrations.FS)
	require.NoError(t, err)
	require.Positive(t, applied)

	return db
}

func provision(t *testing.T, users *implementations.UserRepository, name string, balance string) domain.Account {
	t.Helper()

	_, account, err := users.CreateWithAccount(context.Background(), name, "hash", decimal.RequireFromString(balance))
	require.NoError(t, err)
	return account
}

func TestIntegration_Ledger(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := implementations.NewUserRepository(db)
	accounts := implementations.NewAccountRepository(db)
	transfers := implementations.NewTransferRepository(db)
	uow := implementations.NewUnitOfWork(db, implementations.BreakerSettings{MaxFailures: 5, Timeout: time.Second})
	engine := services.NewTransferService(uow, accounts, transfers)

	t.Run("migrations are recorded once", func(t *testing.T) {
		applied, err := implementations.RunMigrations(ctx, db, migrations.FS)
		require.NoError(t, err)
		assert.Zero(t, applied)
	})

	alice := provision(t, users, "alice", "100.00")
	bob := provision(t, users, "bob", "0.00")

	t.Run("identifiers follow the configured sequences", func(t *testing.T) {
		assert.Equal(t, int64(2001), alice.ID)
		assert.Equal(t, int64(1001), alice.UserID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, _, err := users.CreateWithAccount(ctx, "ALICE", "hash", decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("send and overdraft", func(t *testing.T) {
		sent, err := engine.ExecuteSend(ctx, alice.ID, bob.ID, decimal.RequireFromString("40.00"))
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusApproved, sent.Status)
		assert.Equal(t, int64(3001), sent.ID)
		assert.False(t, sent.CreatedAt.IsZero())

		declined, err := engine.ExecuteSend(ctx, alice.ID, bob.ID, decimal.RequireFromString("100.00"))
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusRejected, declined.Status)

		got, err := accounts.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "60.00", got.Balance.StringFixed(2))
	})

	t.Run("request lifecycle", func(t *testing.T) {
		request, err := engine.CreateRequest(ctx, alice.ID, bob.ID, decimal.RequireFromString("25.00"))
		require.NoError(t, err)

		approved, err := engine.ResolveRequest(ctx, alice.UserID, request.ID, domain.DecisionApprove)
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusApproved, approved.Status)

		_, err = engine.ResolveRequest(ctx, alice.UserID, request.ID, domain.DecisionApprove)
		assert.ErrorIs(t, err, commons.ErrInvalidState)

		from, err := accounts.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		to, err := accounts.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "35.00", from.Balance.StringFixed(2))
		assert.Equal(t, "65.00", to.Balance.StringFixed(2))
	})

	t.Run("listing by account", func(t *testing.T) {
		listed, err := transfers.ListByAccount(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Less(t, listed[0].ID, listed[1].ID)
	})

	t.Run("unit of work rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := uow.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
			require.NoError(t, stores.Accounts.Credit(ctx, bob.ID, decimal.NewFromInt(1000)))
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := accounts.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "65.00", got.Balance.StringFixed(2))
	})

	t.Run("numeric overflow is invalid input and leaves the breaker closed", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			err := uow.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
				return stores.Accounts.Credit(ctx, bob.ID, domain.MaxAmount)
			})
			require.ErrorIs(t, err, domain.ErrBalanceOverflow)
			assert.ErrorIs(t, err, commons.ErrInvalidArgument)
		}

		sent, err := engine.ExecuteSend(ctx, bob.ID, alice.ID, decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusApproved, sent.Status)
	})
}

func TestIntegration_ConcurrentOpposingSends(t *testing.T) {
	db := setupPostgres(t)
	users := implementations.NewUserRepository(db)
	accounts := implementations.NewAccountRepository(db)
	engine := services.NewTransferService(
		implementations.NewUnitOfWork(db, implementations.BreakerSettings{MaxFailures: 50, Timeout: time.Second}),
		accounts,
		implementations.NewTransferRepository(db),
	)

	a := provision(t, users, "a", "50.00")
	b := provision(t, users, "b", "50.00")

	var start sync.WaitGroup
	start.Add(1)

	g := new(errgroup.Group)
	for i := 0; i < 20; i++ {
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = b.ID, a.ID
		}
		g.Go(func() error {
			start.Wait()
			_, err := engine.ExecuteSend(context.Background(), from, to, decimal.RequireFromString("7.00"))
			return err
		})
	}
	start.Done()
	require.NoError(t, g.Wait())

	all, err := accounts.List(context.Background())
	require.NoError(t, err)

	total := decimal.Zero
	for _, account := range all {
		assert.False(t, account.Balance.IsNegative())
		total = total.Add(account.Balance)
	}
	assert.Equal(t, "100.00", total.StringFixed(2))
}

func TestIntegration_BreakerOpensOnStoreFailure(t *testing.T) {
	db := setupPostgres(t)
	uow := implementations.NewUnitOfWork(db, implementations.BreakerSettings{MaxFailures: 2, Timeout: time.Minute})
	require.NoError(t, db.Close())

	noop := func(context.Context, repo_interfaces.Stores) error { return nil }
	for i := 0; i < 2; i++ {
		err := uow.Do(context.Background(), noop)
		require.Error(t, err)
		assert.NotErrorIs(t, err, commons.ErrEngineUnavailable)
	}

	err := uow.Do(context.Background(), noop)
	assert.ErrorIs(t, err, commons.ErrEngineUnavailable)
}

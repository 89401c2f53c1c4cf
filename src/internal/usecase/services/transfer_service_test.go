package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type ledger struct {
	store *memory.Store
	svc   *services.TransferService
	users map[string]domain.User
	accts map[string]domain.Account
}

func newLedger(t *testing.T, balances map[string]string) *ledger {
	t.Helper()

	store := memory.NewStore()
	l := &ledger{
		store: store,
		svc:   services.NewTransferService(store, store.Accounts(), store.Transfers()),
		users: make(map[string]domain.User),
		accts: make(map[string]domain.Account),
	}

	for _, name := range []string{"alice", "bob", "carol"} {
		balance, ok := balances[name]
		if !ok {
			continue
		}
		user, account, err := store.Users().CreateWithAccount(context.Background(), name, "hash", decimal.RequireFromString(balance))
		require.NoError(t, err)
		l.users[name] = user
		l.accts[name] = account
	}
	return l
}

func (l *ledger) balance(t *testing.T, name string) string {
	t.Helper()

	account, err := l.store.Accounts().GetByID(context.Background(), l.accts[name].ID)
	require.NoError(t, err)
	return account.Balance.StringFixed(2)
}

func amount(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func TestExecuteSendMovesFundsAndRejectsOverdraft(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	ctx := context.Background()
	a, b := l.accts["alice"].ID, l.accts["bob"].ID

	sent, err := l.svc.ExecuteSend(ctx, a, b, amount("40.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferTypeSend, sent.Type)
	assert.Equal(t, domain.TransferStatusApproved, sent.Status)
	assert.Equal(t, "60.00", l.balance(t, "alice"))
	assert.Equal(t, "40.00", l.balance(t, "bob"))

	declined, err := l.svc.ExecuteSend(ctx, a, b, amount("100.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusRejected, declined.Status)
	assert.Equal(t, "60.00", l.balance(t, "alice"))
	assert.Equal(t, "40.00", l.balance(t, "bob"))

	for _, id := range []int64{sent.ID, declined.ID} {
		got, err := l.svc.GetTransfer(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	}

	for _, account := range []int64{a, b} {
		listed, err := l.svc.ListTransfers(ctx, account)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, sent.ID, listed[0].ID)
		assert.Equal(t, declined.ID, listed[1].ID)
	}
}

func TestExecuteSendExactBalance(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "0.30", "bob": "0.00"})

	for _, raw := range []string{"0.10", "0.20"} {
		transfer, err := l.svc.ExecuteSend(context.Background(), l.accts["alice"].ID, l.accts["bob"].ID, amount(raw))
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusApproved, transfer.Status)
	}

	assert.Equal(t, "0.00", l.balance(t, "alice"))
	assert.Equal(t, "0.30", l.balance(t, "bob"))
}

func TestExecuteSendValidation(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	a, b := l.accts["alice"].ID, l.accts["bob"].ID

	cases := []struct {
		name   string
		from   int64
		to     int64
		amount string
		want   error
	}{
		{"zero amount", a, b, "0", commons.ErrInvalidArgument},
		{"negative amount", a, b, "-5.00", commons.ErrInvalidArgument},
		{"sub cent amount", a, b, "1.001", commons.ErrInvalidArgument},
		{"amount above ledger maximum", a, b, "100000000000.00", domain.ErrAmountTooLarge},
		{"self transfer", a, a, "1.00", commons.ErrInvalidArgument},
		{"unknown payee", a, 9999, "1.00", commons.ErrRecordNotFound},
		{"unknown payer", 9999, b, "1.00", commons.ErrRecordNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.svc.ExecuteSend(context.Background(), tc.from, tc.to, amount(tc.amount))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, "100.00", l.balance(t, "alice"))
	transfers, err := l.svc.ListTransfers(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestOversizedAmountsAreInvalidArguments(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "10.00", "bob": "99999999999.99"})
	ctx := context.Background()
	a, b := l.accts["alice"].ID, l.accts["bob"].ID

	_, err := l.svc.CreateRequest(ctx, a, b, amount("100000000000.00"))
	require.ErrorIs(t, err, domain.ErrAmountTooLarge)
	assert.True(t, commons.IsBusinessError(err))

	_, err = l.svc.ExecuteSend(ctx, a, b, amount("1.00"))
	require.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.ErrorIs(t, err, commons.ErrInvalidArgument)
	assert.NotErrorIs(t, err, commons.ErrEngineUnavailable)

	assert.Equal(t, "10.00", l.balance(t, "alice"))
	assert.Equal(t, "99999999999.99", l.balance(t, "bob"))
	transfers, err := l.svc.ListTransfers(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestRequestApproveThenApproveAgain(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "60.00", "bob": "40.00"})
	ctx := context.Background()

	request, err := l.svc.CreateRequest(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("25.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferTypeRequest, request.Type)
	assert.Equal(t, domain.TransferStatusPending, request.Status)
	assert.Equal(t, "60.00", l.balance(t, "alice"))

	pending, err := l.svc.ListPending(ctx, l.accts["alice"].ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, request.ID, pending[0].ID)

	approved, err := l.svc.ResolveRequest(ctx, l.users["alice"].ID, request.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusApproved, approved.Status)
	assert.Equal(t, "35.00", l.balance(t, "alice"))
	assert.Equal(t, "65.00", l.balance(t, "bob"))

	_, err = l.svc.ResolveRequest(ctx, l.users["alice"].ID, request.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, commons.ErrInvalidState)
	assert.Equal(t, "35.00", l.balance(t, "alice"))
	assert.Equal(t, "65.00", l.balance(t, "bob"))

	pending, err = l.svc.ListPending(ctx, l.accts["alice"].ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRequestRejectThenResolveAgain(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "60.00", "bob": "40.00"})
	ctx := context.Background()

	request, err := l.svc.CreateRequest(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("25.00"))
	require.NoError(t, err)

	rejected, err := l.svc.ResolveRequest(ctx, l.users["alice"].ID, request.ID, domain.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusRejected, rejected.Status)

	for _, decision := range []domain.Decision{domain.DecisionApprove, domain.DecisionReject} {
		_, err = l.svc.ResolveRequest(ctx, l.users["alice"].ID, request.ID, decision)
		assert.ErrorIs(t, err, commons.ErrInvalidState)
	}
	assert.Equal(t, "60.00", l.balance(t, "alice"))
	assert.Equal(t, "40.00", l.balance(t, "bob"))
}

func TestApproveWithInsufficientFundsRejects(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "10.00", "bob": "0.00"})
	ctx := context.Background()

	request, err := l.svc.CreateRequest(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("25.00"))
	require.NoError(t, err)

	resolved, err := l.svc.ResolveRequest(ctx, l.users["alice"].ID, request.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusRejected, resolved.Status)
	assert.Equal(t, "10.00", l.balance(t, "alice"))
	assert.Equal(t, "0.00", l.balance(t, "bob"))
}

func TestResolveRequestAuthorization(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00", "carol": "0.00"})
	ctx := context.Background()

	request, err := l.svc.CreateRequest(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("5.00"))
	require.NoError(t, err)

	for _, name := range []string{"bob", "carol"} {
		_, err := l.svc.ResolveRequest(ctx, l.users[name].ID, request.ID, domain.DecisionApprove)
		assert.ErrorIs(t, err, commons.ErrForbidden, name)
	}

	got, err := l.svc.GetTransfer(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPending, got.Status)
}

func TestResolveRequestRejectsSendAndUnknown(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	ctx := context.Background()

	send, err := l.svc.ExecuteSend(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("1.00"))
	require.NoError(t, err)

	_, err = l.svc.ResolveRequest(ctx, l.users["alice"].ID, send.ID, domain.DecisionReject)
	assert.ErrorIs(t, err, commons.ErrInvalidState)

	_, err = l.svc.ResolveRequest(ctx, l.users["alice"].ID, 424242, domain.DecisionReject)
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)

	_, err = l.svc.ResolveRequest(ctx, l.users["alice"].ID, send.ID, domain.Decision("Maybe"))
	assert.ErrorIs(t, err, commons.ErrInvalidArgument)
}

func TestGetTransferForUser(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00", "carol": "0.00"})
	ctx := context.Background()

	send, err := l.svc.ExecuteSend(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("1.00"))
	require.NoError(t, err)

	for _, name := range []string{"alice", "bob"} {
		got, err := l.svc.GetTransferForUser(ctx, l.users[name].ID, send.ID)
		require.NoError(t, err)
		assert.Equal(t, send.ID, got.ID)
	}

	_, err = l.svc.GetTransferForUser(ctx, l.users["carol"].ID, send.ID)
	assert.ErrorIs(t, err, commons.ErrForbidden)

	_, err = l.svc.GetTransferForUser(ctx, l.users["carol"].ID, 1)
	assert.Error(t, err)
}

func TestConcurrentSendsNeverOverdraw(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	const workers = 25

	var (
		start sync.WaitGroup
		mu    sync.Mutex
		got   []domain.Transfer
	)
	start.Add(1)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			start.Wait()
			transfer, err := l.svc.ExecuteSend(ctx, l.accts["alice"].ID, l.accts["bob"].ID, amount("10.00"))
			if err != nil {
				return err
			}
			mu.Lock()
			got = append(got, transfer)
			mu.Unlock()
			return nil
		})
	}
	start.Done()
	require.NoError(t, g.Wait())

	approved := 0
	for _, transfer := range got {
		if transfer.Status == domain.TransferStatusApproved {
			approved++
		}
	}
	assert.Len(t, got, workers)
	assert.Equal(t, 10, approved)
	assert.Equal(t, "0.00", l.balance(t, "alice"))
	assert.Equal(t, "100.00", l.balance(t, "bob"))
}

func TestConcurrentApprovalsResolveOnce(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	request, err := l.svc.CreateRequest(context.Background(), l.accts["alice"].ID, l.accts["bob"].ID, amount("30.00"))
	require.NoError(t, err)

	var (
		start     sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start.Add(1)

	g := new(errgroup.Group)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			start.Wait()
			_, err := l.svc.ResolveRequest(context.Background(), l.users["alice"].ID, request.ID, domain.DecisionApprove)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, commons.ErrInvalidState):
				conflicts++
			default:
				return err
			}
			return nil
		})
	}
	start.Done()
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicts)
	assert.Equal(t, "70.00", l.balance(t, "alice"))
	assert.Equal(t, "30.00", l.balance(t, "bob"))
}

type failingCredit struct {
	repo_interfaces.AccountRepository
	err error
}

func (f failingCredit) Credit(context.Context, int64, decimal.Decimal) error {
	return f.err
}

type failingUnitOfWork struct {
	inner repo_interfaces.UnitOfWork
	err   error
}

func (u failingUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, stores repo_interfaces.Stores) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, stores repo_interfaces.Stores) error {
		stores.Accounts = failingCredit{AccountRepository: stores.Accounts, err: u.err}
		return fn(ctx, stores)
	})
}

func TestStoreFailureRollsBackAndReportsUnavailable(t *testing.T) {
	l := newLedger(t, map[string]string{"alice": "100.00", "bob": "0.00"})
	svc := services.NewTransferService(
		failingUnitOfWork{inner: l.store, err: errors.New("connection reset")},
		l.store.Accounts(),
		l.store.Transfers(),
	)

	_, err := svc.ExecuteSend(context.Background(), l.accts["alice"].ID, l.accts["bob"].ID, amount("40.00"))
	require.ErrorIs(t, err, commons.ErrEngineUnavailable)

	assert.Equal(t, "100.00", l.balance(t, "alice"))
	assert.Equal(t, "0.00", l.balance(t, "bob"))
	transfers, err := l.svc.ListTransfers(context.Background(), l.accts["alice"].ID)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

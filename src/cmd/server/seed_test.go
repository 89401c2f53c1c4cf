package main

import (
	"context"
	"testing"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed(t *testing.T) {
	fallback := decimal.RequireFromString("1000.00")

	seed, err := parseSeed("alice:secret:250.50", fallback)
	require.NoError(t, err)
	assert.Equal(t, "alice", seed.username)
	assert.Equal(t, "secret", seed.password)
	assert.Equal(t, "250.50", seed.balance.StringFixed(2))

	seed, err = parseSeed("bob:pw", fallback)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", seed.balance.StringFixed(2))

	for _, raw := range []string{"", "alice", ":pw", "alice:", "alice:pw:lots"} {
		_, err := parseSeed(raw, fallback)
		assert.Error(t, err, raw)
	}
}

func TestSeedUsersCanAuthenticateAgainstMemoryStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := seedUsers(ctx, store.Users(), []string{"alice:alice-pw:100.00", "bob:bob-pw"}, decimal.RequireFromString("5.00"))
	require.NoError(t, err)

	caller, err := services.NewUserService(store.Users()).Authenticate(ctx, "bob", "bob-pw")
	require.NoError(t, err)

	account, err := store.Accounts().GetByUserID(ctx, caller.UserID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", account.Balance.StringFixed(2))

	err = seedUsers(ctx, store.Users(), []string{"carol:pw:-1"}, decimal.Zero)
	assert.ErrorIs(t, err, commons.ErrInvalidArgument)
}

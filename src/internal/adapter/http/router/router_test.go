package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type app struct {
	handler  http.Handler
	accounts map[string]domain.Account
}

func newApp(t *testing.T) *app {
	t.Helper()

	store := memory.NewStore()
	userService := services.NewUserService(store.Users())
	accountService := services.NewAccountService(store.Accounts())
	transferService := services.NewTransferService(store, store.Accounts(), store.Transfers())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	idempotency := middleware.NewIdempotency(client, time.Hour)

	a := &app{accounts: make(map[string]domain.Account)}
	for name, balance := range map[string]string{"alice": "100.00", "bob": "0.00", "carol": "5.00"} {
		_, account, err := userService.Provision(context.Background(), name, name+"-pw", decimal.RequireFromString(balance))
		require.NoError(t, err)
		a.accounts[name] = account
	}

	a.handler = router.New(
		middleware.BasicAuth(userService),
		controller.NewHealthController(nil),
		controller.NewAccountController(accountService),
		controller.NewUserController(userService),
		controller.NewTransferController(transferService, accountService, idempotency.Handler),
	)
	return a
}

func (a *app) do(t *testing.T, user string, method string, path string, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, user+"-pw")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	var envelope map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	}
	return rr, envelope
}

func data(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()

	out, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "envelope has no data object: %v", envelope)
	return out
}

func (a *app) balance(t *testing.T, user string) string {
	t.Helper()

	rr, envelope := a.do(t, user, http.MethodGet, "/balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	return data(t, envelope)["balance"].(string)
}

func id(value any) string {
	return strconv.FormatInt(int64(value.(float64)), 10)
}

func TestHealthNeedsNoAuth(t *testing.T) {
	a := newApp(t)

	rr, envelope := a.do(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, envelope["success"])
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	a := newApp(t)

	for _, path := range []string{"/balance", "/accounts", "/users", "/transfers/pending"} {
		rr, _ := a.do(t, "", http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestSendFlow(t *testing.T) {
	a := newApp(t)
	bob := a.accounts["bob"].ID

	rr, envelope := a.do(t, "alice", http.MethodPost, "/transfers", `{"accountTo":`+strconv.FormatInt(bob, 10)+`,"amount":"40.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "transfer approved", envelope["message"])
	assert.Equal(t, "Approved", data(t, envelope)["transferStatus"])
	assert.Equal(t, "60", a.balance(t, "alice"))
	assert.Equal(t, "40", a.balance(t, "bob"))

	rr, envelope = a.do(t, "alice", http.MethodPost, "/transfers", `{"accountTo":`+strconv.FormatInt(bob, 10)+`,"amount":"100.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "transfer declined", envelope["message"])
	assert.Equal(t, "Rejected", data(t, envelope)["transferStatus"])
	assert.Equal(t, "60", a.balance(t, "alice"))

	rr, envelope = a.do(t, "bob", http.MethodGet, "/transfers/accounts/"+strconv.FormatInt(bob, 10), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, envelope["data"], 2)

	rr, _ = a.do(t, "carol", http.MethodGet, "/transfers/accounts/"+strconv.FormatInt(bob, 10), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSendValidationErrors(t *testing.T) {
	a := newApp(t)
	bob := strconv.FormatInt(a.accounts["bob"].ID, 10)
	alice := strconv.FormatInt(a.accounts["alice"].ID, 10)

	cases := map[string]struct {
		body string
		want int
	}{
		"malformed json":   {`{"accountTo":`, http.StatusBadRequest},
		"unknown field":    {`{"accountTo":` + bob + `,"amount":"1.00","memo":"x"}`, http.StatusBadRequest},
		"zero amount":      {`{"accountTo":` + bob + `,"amount":"0"}`, http.StatusBadRequest},
		"sub cent":         {`{"accountTo":` + bob + `,"amount":"0.001"}`, http.StatusBadRequest},
		"self transfer":    {`{"accountTo":` + alice + `,"amount":"1.00"}`, http.StatusBadRequest},
		"unknown receiver": {`{"accountTo":9999,"amount":"1.00"}`, http.StatusNotFound},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr, envelope := a.do(t, "alice", http.MethodPost, "/transfers", tc.body)
			assert.Equal(t, tc.want, rr.Code)
			assert.Equal(t, false, envelope["success"])
		})
	}
	assert.Equal(t, "100", a.balance(t, "alice"))
}

func TestRequestApproveFlow(t *testing.T) {
	a := newApp(t)
	alice := strconv.FormatInt(a.accounts["alice"].ID, 10)

	rr, envelope := a.do(t, "bob", http.MethodPost, "/transfers/requests", `{"accountFrom":`+alice+`,"amount":"25.00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := data(t, envelope)
	assert.Equal(t, "Pending", created["transferStatus"])
	transferPath := "/transfers/" + id(created["transferId"])

	rr, envelope = a.do(t, "alice", http.MethodGet, "/transfers/pending", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, envelope["data"], 1)

	rr, _ = a.do(t, "bob", http.MethodPut, transferPath, `{"status":"Approved"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = a.do(t, "carol", http.MethodGet, transferPath, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, envelope = a.do(t, "alice", http.MethodPut, transferPath, `{"status":"Approved"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Approved", data(t, envelope)["transferStatus"])
	assert.Equal(t, "75", a.balance(t, "alice"))
	assert.Equal(t, "25", a.balance(t, "bob"))

	rr, _ = a.do(t, "alice", http.MethodPut, transferPath, `{"status":"Rejected"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, _ = a.do(t, "alice", http.MethodPut, transferPath, `{"status":"Pending"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = a.do(t, "bob", http.MethodGet, transferPath, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = a.do(t, "alice", http.MethodGet, "/transfers/424242", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSendIsIdempotentPerKey(t *testing.T) {
	a := newApp(t)
	body := `{"accountTo":` + strconv.FormatInt(a.accounts["bob"].ID, 10) + `,"amount":"10.00"}`

	first, firstEnvelope := a.do(t, "alice", http.MethodPost, "/transfers", body, middleware.IdempotencyKeyHeader, "pay-bob-1")
	second, secondEnvelope := a.do(t, "alice", http.MethodPost, "/transfers", body, middleware.IdempotencyKeyHeader, "pay-bob-1")

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.IdempotencyReplayedHeader))
	assert.Equal(t, data(t, firstEnvelope)["transferId"], data(t, secondEnvelope)["transferId"])
	assert.Equal(t, "90", a.balance(t, "alice"))

	changed := `{"accountTo":` + strconv.FormatInt(a.accounts["bob"].ID, 10) + `,"amount":"50.00"}`
	third, _ := a.do(t, "alice", http.MethodPost, "/transfers", changed, middleware.IdempotencyKeyHeader, "pay-bob-1")
	assert.Equal(t, http.StatusUnprocessableEntity, third.Code)
	assert.Equal(t, "90", a.balance(t, "alice"))
}

func TestUsersAndAccountsListing(t *testing.T) {
	a := newApp(t)

	rr, envelope := a.do(t, "alice", http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	users := envelope["data"].([]any)
	require.Len(t, users, 3)
	for _, raw := range users {
		user := raw.(map[string]any)
		assert.NotContains(t, user, "passwordHash")
	}

	rr, envelope = a.do(t, "alice", http.MethodGet, "/accounts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, envelope["data"], 3)

	bobUser := strconv.FormatInt(a.accounts["bob"].UserID, 10)
	rr, envelope = a.do(t, "alice", http.MethodGet, "/accounts/users/"+bobUser, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(a.accounts["bob"].ID), data(t, envelope)["accountId"])

	rr, envelope = a.do(t, "alice", http.MethodGet, "/users/"+bobUser, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bob", data(t, envelope)["username"])

	rr, _ = a.do(t, "alice", http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestErrorEnvelopeShape(t *testing.T) {
	var envelope commons.Response[models.TransferResponse]
	a := newApp(t)

	rr, _ := a.do(t, "alice", http.MethodGet, "/transfers/1", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "not found", envelope.Message)
}

package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AccountService interface {
	GetByUserID(ctx context.Context, userID int64) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

type AccountController struct {
	service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Get("/balance", c.getBalance)
		r.Get("/accounts", c.listAccounts)
		r.Get("/accounts/users/{userId}", c.getByUser)
	})
}

func (c *AccountController) getBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, err := callerFrom(r)
	if err != nil {
		respondError[models.AccountResponse](w, r, err, start)
		return
	}

	account, err := c.service.GetByUserID(r.Context(), caller.UserID)
	if err != nil {
		respondError[models.AccountResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("balance fetched successfully", models.NewAccountResponse(account)), start)
}

func (c *AccountController) listAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	accounts, err := c.service.List(r.Context())
	if err != nil {
		respondError[[]models.AccountResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("accounts fetched successfully", models.NewAccountResponses(accounts)), start)
}

func (c *AccountController) getByUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	userID, err := idParam(r, "userId")
	if err != nil {
		respondError[models.AccountResponse](w, r, err, start)
		return
	}

	account, err := c.service.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError[models.AccountResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("account fetched successfully", models.NewAccountResponse(account)), start)
}

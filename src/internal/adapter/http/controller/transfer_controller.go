package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type TransferService interface {
	ExecuteSend(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error)
	CreateRequest(ctx context.Context, accountFrom int64, accountTo int64, amount decimal.Decimal) (domain.Transfer, error)
	ResolveRequest(ctx context.Context, callerUserID int64, transferID int64, decision domain.Decision) (domain.Transfer, error)
	GetTransferForUser(ctx context.Context, callerUserID int64, transferID int64) (domain.Transfer, error)
	ListTransfers(ctx context.Context, accountID int64) ([]domain.Transfer, error)
	ListPending(ctx context.Context, accountID int64) ([]domain.Transfer, error)
}

type AccountLookup interface {
	GetByUserID(ctx context.Context, userID int64) (domain.Account, error)
}

type TransferController struct {
	service     TransferService
	accounts    AccountLookup
	idempotency func(http.Handler) http.Handler
}

func NewTransferController(service TransferService, accounts AccountLookup, idempotency func(http.Handler) http.Handler) *TransferController {
	return &TransferController{
		service:     service,
		accounts:    accounts,
		idempotency: idempotency,
	}
}

func (c *TransferController) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/transfers", func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Group(func(r chi.Router) {
			if c.idempotency != nil {
				r.Use(c.idempotency)
			}
			r.Post("/", c.sendTransfer)
			r.Post("/requests", c.requestTransfer)
		})

		r.Get("/pending", c.listPending)
		r.Get("/accounts/{accountId}", c.listByAccount)
		r.Get("/{id}", c.getTransfer)
		r.Put("/{id}", c.resolveTransfer)
	})
}

func (c *TransferController) sendTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.SendTransferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), start)
		return
	}

	account, err := c.callerAccount(r)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	transfer, err := c.service.ExecuteSend(r.Context(), account.ID, req.AccountTo, req.Amount)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	message := "transfer approved"
	if transfer.Status == domain.TransferStatusRejected {
		message = "transfer declined"
	}
	respond(w, r, http.StatusCreated, commons.SuccessResponse(message, models.NewTransferResponse(transfer)), start)
}

func (c *TransferController) requestTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RequestTransferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), start)
		return
	}

	account, err := c.callerAccount(r)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	transfer, err := c.service.CreateRequest(r.Context(), req.AccountFrom, account.ID, req.Amount)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusCreated, commons.SuccessResponse("transfer request created", models.NewTransferResponse(transfer)), start)
}

func (c *TransferController) resolveTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	transferID, err := idParam(r, "id")
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	var req models.ResolveTransferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), start)
		return
	}

	caller, err := callerFrom(r)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	transfer, err := c.service.ResolveRequest(r.Context(), caller.UserID, transferID, req.Decision())
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	message := "transfer approved"
	if transfer.Status == domain.TransferStatusRejected {
		message = "transfer rejected"
	}
	respond(w, r, http.StatusOK, commons.SuccessResponse(message, models.NewTransferResponse(transfer)), start)
}

func (c *TransferController) getTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	transferID, err := idParam(r, "id")
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	caller, err := callerFrom(r)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	transfer, err := c.service.GetTransferForUser(r.Context(), caller.UserID, transferID)
	if err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("transfer fetched successfully", models.NewTransferResponse(transfer)), start)
}

func (c *TransferController) listByAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	accountID, err := idParam(r, "accountId")
	if err != nil {
		respondError[[]models.TransferResponse](w, r, err, start)
		return
	}

	account, err := c.callerAccount(r)
	if err != nil {
		respondError[[]models.TransferResponse](w, r, err, start)
		return
	}
	if account.ID != accountID {
		logger.Info("transfer controller foreign account listing denied", logger.Fields{
			"accountId":       accountID,
			"callerAccountId": account.ID,
		})
		respondError[[]models.TransferResponse](w, r, commons.ErrForbidden, start)
		return
	}

	transfers, err := c.service.ListTransfers(r.Context(), accountID)
	if err != nil {
		respondError[[]models.TransferResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("transfers fetched successfully", models.NewTransferResponses(transfers)), start)
}

func (c *TransferController) listPending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	account, err := c.callerAccount(r)
	if err != nil {
		respondError[[]models.TransferResponse](w, r, err, start)
		return
	}

	transfers, err := c.service.ListPending(r.Context(), account.ID)
	if err != nil {
		respondError[[]models.TransferResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("pending transfers fetched successfully", models.NewTransferResponses(transfers)), start)
}

func (c *TransferController) callerAccount(r *http.Request) (domain.Account, error) {
	caller, err := callerFrom(r)
	if err != nil {
		return domain.Account{}, err
	}
	return c.accounts.GetByUserID(r.Context(), caller.UserID)
}

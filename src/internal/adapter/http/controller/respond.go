package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respond writes payload and logs the response in one step.
func respond(w http.ResponseWriter, r *http.Request, status int, payload any, start time.Time) {
	writeJSON(w, status, payload)
	logResponse(r, status, payload, start)
}

// respondError maps err onto a status code and the standard error envelope.
func respondError[T any](w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status, message := statusFromError(err)
	logError(r, err, nil)

	var response commons.Response[T]
	if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
		response = commons.ErrorResponse[T](message)
	} else {
		response = commons.ErrorResponseFrom[T](message, err)
	}
	respond(w, r, status, response, start)
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, commons.ErrRecordNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, commons.ErrInvalidArgument):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, commons.ErrInvalidState):
		return http.StatusConflict, "invalid state"
	case errors.Is(err, commons.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, commons.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, commons.ErrEngineUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func callerFrom(r *http.Request) (domain.Caller, error) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		return domain.Caller{}, commons.ErrUnauthorized
	}
	return caller, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", commons.ErrInvalidArgument, name)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", commons.ErrInvalidArgument, err)
	}
	return nil
}

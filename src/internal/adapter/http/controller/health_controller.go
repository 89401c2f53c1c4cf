package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/go-chi/chi/v5"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

type HealthController struct {
	pinger Pinger
}

// NewHealthController reports liveness. A nil pinger means there is no
// external store to check.
func NewHealthController(pinger Pinger) *HealthController {
	return &HealthController{pinger: pinger}
}

func (c *HealthController) RegisterRoutes(r chi.Router, _ func(http.Handler) http.Handler) {
	r.Get("/health", c.health)
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if c.pinger == nil {
		respond(w, r, http.StatusOK, commons.SuccessResponse("ok", HealthResponse{Status: "up", Store: "memory"}), start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.pinger.PingContext(ctx); err != nil {
		logError(r, err, nil)
		response := commons.Response[HealthResponse]{
			Success: false,
			Message: "store unreachable",
			Data:    &HealthResponse{Status: "down", Store: "postgres"},
		}
		respond(w, r, http.StatusServiceUnavailable, response, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("ok", HealthResponse{Status: "up", Store: "postgres"}), start)
}

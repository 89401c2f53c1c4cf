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

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID int64) (domain.User, error)
}

type UserController struct {
	service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{service: service}
}

func (c *UserController) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Get("/", c.listUsers)
		r.Get("/{id}", c.getUser)
	})
}

func (c *UserController) listUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	users, err := c.service.List(r.Context())
	if err != nil {
		respondError[[]models.UserResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("users fetched successfully", models.NewUserResponses(users)), start)
}

func (c *UserController) getUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	userID, err := idParam(r, "id")
	if err != nil {
		respondError[models.UserResponse](w, r, err, start)
		return
	}

	user, err := c.service.Get(r.Context(), userID)
	if err != nil {
		respondError[models.UserResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("user fetched successfully", models.NewUserResponse(user)), start)
}

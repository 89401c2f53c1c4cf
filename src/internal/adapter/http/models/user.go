package models

import "github.com/api-sage/tenmo-ledger/src/internal/domain"

// UserResponse is the public view of a user; credentials never leave the
// service.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func NewUserResponse(user domain.User) UserResponse {
	return UserResponse{ID: user.ID, Username: user.Username}
}

func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

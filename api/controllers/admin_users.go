package controllers

import (
	"net/http"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/api/validators"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/internal/users"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"omitempty,max=50"`
	Bio      string `json:"bio" validate:"max=500"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type usersResponse struct {
	Users []profiles.View `json:"users"`
}

// AdminUsersList lists every stored profile.
func AdminUsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views, err := svc.List(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usersResponse{Users: views})
	}
}

// AdminUsersCreate creates a current-schema profile.
func AdminUsersCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), principal, users.CreateUserInput{
			Email:    body.Email,
			Password: body.Password,
			Name:     validators.SanitizeString(body.Name, 100),
			Username: validators.SanitizeString(body.Username, 50),
			Bio:      validators.SanitizeString(body.Bio, 500),
			Role:     enums.Role(body.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

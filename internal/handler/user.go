package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/service"
)

// AccountManager is the part of *service.UserService the handler uses.
type AccountManager interface {
	GetUser(ctx context.Context, actor, id int64) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, actor, id int64, in service.ProfileInput) (*model.PublicUser, error)
	ChangePassword(ctx context.Context, actor, id int64, in service.PasswordChangeInput) error
	DeleteAccount(ctx context.Context, actor, id int64) (*model.DeletedUser, error)
}

// UserUpdateResponse is the body of a successful profile update.
type UserUpdateResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
}

// UserDeleteResponse is the body of a successful account deletion.
type UserDeleteResponse struct {
	Message     string            `json:"message"`
	DeletedUser model.DeletedUser `json:"deletedUser"`
}

// UserHandler serves the self-service /users/{id} endpoints. Every route
// sits behind RequireAuth; the service refuses ids other than the caller's.
type UserHandler struct {
	users AccountManager
	errs  errorWriter
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users AccountManager, logger *slog.Logger, development bool) *UserHandler {
	return &UserHandler{users: users, errs: newErrorWriter(logger, development)}
}

// HandleGet returns a user's profile.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), actor, id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: *user})
}

// HandleUpdate changes username and email.
//
// HTTP: PUT /users/{id}
// REQUEST BODY: {"username": "alice", "email": "alice@example.com"}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), actor, id, in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserUpdateResponse{
		Message: "User updated successfully.",
		User:    *user,
	})
}

// HandleChangePassword replaces the password.
//
// HTTP: PUT /users/{id}/password
// REQUEST BODY: {"currentPassword": "...", "newPassword": "..."}
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var in service.PasswordChangeInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errs.write(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), actor, id, in); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully."})
}

// HandleDelete removes the account and all of its saved recipes.
//
// HTTP: DELETE /users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	deleted, err := h.users.DeleteAccount(r.Context(), actor, id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserDeleteResponse{
		Message:     "User account deleted successfully.",
		DeletedUser: *deleted,
	})
}

// actorAndTarget reads the caller from the context and the target from
// the URL. On failure it has already written the response.
func (h *UserHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (actor, id int64, ok bool) {
	actor, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.write(w, r, apperror.Unauthorized(auth.MsgNoToken))
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errs.write(w, r, apperror.ValidationFailed("id", "Invalid user ID."))
		return 0, 0, false
	}
	return actor, id, true
}

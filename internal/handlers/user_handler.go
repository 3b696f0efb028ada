package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type UserHandler struct {
	base
	userService *services.UserService
}

func NewUserHandler(svcs *services.Services, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		base:        base{logger: logger},
		userService: svcs.Users,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Profile retrieved", user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.UpdateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Profile updated", user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Password changed", nil)
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	isActive, err := queryBool(r, "isActive")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	filter := models.UserFilter{
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		Role:     models.UserRole(r.URL.Query().Get("role")),
		IsActive: isActive,
	}
	if filter.Role != "" && !filter.Role.Valid() {
		h.respondWithError(w, r, apperr.Validation("role must be one of: user admin"))
		return
	}

	users, total, err := h.userService.List(r.Context(), filter, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithPage(w, "Users retrieved", users, page, limit, total)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "User retrieved", user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.AdminUpdateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.userService.AdminUpdate(r.Context(), userID, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "User updated", user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.userService.Deactivate(r.Context(), userID); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "User deactivated", nil)
}

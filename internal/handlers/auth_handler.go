package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type AuthHandler struct {
	base
	userService *services.UserService
	authService *services.AuthService
}

func NewAuthHandler(svcs *services.Services, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		base:        base{logger: logger},
		userService: svcs.Users,
		authService: svcs.Auth,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	resp, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, "User registered successfully", resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	resp, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Str("email", req.Email).Msg("Login failed")
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Login successful", resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	token, err := h.authService.Refresh(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Token refreshed", map[string]string{"token": token})
}

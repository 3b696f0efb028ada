package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type BalanceHandler struct {
	base
	balanceService *services.BalanceService
}

func NewBalanceHandler(svcs *services.Services, logger zerolog.Logger) *BalanceHandler {
	return &BalanceHandler{
		base:           base{logger: logger},
		balanceService: svcs.Balance,
	}
}

func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.DepositRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.balanceService.Deposit(r.Context(), userID, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Deposit successful", map[string]any{
		"balance": user.Balance,
		"user":    user,
	})
}

func (h *BalanceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	page, limit, err := parsePagination(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entries, total, err := h.balanceService.History(r.Context(), userID, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithPage(w, "Balance history retrieved", entries, page, limit, total)
}

// Debit is the admin-only manual charge against a user's balance.
func (h *BalanceHandler) Debit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.DebitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entry, err := h.balanceService.Debit(r.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Balance debited", entry)
}

func (h *BalanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	rec, err := h.balanceService.Reconcile(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Balance reconciled", rec)
}

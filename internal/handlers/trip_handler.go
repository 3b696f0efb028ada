package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type TripHandler struct {
	base
	tripService *services.TripService
}

func NewTripHandler(svcs *services.Services, logger zerolog.Logger) *TripHandler {
	return &TripHandler{
		base:        base{logger: logger},
		tripService: svcs.Trips,
	}
}

func (h *TripHandler) IssueTrip(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.IssueTripRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	trip, err := h.tripService.Issue(r.Context(), userID, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, "Trip issued", trip)
}

// UseTrip redeems a ticket at the gate. No authentication: the code is the credential.
func (h *TripHandler) UseTrip(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["tripCode"])
	if code == "" {
		h.respondWithError(w, r, apperr.Validation("tripCode is required"))
		return
	}

	trip, err := h.tripService.Redeem(r.Context(), code)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Trip redeemed", trip)
}

func (h *TripHandler) CompleteJourney(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	tripID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	trip, err := h.tripService.CompleteJourney(r.Context(), tripID, userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Journey completed", trip)
}

func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	userID, role, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	tripID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	trip, err := h.tripService.Get(r.Context(), tripID, userID, role == models.RoleAdmin)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Trip retrieved", trip)
}

func (h *TripHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
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
	filter := models.TripFilter{Status: models.TripStatus(r.URL.Query().Get("status"))}

	trips, total, err := h.tripService.History(r.Context(), userID, filter, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithPage(w, "Trip history retrieved", trips, page, limit, total)
}

func (h *TripHandler) GetUnused(w http.ResponseWriter, r *http.Request) {
	userID, _, err := currentUser(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	trips, err := h.tripService.Unused(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Unused trips retrieved", trips)
}

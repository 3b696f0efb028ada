package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type FareHandler struct {
	base
	fareService *services.FareService
}

func NewFareHandler(svcs *services.Services, logger zerolog.Logger) *FareHandler {
	return &FareHandler{
		base:        base{logger: logger},
		fareService: svcs.Fares,
	}
}

func routeQuery(r *http.Request) (from, to int64, fareType models.FareType, err error) {
	if from, err = queryInt64(r, "fromStationId"); err != nil {
		return
	}
	if to, err = queryInt64(r, "toStationId"); err != nil {
		return
	}
	fareType = models.FareType(r.URL.Query().Get("fareType"))
	if fareType != "" && !fareType.Valid() {
		err = models.ErrFareTypeInvalid
	}
	return
}

func (h *FareHandler) GetFares(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	from, to, fareType, err := routeQuery(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	filter := models.FareFilter{FromStationID: from, ToStationID: to, FareType: fareType}

	fares, total, err := h.fareService.List(r.Context(), filter, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithPage(w, "Fares retrieved", fares, page, limit, total)
}

// GetInBetween looks up the direct fares between two stations.
func (h *FareHandler) GetInBetween(w http.ResponseWriter, r *http.Request) {
	from, to, fareType, err := routeQuery(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if from == 0 || to == 0 {
		h.respondWithError(w, r, apperr.Validation("fromStationId and toStationId are required"))
		return
	}

	fares, err := h.fareService.InBetween(r.Context(), from, to, fareType)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Fares retrieved", fares)
}

func (h *FareHandler) GetFare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	fare, err := h.fareService.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Fare retrieved", fare)
}

func (h *FareHandler) CreateFare(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFareRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	fare, err := h.fareService.Create(r.Context(), &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, "Fare created", fare)
}

func (h *FareHandler) UpdateFare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.UpdateFareRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	fare, err := h.fareService.Update(r.Context(), id, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Fare updated", fare)
}

func (h *FareHandler) DeleteFare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.fareService.Deactivate(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Fare deactivated", nil)
}

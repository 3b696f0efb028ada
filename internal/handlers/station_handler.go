package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

type StationHandler struct {
	base
	stationService *services.StationService
}

func NewStationHandler(svcs *services.Services, logger zerolog.Logger) *StationHandler {
	return &StationHandler{
		base:           base{logger: logger},
		stationService: svcs.Stations,
	}
}

func (h *StationHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := models.StationFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Zone:   strings.TrimSpace(q.Get("zone")),
	}

	stations, total, err := h.stationService.List(r.Context(), filter, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithPage(w, "Stations retrieved", stations, page, limit, total)
}

func (h *StationHandler) GetNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat", true)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	lng, err := queryFloat(r, "lng", true)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius", false)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	stations, err := h.stationService.Nearby(r.Context(), lat, lng, radius, int(limit))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Nearby stations retrieved", stations)
}

func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	station, err := h.stationService.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Station retrieved", station)
}

func (h *StationHandler) GetStationByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		h.respondWithError(w, r, models.ErrStationNotFound)
		return
	}

	station, err := h.stationService.GetByCode(r.Context(), code)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Station retrieved", station)
}

func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	station, err := h.stationService.Create(r.Context(), &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, "Station created", station)
}

func (h *StationHandler) UpdateStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req models.UpdateStationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	station, err := h.stationService.Update(r.Context(), id, &req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Station updated", station)
}

func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.stationService.Deactivate(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, "Station deactivated", nil)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

const (
	defaultNearbyRadiusKm = 2.0
	maxNearbyRadiusKm     = 50.0
	defaultNearbyLimit    = 10
)

type StationService struct {
	stations StationRepository
	logger   zerolog.Logger
}

func NewStationService(stations StationRepository, logger zerolog.Logger) *StationService {
	return &StationService{stations: stations, logger: logger}
}

func validateFacilities(fs models.Facilities) error {
	for _, f := range fs {
		if !f.Valid() {
			return apperr.Validation("unknown facility %q", f)
		}
	}
	return nil
}

// checkUnique rejects a name or code already used by another station,
// including retired ones.
func (s *StationService) checkUnique(ctx context.Context, id int64, name, code string) error {
	if other, err := s.stations.GetByName(ctx, name); err == nil && other.ID != id {
		return models.ErrStationNameUsed
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check station name: %w", err)
	}
	if code == "" {
		return nil
	}
	if other, err := s.stations.GetByCode(ctx, code); err == nil && other.ID != id {
		return models.ErrStationCodeUsed
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check station code: %w", err)
	}
	return nil
}

func (s *StationService) Create(ctx context.Context, req *models.CreateStationRequest) (*models.Station, error) {
	if err := validateFacilities(req.Facilities); err != nil {
		return nil, err
	}
	st := &models.Station{
		Name:       strings.TrimSpace(req.Name),
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		Location:   req.Location,
		Address:    strings.TrimSpace(req.Address),
		Zone:       strings.TrimSpace(req.Zone),
		Facilities: req.Facilities,
		IsActive:   true,
	}
	if err := s.checkUnique(ctx, 0, st.Name, st.Code); err != nil {
		return nil, err
	}
	if err := s.stations.Create(ctx, st); err != nil {
		return nil, s.writeError(err, st)
	}
	s.logger.Info().Int64("station_id", st.ID).Str("name", st.Name).Msg("Station created")
	return st, nil
}

func (s *StationService) Get(ctx context.Context, id int64) (*models.Station, error) {
	st, err := s.stations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, models.ErrStationNotFound)
	}
	return st, nil
}

func (s *StationService) GetByCode(ctx context.Context, code string) (*models.Station, error) {
	st, err := s.stations.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, notFoundAs(err, models.ErrStationNotFound)
	}
	return st, nil
}

func (s *StationService) List(ctx context.Context, filter models.StationFilter, page, limit int) ([]models.Station, int, error) {
	return s.stations.List(ctx, filter, Offset(page, limit), limit)
}

func (s *StationService) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.Station, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperr.Validation("latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		radiusKm = maxNearbyRadiusKm
	}
	if limit <= 0 {
		limit = defaultNearbyLimit
	}
	return s.stations.Nearby(ctx, lat, lng, radiusKm, limit)
}

func (s *StationService) Update(ctx context.Context, id int64, req *models.UpdateStationRequest) (*models.Station, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		st.Code = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	if req.Location != nil {
		st.Location = req.Location
	}
	if req.Address != nil {
		st.Address = strings.TrimSpace(*req.Address)
	}
	if req.Zone != nil {
		st.Zone = strings.TrimSpace(*req.Zone)
	}
	if req.Facilities != nil {
		if err := validateFacilities(*req.Facilities); err != nil {
			return nil, err
		}
		st.Facilities = *req.Facilities
	}
	if req.IsActive != nil {
		st.IsActive = *req.IsActive
	}

	if err := s.checkUnique(ctx, st.ID, st.Name, st.Code); err != nil {
		return nil, err
	}
	if err := s.stations.Update(ctx, st); err != nil {
		return nil, s.writeError(err, st)
	}
	s.logger.Info().Int64("station_id", st.ID).Msg("Station updated")
	return st, nil
}

// Deactivate retires the station; fares and trips keep referencing it.
func (s *StationService) Deactivate(ctx context.Context, id int64) error {
	st, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	st.IsActive = false
	if err := s.stations.Update(ctx, st); err != nil {
		return s.writeError(err, st)
	}
	s.logger.Info().Int64("station_id", st.ID).Msg("Station deactivated")
	return nil
}

func (s *StationService) writeError(err error, st *models.Station) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return models.ErrStationNameUsed
	case errors.Is(err, store.ErrNotFound):
		return models.ErrStationNotFound
	}
	s.logger.Error().Err(err).Str("name", st.Name).Msg("Error saving station")
	return fmt.Errorf("failed to save station: %w", err)
}

// requireActive loads a station that can be part of a route.
func requireActive(ctx context.Context, stations StationRepository, id int64) (*models.Station, error) {
	st, err := stations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, models.ErrStationNotFound)
	}
	if !st.IsActive {
		return nil, models.ErrStationInactive
	}
	return st, nil
}

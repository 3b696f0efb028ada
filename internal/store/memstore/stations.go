package memstore

import (
	"context"
	"math"
	"sort"
	"strings"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type StationRepo struct{ s *Store }

// conflict must be called with mu held.
func (r *StationRepo) conflict(st *models.Station) bool {
	for id, cur := range r.s.stations {
		if id == st.ID {
			continue
		}
		if strings.EqualFold(cur.Name, st.Name) {
			return true
		}
		if st.Code != "" && strings.EqualFold(cur.Code, st.Code) {
			return true
		}
	}
	return false
}

func (r *StationRepo) Create(_ context.Context, st *models.Station) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.conflict(st) {
		return store.ErrDuplicate
	}
	st.ID = r.s.nextID()
	st.Facilities = st.Facilities.Normalize()
	r.s.stamp(&st.CreatedAt, &st.UpdatedAt)
	cp := *st
	r.s.stations[st.ID] = &cp
	return nil
}

func (r *StationRepo) GetByID(_ context.Context, id int64) (*models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *StationRepo) find(match func(*models.Station) bool) (*models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, st := range r.s.stations {
		if match(st) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *StationRepo) GetByName(_ context.Context, name string) (*models.Station, error) {
	return r.find(func(st *models.Station) bool { return strings.EqualFold(st.Name, name) })
}

func (r *StationRepo) GetByCode(_ context.Context, code string) (*models.Station, error) {
	return r.find(func(st *models.Station) bool { return st.Code != "" && strings.EqualFold(st.Code, code) })
}

func (r *StationRepo) List(_ context.Context, filter models.StationFilter, offset, limit int) ([]models.Station, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Station
	for _, st := range r.s.stations {
		if !filter.IncludeInactive && !st.IsActive {
			continue
		}
		if filter.Zone != "" && !strings.EqualFold(st.Zone, filter.Zone) {
			continue
		}
		if filter.Search != "" && !containsFold(st.Name, filter.Search) &&
			!containsFold(st.Code, filter.Search) && !containsFold(st.Address, filter.Search) {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, offset, limit), len(out), nil
}

func (r *StationRepo) Nearby(_ context.Context, lat, lng, radiusKm float64, limit int) ([]models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Station
	for _, st := range r.s.stations {
		if !st.IsActive || st.Location == nil {
			continue
		}
		d := haversineKm(lat, lng, st.Location.Latitude, st.Location.Longitude)
		if d > radiusKm {
			continue
		}
		cp := *st
		cp.DistanceKm = &d
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	return page(out, 0, limit), nil
}

func (r *StationRepo) Update(_ context.Context, st *models.Station) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.stations[st.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.conflict(st) {
		return store.ErrDuplicate
	}
	created := cur.CreatedAt
	*cur = *st
	cur.CreatedAt = created
	cur.Facilities = cur.Facilities.Normalize()
	cur.DistanceKm = nil
	r.s.stamp(&cur.CreatedAt, &cur.UpdatedAt)
	*st = *cur
	return nil
}

const earthRadiusKm = 6371.0088

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

package memstore

import (
	"context"
	"time"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type FareRepo struct{ s *Store }

// withRefs must be called with mu held.
func (r *FareRepo) withRefs(f *models.Fare) models.Fare {
	cp := *f
	if st, ok := r.s.stations[f.FromStationID]; ok {
		ref := st.Ref()
		cp.FromStation = &ref
	}
	if st, ok := r.s.stations[f.ToStationID]; ok {
		ref := st.Ref()
		cp.ToStation = &ref
	}
	return cp
}

func (r *FareRepo) Create(_ context.Context, fare *models.Fare) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range r.s.fares {
		if f.IsActive && f.FromStationID == fare.FromStationID &&
			f.ToStationID == fare.ToStationID && f.FareType == fare.FareType {
			return store.ErrDuplicate
		}
	}
	fare.ID = r.s.nextID()
	r.s.stamp(&fare.CreatedAt, &fare.UpdatedAt)
	cp := *fare
	cp.FromStation, cp.ToStation = nil, nil
	r.s.fares[fare.ID] = &cp
	*fare = r.withRefs(&cp)
	return nil
}

func (r *FareRepo) GetByID(_ context.Context, id int64) (*models.Fare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.fares[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := r.withRefs(f)
	return &cp, nil
}

func (r *FareRepo) FindEffective(_ context.Context, from, to int64, fareType models.FareType, at time.Time) (*models.Fare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range r.s.fares {
		if f.FromStationID == from && f.ToStationID == to && f.FareType == fareType && f.EffectiveAt(at) {
			cp := r.withRefs(f)
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *FareRepo) GetActiveByRoute(_ context.Context, from, to int64, fareType models.FareType) (*models.Fare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range r.s.fares {
		if f.IsActive && f.FromStationID == from && f.ToStationID == to && f.FareType == fareType {
			cp := r.withRefs(f)
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *FareRepo) ListBetween(_ context.Context, from, to int64, fareType models.FareType, at time.Time) ([]models.Fare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Fare
	for _, f := range r.s.fares {
		if f.FromStationID != from || f.ToStationID != to || !f.EffectiveAt(at) {
			continue
		}
		if fareType != "" && f.FareType != fareType {
			continue
		}
		out = append(out, r.withRefs(f))
	}
	sortByIDDesc(out, func(f models.Fare) int64 { return f.ID })
	return out, nil
}

func (r *FareRepo) List(_ context.Context, filter models.FareFilter, offset, limit int) ([]models.Fare, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Fare
	for _, f := range r.s.fares {
		if !filter.IncludeInactive && !f.IsActive {
			continue
		}
		if filter.FromStationID != 0 && f.FromStationID != filter.FromStationID {
			continue
		}
		if filter.ToStationID != 0 && f.ToStationID != filter.ToStationID {
			continue
		}
		if filter.FareType != "" && f.FareType != filter.FareType {
			continue
		}
		out = append(out, r.withRefs(f))
	}
	sortByIDDesc(out, func(f models.Fare) int64 { return f.ID })
	return page(out, offset, limit), len(out), nil
}

func (r *FareRepo) Update(_ context.Context, fare *models.Fare) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.fares[fare.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Fare = fare.Fare
	cur.Distance = fare.Distance
	cur.Duration = fare.Duration
	cur.EffectiveTo = fare.EffectiveTo
	cur.IsActive = fare.IsActive
	r.s.stamp(&cur.CreatedAt, &cur.UpdatedAt)
	*fare = r.withRefs(cur)
	return nil
}

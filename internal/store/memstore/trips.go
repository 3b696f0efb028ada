package memstore

import (
	"context"
	"time"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type TripRepo struct{ s *Store }

func (r *TripRepo) Create(_ context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.trips {
		if t.TripCode == trip.TripCode {
			return store.ErrDuplicate
		}
	}
	if trip.PaymentMethod == models.PaymentBalance {
		_, err := r.s.debit(trip.UserID, trip.TotalAmount, models.BalanceEntry{
			Type:          models.EntryTripPurchase,
			PaymentMethod: string(models.PaymentBalance),
			Reference:     trip.TripCode,
		})
		if err != nil {
			return err
		}
	}
	trip.ID = r.s.nextID()
	r.s.stamp(&trip.CreatedAt, &trip.UpdatedAt)
	cp := *trip
	r.s.trips[trip.ID] = &cp
	return nil
}

func (r *TripRepo) GetByID(_ context.Context, id int64) (*models.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TripRepo) GetByCode(_ context.Context, code string) (*models.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.trips {
		if t.TripCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *TripRepo) MarkUsed(_ context.Context, trip *models.Trip, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.trips[trip.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != models.TripCreated || !now.Before(cur.ExpiresAt) {
		return store.ErrStaleState
	}
	cur.Status = models.TripUsed
	cur.UsedAt = trip.UsedAt
	cur.JourneyStartTime = trip.JourneyStartTime
	cur.UpdatedAt = trip.UpdatedAt

	if u, ok := r.s.users[cur.UserID]; ok {
		u.TotalTrips++
		u.TotalExpense = u.TotalExpense.Add(cur.TotalAmount)
		u.UpdatedAt = now
	}
	return nil
}

func (r *TripRepo) MarkExpired(_ context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.trips[trip.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != models.TripCreated {
		return store.ErrStaleState
	}
	cur.Status = models.TripExpired
	cur.UpdatedAt = trip.UpdatedAt
	return nil
}

func (r *TripRepo) CompleteJourney(_ context.Context, trip *models.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.trips[trip.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != models.TripUsed || cur.JourneyEndTime != nil {
		return store.ErrStaleState
	}
	cur.JourneyEndTime = trip.JourneyEndTime
	cur.UpdatedAt = trip.UpdatedAt
	return nil
}

func (r *TripRepo) ListByUser(_ context.Context, userID int64, filter models.TripFilter, offset, limit int) ([]models.Trip, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Trip
	for _, t := range r.s.trips {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sortByIDDesc(out, func(t models.Trip) int64 { return t.ID })
	return page(out, offset, limit), len(out), nil
}

func (r *TripRepo) ListUnused(_ context.Context, userID int64, now time.Time) ([]models.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Trip{}
	for _, t := range r.s.trips {
		if t.UserID == userID && t.Status == models.TripCreated && !t.Lapsed(now) {
			out = append(out, *t)
		}
	}
	sortByIDDesc(out, func(t models.Trip) int64 { return t.ID })
	return out, nil
}

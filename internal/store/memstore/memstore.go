// Package memstore is an in-process implementation of the repositories. It is
// selected with DB_DRIVER=memory and backs the service and handler tests.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

var (
	_ services.UserRepository    = (*UserRepo)(nil)
	_ services.StationRepository = (*StationRepo)(nil)
	_ services.FareRepository    = (*FareRepo)(nil)
	_ services.TripRepository    = (*TripRepo)(nil)
)

type Store struct {
	mu sync.Mutex

	users   map[int64]*models.User
	entries []models.BalanceEntry

	stations map[int64]*models.Station
	fares    map[int64]*models.Fare
	trips    map[int64]*models.Trip

	lastID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		stations: make(map[int64]*models.Station),
		fares:    make(map[int64]*models.Fare),
		trips:    make(map[int64]*models.Trip),
		now:      time.Now,
	}
}

// Repositories returns every repository backed by this store.
func (s *Store) Repositories() services.Repositories {
	return services.Repositories{
		Users:    s.Users(),
		Stations: s.Stations(),
		Fares:    s.Fares(),
		Trips:    s.Trips(),
	}
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Stations() *StationRepo { return &StationRepo{s} }
func (s *Store) Fares() *FareRepo       { return &FareRepo{s} }
func (s *Store) Trips() *TripRepo       { return &TripRepo{s} }

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// page slices items for offset/limit. A non-positive limit returns everything
// from offset on.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortByIDDesc[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })
}

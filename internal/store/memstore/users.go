package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) || u.Phone == user.Phone {
			return store.ErrDuplicate
		}
	}
	user.ID = r.s.nextID()
	r.s.stamp(&user.CreatedAt, &user.UpdatedAt)
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Phone == phone })
}

func (r *UserRepo) List(_ context.Context, filter models.UserFilter, offset, limit int) ([]models.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.User
	for _, u := range r.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !containsFold(u.FullName, filter.Search) &&
			!containsFold(u.Email, filter.Search) && !containsFold(u.Phone, filter.Search) {
			continue
		}
		out = append(out, *u)
	}
	sortByIDDesc(out, func(u models.User) int64 { return u.ID })
	return page(out, offset, limit), len(out), nil
}

func (r *UserRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Phone == user.Phone {
			return store.ErrDuplicate
		}
	}
	// Balance and counters only move through Credit, Debit and trips.
	cur.FullName = user.FullName
	cur.Phone = user.Phone
	cur.PasswordHash = user.PasswordHash
	cur.Role = user.Role
	cur.IsActive = user.IsActive
	r.s.stamp(&cur.CreatedAt, &cur.UpdatedAt)
	*user = *cur
	return nil
}

func (r *UserRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	return nil
}

func (r *UserRepo) Credit(_ context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok || !u.IsActive {
		return nil, store.ErrNotFound
	}
	balance := u.Balance.Add(amount)
	if balance.GreaterThan(models.MaxAmount) {
		return nil, store.ErrOutOfRange
	}
	u.Balance = balance
	return r.s.appendEntry(u, amount, entry), nil
}

func (r *UserRepo) Debit(_ context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.debit(userID, amount, entry)
}

// debit must be called with mu held.
func (s *Store) debit(userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	u, ok := s.users[userID]
	if !ok || !u.IsActive {
		return nil, store.ErrNotFound
	}
	if u.Balance.LessThan(amount) {
		return nil, store.ErrInsufficientFunds
	}
	u.Balance = u.Balance.Sub(amount)
	return s.appendEntry(u, amount.Neg(), entry), nil
}

// appendEntry must be called with mu held.
func (s *Store) appendEntry(u *models.User, change decimal.Decimal, entry models.BalanceEntry) *models.BalanceEntry {
	now := s.now().UTC()
	u.UpdatedAt = now

	entry.ID = s.nextID()
	entry.UserID = u.ID
	entry.Amount = change
	entry.BalanceAfter = u.Balance
	entry.CreatedAt = now
	s.entries = append(s.entries, entry)
	return &entry
}

func (r *UserRepo) ListBalanceEntries(_ context.Context, userID int64, offset, limit int) ([]models.BalanceEntry, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.BalanceEntry
	for _, e := range r.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sortByIDDesc(out, func(e models.BalanceEntry) int64 { return e.ID })
	return page(out, offset, limit), len(out), nil
}

func (r *UserRepo) SumBalanceEntries(_ context.Context, userID int64) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.UserID == userID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

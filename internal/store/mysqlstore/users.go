package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

const userColumns = `id, full_name, email, phone, password_hash, balance, total_trips,
	total_expense, role, is_active, last_login, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (full_name, email, phone, password_hash, balance, total_trips, total_expense, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.FullName, user.Email, user.Phone, user.PasswordHash, user.Balance,
		user.TotalTrips, user.TotalExpense, user.Role, user.IsActive, ts, ts,
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt, user.UpdatedAt = ts, ts
	return nil
}

func (r *UserRepository) get(ctx context.Context, cond string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email = ?", email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.get(ctx, "phone = ?", phone)
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, offset, limit int) ([]models.User, int, error) {
	var conds []string
	var args []any
	if filter.Search != "" {
		p := likePattern(filter.Search)
		conds = append(conds, "(full_name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, p, p, p)
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+where(conds), args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users` + where(conds) + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &users, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update writes the profile fields. Balance and counters are never written
// here; they only move through Credit, Debit and trip transitions.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone = ?, password_hash = ?, role = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		user.FullName, user.Phone, user.PasswordHash, user.Role, user.IsActive, ts, user.ID,
	)
	if err != nil {
		return translate(err)
	}
	if n, err := affected(res); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	user.UpdatedAt = ts
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	return translate(err)
}

func (r *UserRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	var out *models.BalanceEntry
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ? AND is_active = TRUE`,
			amount, now(), userID,
		)
		if err != nil {
			return fmt.Errorf("credit balance: %w", translate(err))
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return store.ErrNotFound
		}
		out, err = appendEntryInTx(ctx, tx, userID, amount, entry)
		return err
	})
	return out, err
}

func (r *UserRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	var out *models.BalanceEntry
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = debitInTx(ctx, tx, userID, amount, entry)
		return err
	})
	return out, err
}

// debitInTx takes amount from an active user only if the balance covers it.
// When no row matches it looks the user up again to tell a missing or
// inactive user apart from a short balance.
func debitInTx(ctx context.Context, tx *sqlx.Tx, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - ?, updated_at = ?
		 WHERE id = ? AND is_active = TRUE AND balance >= ?`,
		amount, now(), userID, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var active bool
		err := tx.GetContext(ctx, &active, `SELECT is_active FROM users WHERE id = ?`, userID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check user: %w", err)
		}
		return nil, store.ErrInsufficientFunds
	}
	return appendEntryInTx(ctx, tx, userID, amount.Neg(), entry)
}

func appendEntryInTx(ctx context.Context, tx *sqlx.Tx, userID int64, change decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error) {
	var balance decimal.Decimal
	if err := tx.GetContext(ctx, &balance, `SELECT balance FROM users WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	entry.UserID = userID
	entry.Amount = change
	entry.BalanceAfter = balance
	entry.CreatedAt = now()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO balance_history (user_id, type, amount, balance_after, payment_method, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Type, entry.Amount, entry.BalanceAfter, entry.PaymentMethod, entry.Reference, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record balance history: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &entry, nil
}

func (r *UserRepository) ListBalanceEntries(ctx context.Context, userID int64, offset, limit int) ([]models.BalanceEntry, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM balance_history WHERE user_id = ?`, userID); err != nil {
		return nil, 0, fmt.Errorf("count balance history: %w", err)
	}

	entries := []models.BalanceEntry{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, user_id, type, amount, balance_after, payment_method, reference, created_at
		 FROM balance_history
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list balance history: %w", err)
	}
	return entries, total, nil
}

func (r *UserRepository) SumBalanceEntries(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM balance_history WHERE user_id = ?`, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum balance history: %w", err)
	}
	return sum, nil
}

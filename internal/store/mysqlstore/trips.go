package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

const tripColumns = `id, trip_code, user_id,
	from_station_id, from_station_name, from_station_code,
	to_station_id, to_station_name, to_station_code,
	fare, number_of_passengers, total_amount, status, payment_method, payment_status,
	expires_at, used_at, journey_start_time, journey_end_time, created_at, updated_at`

type tripRow struct {
	ID                 int64                `db:"id"`
	TripCode           string               `db:"trip_code"`
	UserID             int64                `db:"user_id"`
	FromStationID      int64                `db:"from_station_id"`
	FromStationName    string               `db:"from_station_name"`
	FromStationCode    string               `db:"from_station_code"`
	ToStationID        int64                `db:"to_station_id"`
	ToStationName      string               `db:"to_station_name"`
	ToStationCode      string               `db:"to_station_code"`
	Fare               decimal.Decimal      `db:"fare"`
	NumberOfPassengers int                  `db:"number_of_passengers"`
	TotalAmount        decimal.Decimal      `db:"total_amount"`
	Status             models.TripStatus    `db:"status"`
	PaymentMethod      models.PaymentMethod `db:"payment_method"`
	PaymentStatus      models.PaymentStatus `db:"payment_status"`
	ExpiresAt          time.Time            `db:"expires_at"`
	UsedAt             sql.NullTime         `db:"used_at"`
	JourneyStartTime   sql.NullTime         `db:"journey_start_time"`
	JourneyEndTime     sql.NullTime         `db:"journey_end_time"`
	CreatedAt          time.Time            `db:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at"`
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func (row tripRow) toModel() models.Trip {
	return models.Trip{
		ID:                 row.ID,
		TripCode:           row.TripCode,
		UserID:             row.UserID,
		FromStation:        models.StationRef{ID: row.FromStationID, Name: row.FromStationName, Code: row.FromStationCode},
		ToStation:          models.StationRef{ID: row.ToStationID, Name: row.ToStationName, Code: row.ToStationCode},
		Fare:               row.Fare,
		NumberOfPassengers: row.NumberOfPassengers,
		TotalAmount:        row.TotalAmount,
		Status:             row.Status,
		PaymentMethod:      row.PaymentMethod,
		PaymentStatus:      row.PaymentStatus,
		ExpiresAt:          row.ExpiresAt,
		UsedAt:             timePtr(row.UsedAt),
		JourneyStartTime:   timePtr(row.JourneyStartTime),
		JourneyEndTime:     timePtr(row.JourneyEndTime),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

type TripRepository struct {
	db *sqlx.DB
}

func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	ts := now()
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if trip.PaymentMethod == models.PaymentBalance {
			_, err := debitInTx(ctx, tx, trip.UserID, trip.TotalAmount, models.BalanceEntry{
				Type:          models.EntryTripPurchase,
				PaymentMethod: string(models.PaymentBalance),
				Reference:     trip.TripCode,
			})
			if err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO trips (trip_code, user_id,
				from_station_id, from_station_name, from_station_code,
				to_station_id, to_station_name, to_station_code,
				fare, number_of_passengers, total_amount, status, payment_method, payment_status,
				expires_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trip.TripCode, trip.UserID,
			trip.FromStation.ID, trip.FromStation.Name, trip.FromStation.Code,
			trip.ToStation.ID, trip.ToStation.Name, trip.ToStation.Code,
			trip.Fare, trip.NumberOfPassengers, trip.TotalAmount, trip.Status, trip.PaymentMethod, trip.PaymentStatus,
			trip.ExpiresAt.UTC(), ts, ts,
		)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		trip.ID = id
		trip.CreatedAt, trip.UpdatedAt = ts, ts
		return nil
	})
}

func (r *TripRepository) get(ctx context.Context, cond string, arg any) (*models.Trip, error) {
	var row tripRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+tripColumns+` FROM trips WHERE `+cond, arg); err != nil {
		return nil, translate(err)
	}
	t := row.toModel()
	return &t, nil
}

func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *TripRepository) GetByCode(ctx context.Context, code string) (*models.Trip, error) {
	return r.get(ctx, "trip_code = ?", code)
}

// MarkUsed only wins while the row is still created and unexpired. The owner's
// counters move in the same transaction, so a lost race never counts twice.
func (r *TripRepository) MarkUsed(ctx context.Context, trip *models.Trip, at time.Time) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE trips SET status = ?, used_at = ?, journey_start_time = ?, updated_at = ?
			 WHERE id = ? AND status = ? AND expires_at > ?`,
			models.TripUsed, nullTime(trip.UsedAt), nullTime(trip.JourneyStartTime), trip.UpdatedAt.UTC(),
			trip.ID, models.TripCreated, at.UTC(),
		)
		if err != nil {
			return fmt.Errorf("mark trip used: %w", err)
		}
		if n, err := affected(res); err != nil {
			return err
		} else if n == 0 {
			return store.ErrStaleState
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET total_trips = total_trips + 1, total_expense = total_expense + ?, updated_at = ?
			 WHERE id = ?`,
			trip.TotalAmount, at.UTC(), trip.UserID,
		)
		if err != nil {
			return fmt.Errorf("update trip stats: %w", err)
		}
		return nil
	})
}

func (r *TripRepository) MarkExpired(ctx context.Context, trip *models.Trip) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.TripExpired, trip.UpdatedAt.UTC(), trip.ID, models.TripCreated,
	)
	if err != nil {
		return fmt.Errorf("mark trip expired: %w", err)
	}
	if n, err := affected(res); err != nil {
		return err
	} else if n == 0 {
		return store.ErrStaleState
	}
	return nil
}

func (r *TripRepository) CompleteJourney(ctx context.Context, trip *models.Trip) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET journey_end_time = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND journey_end_time IS NULL`,
		nullTime(trip.JourneyEndTime), trip.UpdatedAt.UTC(), trip.ID, models.TripUsed,
	)
	if err != nil {
		return fmt.Errorf("complete journey: %w", err)
	}
	if n, err := affected(res); err != nil {
		return err
	} else if n == 0 {
		return store.ErrStaleState
	}
	return nil
}

func (r *TripRepository) ListByUser(ctx context.Context, userID int64, filter models.TripFilter, offset, limit int) ([]models.Trip, int, error) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM trips`+where(conds), args...); err != nil {
		return nil, 0, fmt.Errorf("count trips: %w", err)
	}

	var rows []tripRow
	query := `SELECT ` + tripColumns + ` FROM trips` + where(conds) + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list trips: %w", err)
	}
	return toTrips(rows), total, nil
}

func (r *TripRepository) ListUnused(ctx context.Context, userID int64, at time.Time) ([]models.Trip, error) {
	var rows []tripRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+tripColumns+` FROM trips
		 WHERE user_id = ? AND status = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC`,
		userID, models.TripCreated, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list unused trips: %w", err)
	}
	return toTrips(rows), nil
}

func toTrips(rows []tripRow) []models.Trip {
	out := make([]models.Trip, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

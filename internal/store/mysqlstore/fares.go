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

const fareSelect = `SELECT f.id, f.from_station_id, f.to_station_id, f.fare_type, f.fare, f.distance, f.duration,
		f.effective_from, f.effective_to, f.is_active, f.created_at, f.updated_at,
		fs.name AS from_name, COALESCE(fs.code, '') AS from_code,
		ts.name AS to_name, COALESCE(ts.code, '') AS to_code
	FROM fares f
	JOIN stations fs ON fs.id = f.from_station_id
	JOIN stations ts ON ts.id = f.to_station_id`

// effectiveCond limits fares to rows whose window contains the bound time.
const effectiveCond = "f.is_active = TRUE AND f.effective_from <= ? AND (f.effective_to IS NULL OR f.effective_to >= ?)"

type fareRow struct {
	ID            int64           `db:"id"`
	FromStationID int64           `db:"from_station_id"`
	ToStationID   int64           `db:"to_station_id"`
	FareType      models.FareType `db:"fare_type"`
	Fare          decimal.Decimal `db:"fare"`
	Distance      float64         `db:"distance"`
	Duration      int             `db:"duration"`
	EffectiveFrom time.Time       `db:"effective_from"`
	EffectiveTo   sql.NullTime    `db:"effective_to"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	FromName      string          `db:"from_name"`
	FromCode      string          `db:"from_code"`
	ToName        string          `db:"to_name"`
	ToCode        string          `db:"to_code"`
}

func (row fareRow) toModel() models.Fare {
	f := models.Fare{
		ID:            row.ID,
		FromStationID: row.FromStationID,
		ToStationID:   row.ToStationID,
		FromStation:   &models.StationRef{ID: row.FromStationID, Name: row.FromName, Code: row.FromCode},
		ToStation:     &models.StationRef{ID: row.ToStationID, Name: row.ToName, Code: row.ToCode},
		FareType:      row.FareType,
		Fare:          row.Fare,
		Distance:      row.Distance,
		Duration:      row.Duration,
		EffectiveFrom: row.EffectiveFrom,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.EffectiveTo.Valid {
		t := row.EffectiveTo.Time
		f.EffectiveTo = &t
	}
	return f
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type FareRepository struct {
	db *sqlx.DB
}

func NewFareRepository(db *sqlx.DB) *FareRepository {
	return &FareRepository{db: db}
}

// Create inserts the fare. The active_route unique key rejects a second
// active fare for the same route and type even if two creates race.
func (r *FareRepository) Create(ctx context.Context, fare *models.Fare) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fares (from_station_id, to_station_id, fare_type, fare, distance, duration,
			effective_from, effective_to, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fare.FromStationID, fare.ToStationID, fare.FareType, fare.Fare, fare.Distance, fare.Duration,
		fare.EffectiveFrom.UTC(), nullTime(fare.EffectiveTo), fare.IsActive, ts, ts,
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*fare = *created
	return nil
}

func (r *FareRepository) getOne(ctx context.Context, query string, args ...any) (*models.Fare, error) {
	var row fareRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, translate(err)
	}
	f := row.toModel()
	return &f, nil
}

func (r *FareRepository) GetByID(ctx context.Context, id int64) (*models.Fare, error) {
	return r.getOne(ctx, fareSelect+` WHERE f.id = ?`, id)
}

func (r *FareRepository) FindEffective(ctx context.Context, from, to int64, fareType models.FareType, at time.Time) (*models.Fare, error) {
	at = at.UTC()
	return r.getOne(ctx,
		fareSelect+` WHERE f.from_station_id = ? AND f.to_station_id = ? AND f.fare_type = ? AND `+effectiveCond+` LIMIT 1`,
		from, to, fareType, at, at,
	)
}

func (r *FareRepository) GetActiveByRoute(ctx context.Context, from, to int64, fareType models.FareType) (*models.Fare, error) {
	return r.getOne(ctx,
		fareSelect+` WHERE f.from_station_id = ? AND f.to_station_id = ? AND f.fare_type = ? AND f.is_active = TRUE LIMIT 1`,
		from, to, fareType,
	)
}

func (r *FareRepository) ListBetween(ctx context.Context, from, to int64, fareType models.FareType, at time.Time) ([]models.Fare, error) {
	at = at.UTC()
	query := fareSelect + ` WHERE f.from_station_id = ? AND f.to_station_id = ? AND ` + effectiveCond
	args := []any{from, to, at, at}
	if fareType != "" {
		query += ` AND f.fare_type = ?`
		args = append(args, fareType)
	}
	query += ` ORDER BY f.fare_type ASC, f.id DESC`

	var rows []fareRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fares between: %w", err)
	}
	return toFares(rows), nil
}

func (r *FareRepository) List(ctx context.Context, filter models.FareFilter, offset, limit int) ([]models.Fare, int, error) {
	var conds []string
	var args []any
	if !filter.IncludeInactive {
		conds = append(conds, "f.is_active = TRUE")
	}
	if filter.FromStationID != 0 {
		conds = append(conds, "f.from_station_id = ?")
		args = append(args, filter.FromStationID)
	}
	if filter.ToStationID != 0 {
		conds = append(conds, "f.to_station_id = ?")
		args = append(args, filter.ToStationID)
	}
	if filter.FareType != "" {
		conds = append(conds, "f.fare_type = ?")
		args = append(args, filter.FareType)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fares f`+where(conds), args...); err != nil {
		return nil, 0, fmt.Errorf("count fares: %w", err)
	}

	var rows []fareRow
	query := fareSelect + where(conds) + ` ORDER BY f.created_at DESC, f.id DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list fares: %w", err)
	}
	return toFares(rows), total, nil
}

// Update writes only the mutable columns; the route and type never change.
func (r *FareRepository) Update(ctx context.Context, fare *models.Fare) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fares SET fare = ?, distance = ?, duration = ?, effective_to = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		fare.Fare, fare.Distance, fare.Duration, nullTime(fare.EffectiveTo), fare.IsActive, now(), fare.ID,
	)
	if err != nil {
		return translate(err)
	}
	if n, err := affected(res); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	updated, err := r.GetByID(ctx, fare.ID)
	if err != nil {
		return err
	}
	*fare = *updated
	return nil
}

func toFares(rows []fareRow) []models.Fare {
	out := make([]models.Fare, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

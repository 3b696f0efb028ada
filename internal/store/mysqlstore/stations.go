package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

const stationColumns = `id, name, code, latitude, longitude, address, zone, facilities, is_active, created_at, updated_at`

type stationRow struct {
	ID         int64             `db:"id"`
	Name       string            `db:"name"`
	Code       sql.NullString    `db:"code"`
	Latitude   sql.NullFloat64   `db:"latitude"`
	Longitude  sql.NullFloat64   `db:"longitude"`
	Address    string            `db:"address"`
	Zone       string            `db:"zone"`
	Facilities models.Facilities `db:"facilities"`
	IsActive   bool              `db:"is_active"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
	DistanceKm sql.NullFloat64   `db:"distance_km"`
}

func (row stationRow) toModel() models.Station {
	st := models.Station{
		ID:         row.ID,
		Name:       row.Name,
		Code:       row.Code.String,
		Address:    row.Address,
		Zone:       row.Zone,
		Facilities: row.Facilities,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		st.Location = &models.GeoPoint{Latitude: row.Latitude.Float64, Longitude: row.Longitude.Float64}
	}
	if row.DistanceKm.Valid {
		d := row.DistanceKm.Float64
		st.DistanceKm = &d
	}
	return st
}

func locationArgs(loc *models.GeoPoint) (sql.NullFloat64, sql.NullFloat64) {
	if loc == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: loc.Latitude, Valid: true}, sql.NullFloat64{Float64: loc.Longitude, Valid: true}
}

type StationRepository struct {
	db *sqlx.DB
}

func NewStationRepository(db *sqlx.DB) *StationRepository {
	return &StationRepository{db: db}
}

func (r *StationRepository) Create(ctx context.Context, st *models.Station) error {
	ts := now()
	st.Facilities = st.Facilities.Normalize()
	lat, lng := locationArgs(st.Location)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stations (name, code, latitude, longitude, address, zone, facilities, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Name, nullString(st.Code), lat, lng, st.Address, st.Zone, st.Facilities, st.IsActive, ts, ts,
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	st.ID = id
	st.CreatedAt, st.UpdatedAt = ts, ts
	return nil
}

func (r *StationRepository) get(ctx context.Context, cond string, arg any) (*models.Station, error) {
	var row stationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+stationColumns+` FROM stations WHERE `+cond, arg); err != nil {
		return nil, translate(err)
	}
	st := row.toModel()
	return &st, nil
}

func (r *StationRepository) GetByID(ctx context.Context, id int64) (*models.Station, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *StationRepository) GetByName(ctx context.Context, name string) (*models.Station, error) {
	return r.get(ctx, "name = ?", name)
}

func (r *StationRepository) GetByCode(ctx context.Context, code string) (*models.Station, error) {
	return r.get(ctx, "code = ?", code)
}

func (r *StationRepository) List(ctx context.Context, filter models.StationFilter, offset, limit int) ([]models.Station, int, error) {
	var conds []string
	var args []any
	if !filter.IncludeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.Zone != "" {
		conds = append(conds, "zone = ?")
		args = append(args, filter.Zone)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		conds = append(conds, "(name LIKE ? OR code LIKE ? OR address LIKE ?)")
		args = append(args, p, p, p)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stations`+where(conds), args...); err != nil {
		return nil, 0, fmt.Errorf("count stations: %w", err)
	}

	var rows []stationRow
	query := `SELECT ` + stationColumns + ` FROM stations` + where(conds) + ` ORDER BY name ASC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list stations: %w", err)
	}
	return toStations(rows), total, nil
}

// Nearby returns active stations within radiusKm of the point, closest first.
func (r *StationRepository) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.Station, error) {
	var rows []stationRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+stationColumns+`,
			ST_Distance_Sphere(POINT(longitude, latitude), POINT(?, ?)) / 1000 AS distance_km
		 FROM stations
		 WHERE is_active = TRUE AND latitude IS NOT NULL AND longitude IS NOT NULL
		 HAVING distance_km <= ?
		 ORDER BY distance_km ASC
		 LIMIT ?`,
		lng, lat, radiusKm, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearby stations: %w", err)
	}
	return toStations(rows), nil
}

func (r *StationRepository) Update(ctx context.Context, st *models.Station) error {
	ts := now()
	st.Facilities = st.Facilities.Normalize()
	lat, lng := locationArgs(st.Location)
	res, err := r.db.ExecContext(ctx,
		`UPDATE stations SET name = ?, code = ?, latitude = ?, longitude = ?, address = ?, zone = ?,
			facilities = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		st.Name, nullString(st.Code), lat, lng, st.Address, st.Zone, st.Facilities, st.IsActive, ts, st.ID,
	)
	if err != nil {
		return translate(err)
	}
	if n, err := affected(res); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	st.UpdatedAt = ts
	return nil
}

func toStations(rows []stationRow) []models.Station {
	out := make([]models.Station, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

package store

import (
	"context"
	"database/sql"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

func (r *Repository) CreateLocation(ctx context.Context, l domain.Location) error {
	const q = `INSERT INTO locations
	           (tenant_id, location_id, name, has_coordinates, lat, lng, check_in_radius_meters, extra, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.engine.helper.Exec(ctx, q,
		l.TenantID, l.LocationID, l.Name, boolToInt(l.HasCoordinates), l.Lat, l.Lng,
		l.CheckInRadiusMeters, encodeExtra(l.Extra), formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	return r.engine.mapErr(err)
}

func (r *Repository) GetLocation(ctx context.Context, tenantID, locationID string) (domain.Location, error) {
	const q = `SELECT tenant_id, location_id, name, has_coordinates, lat, lng, check_in_radius_meters, extra, created_at, updated_at
	           FROM locations WHERE tenant_id = ? AND location_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, locationID)
	return scanLocation(row)
}

func (r *Repository) ListLocations(ctx context.Context, tenantID string) ([]domain.Location, error) {
	const q = `SELECT tenant_id, location_id, name, has_coordinates, lat, lng, check_in_radius_meters, extra, created_at, updated_at
	           FROM locations WHERE tenant_id = ? ORDER BY location_id`
	rows, err := r.engine.helper.Query(ctx, q, tenantID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateLocation(ctx context.Context, l domain.Location) error {
	const q = `UPDATE locations SET name = ?, has_coordinates = ?, lat = ?, lng = ?, check_in_radius_meters = ?, extra = ?, updated_at = ?
	           WHERE tenant_id = ? AND location_id = ?`
	res, err := r.engine.helper.Exec(ctx, q,
		l.Name, boolToInt(l.HasCoordinates), l.Lat, l.Lng, l.CheckInRadiusMeters, encodeExtra(l.Extra), formatTime(l.UpdatedAt),
		l.TenantID, l.LocationID)
	if err != nil {
		return r.engine.mapErr(err)
	}
	return requireRowsAffected(res, apperrors.ErrNotFound)
}

func (r *Repository) DeleteLocation(ctx context.Context, tenantID, locationID string) error {
	const q = `DELETE FROM locations WHERE tenant_id = ? AND location_id = ?`
	res, err := r.engine.helper.Exec(ctx, q, tenantID, locationID)
	if err != nil {
		return r.engine.mapErr(err)
	}
	return requireRowsAffected(res, apperrors.ErrNotFound)
}

func scanLocation(s scannable) (domain.Location, error) {
	var (
		l                  domain.Location
		hasCoords          int
		extra              string
		createdAt, updated string
	)
	if err := s.Scan(&l.TenantID, &l.LocationID, &l.Name, &hasCoords, &l.Lat, &l.Lng,
		&l.CheckInRadiusMeters, &extra, &createdAt, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.Location{}, apperrors.ErrNotFound
		}
		return domain.Location{}, err
	}
	l.HasCoordinates = hasCoords != 0
	l.Extra = decodeExtra(extra)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updated)
	return l, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

const exceptionSelect = `SELECT tenant_id, schedule_id, occurrence_date, type, override_start, override_end,
	has_override_cap, override_capacity, override_hosts, override_location, extra, created_at, updated_at
	FROM schedule_exceptions`

func (r *Repository) GetException(ctx context.Context, tenantID, scheduleID, date string) (domain.ScheduleException, error) {
	const q = exceptionSelect + ` WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, scheduleID, date)
	return scanException(row)
}

// ListExceptionsInRange returns exceptions for scheduleID whose occurrence
// date falls within [startDate, endDate] inclusive (YYYY-MM-DD strings,
// comparable lexicographically).
func (r *Repository) ListExceptionsInRange(ctx context.Context, tenantID, scheduleID, startDate, endDate string) ([]domain.ScheduleException, error) {
	const q = exceptionSelect + ` WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date BETWEEN ? AND ?
	           ORDER BY occurrence_date`
	rows, err := r.engine.helper.Query(ctx, q, tenantID, scheduleID, startDate, endDate)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.ScheduleException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertException(ctx context.Context, e domain.ScheduleException) error {
	const q = `INSERT INTO schedule_exceptions
	           (tenant_id, schedule_id, occurrence_date, type, override_start, override_end,
	            has_override_cap, override_capacity, override_hosts, override_location, extra, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON CONFLICT (tenant_id, schedule_id, occurrence_date) DO UPDATE SET
	             type = excluded.type, override_start = excluded.override_start, override_end = excluded.override_end,
	             has_override_cap = excluded.has_override_cap, override_capacity = excluded.override_capacity,
	             override_hosts = excluded.override_hosts, override_location = excluded.override_location,
	             extra = excluded.extra, updated_at = excluded.updated_at`
	_, err := r.engine.helper.Exec(ctx, q,
		e.TenantID, e.ScheduleID, e.OccurrenceDate, string(e.Type), e.OverrideStart, e.OverrideEnd,
		boolToInt(e.HasOverrideCap), e.OverrideCapacity, encodeHosts(e.OverrideHosts), e.OverrideLocation,
		encodeExtra(e.Extra), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	return r.engine.mapErr(err)
}

func (r *Repository) DeleteException(ctx context.Context, tenantID, scheduleID, date string) error {
	const q = `DELETE FROM schedule_exceptions WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date = ?`
	res, err := r.engine.helper.Exec(ctx, q, tenantID, scheduleID, date)
	if err != nil {
		return r.engine.mapErr(err)
	}
	return requireRowsAffected(res, apperrors.ErrNotFound)
}

func scanException(s scannable) (domain.ScheduleException, error) {
	var (
		e                  domain.ScheduleException
		typ                string
		hasCap             int
		hosts, extra       string
		createdAt, updated string
	)
	if err := s.Scan(&e.TenantID, &e.ScheduleID, &e.OccurrenceDate, &typ, &e.OverrideStart, &e.OverrideEnd,
		&hasCap, &e.OverrideCapacity, &hosts, &e.OverrideLocation, &extra, &createdAt, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.ScheduleException{}, apperrors.ErrNotFound
		}
		return domain.ScheduleException{}, err
	}
	e.Type = domain.ExceptionType(typ)
	e.HasOverrideCap = hasCap != 0
	e.OverrideHosts = decodeHosts(hosts)
	e.Extra = decodeExtra(extra)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

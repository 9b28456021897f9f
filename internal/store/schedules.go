package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

func (r *Repository) CreateSchedule(ctx context.Context, s domain.Schedule) error {
	const q = `INSERT INTO schedules
	           (tenant_id, schedule_id, type, program_id, location_id, timezone, start_local, end_local,
	            is_recurring, rrule, has_capacity, base_capacity, hosts, tags, extra, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.engine.RunTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.engine.helper.ExecTx(tx, q,
			s.TenantID, s.ScheduleID, string(s.Type), s.ProgramID, s.LocationID, s.Timezone, s.Start, s.End,
			boolToInt(s.IsRecurring), s.RRule, boolToInt(s.HasCapacity), s.BaseCapacity,
			encodeHosts(s.Hosts), encodeStrings(s.Tags), encodeExtra(s.Extra),
			formatTime(s.CreatedAt), formatTime(s.UpdatedAt)); err != nil {
			return r.engine.mapErr(err)
		}
		return r.replaceScheduleHosts(tx, s.TenantID, s.ScheduleID, s.Hosts)
	})
}

func (r *Repository) GetSchedule(ctx context.Context, tenantID, scheduleID string) (domain.Schedule, error) {
	const q = scheduleSelect + ` WHERE tenant_id = ? AND schedule_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, scheduleID)
	return scanSchedule(row)
}

// ListSchedules returns every schedule for tenantID, optionally narrowed to
// the given programIDs (empty slice = no narrowing) and to schedules that
// carry hostID among their hosts, per spec.md §4.7 step 2. The host
// narrowing is pushed down as a join against schedule_hosts, indexed by
// (tenant_id, host_id), instead of fetching every schedule in the tenant and
// filtering the decoded Hosts slice in-process.
func (r *Repository) ListSchedules(ctx context.Context, tenantID string, programIDs []string, hostID string) ([]domain.Schedule, error) {
	q := "SELECT " + scheduleColumnsPrefixed + " FROM schedules s"
	args := []any{tenantID}
	var conditions []string
	if hostID != "" {
		q += " JOIN schedule_hosts sh ON sh.tenant_id = s.tenant_id AND sh.schedule_id = s.schedule_id"
		conditions = append(conditions, "sh.host_id = ?")
		args = append(args, hostID)
	}
	q += " WHERE s.tenant_id = ?"
	if len(programIDs) > 0 {
		placeholders := make([]string, len(programIDs))
		for i, id := range programIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("s.program_id IN (%s)", strings.Join(placeholders, ",")))
	}
	for _, cond := range conditions {
		q += " AND " + cond
	}
	q += " ORDER BY s.schedule_id"

	rows, err := r.engine.helper.Query(ctx, q, args...)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateSchedule(ctx context.Context, s domain.Schedule) error {
	const q = `UPDATE schedules SET type = ?, program_id = ?, location_id = ?, timezone = ?, start_local = ?, end_local = ?,
	           is_recurring = ?, rrule = ?, has_capacity = ?, base_capacity = ?, hosts = ?, tags = ?, extra = ?, updated_at = ?
	           WHERE tenant_id = ? AND schedule_id = ?`
	return r.engine.RunTx(ctx, func(tx *sql.Tx) error {
		res, err := r.engine.helper.ExecTx(tx, q,
			string(s.Type), s.ProgramID, s.LocationID, s.Timezone, s.Start, s.End,
			boolToInt(s.IsRecurring), s.RRule, boolToInt(s.HasCapacity), s.BaseCapacity,
			encodeHosts(s.Hosts), encodeStrings(s.Tags), encodeExtra(s.Extra), formatTime(s.UpdatedAt),
			s.TenantID, s.ScheduleID)
		if err != nil {
			return r.engine.mapErr(err)
		}
		if err := requireRowsAffected(res, apperrors.ErrNotFound); err != nil {
			return err
		}
		return r.replaceScheduleHosts(tx, s.TenantID, s.ScheduleID, s.Hosts)
	})
}

func (r *Repository) DeleteSchedule(ctx context.Context, tenantID, scheduleID string) error {
	return r.engine.RunTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.engine.helper.ExecTx(tx, `DELETE FROM schedule_hosts WHERE tenant_id = ? AND schedule_id = ?`,
			tenantID, scheduleID); err != nil {
			return r.engine.mapErr(err)
		}
		res, err := r.engine.helper.ExecTx(tx, `DELETE FROM schedules WHERE tenant_id = ? AND schedule_id = ?`,
			tenantID, scheduleID)
		if err != nil {
			return r.engine.mapErr(err)
		}
		return requireRowsAffected(res, apperrors.ErrNotFound)
	})
}

// replaceScheduleHosts rewrites schedule_hosts to match hosts: delete every
// row for scheduleID, then reinsert one row per host. Same shape as the
// teacher's insertParticipants/schedule_participants handling in
// schedule_repository.go.
func (r *Repository) replaceScheduleHosts(tx *sql.Tx, tenantID, scheduleID string, hosts []domain.Host) error {
	if _, err := r.engine.helper.ExecTx(tx, `DELETE FROM schedule_hosts WHERE tenant_id = ? AND schedule_id = ?`,
		tenantID, scheduleID); err != nil {
		return r.engine.mapErr(err)
	}
	for _, h := range hosts {
		if _, err := r.engine.helper.ExecTx(tx,
			`INSERT INTO schedule_hosts (tenant_id, schedule_id, host_id) VALUES (?, ?, ?)`,
			tenantID, scheduleID, h.ID); err != nil {
			return r.engine.mapErr(err)
		}
	}
	return nil
}

const scheduleSelect = `SELECT tenant_id, schedule_id, type, program_id, location_id, timezone, start_local, end_local,
	is_recurring, rrule, has_capacity, base_capacity, hosts, tags, extra, created_at, updated_at
	FROM schedules`

// scheduleColumnsPrefixed is scheduleSelect's column list qualified with the
// "s" alias, for queries that join schedules against another table whose
// column names would otherwise collide (schedule_hosts shares tenant_id and
// schedule_id).
const scheduleColumnsPrefixed = `s.tenant_id, s.schedule_id, s.type, s.program_id, s.location_id, s.timezone,
	s.start_local, s.end_local, s.is_recurring, s.rrule, s.has_capacity, s.base_capacity, s.hosts, s.tags, s.extra,
	s.created_at, s.updated_at`

func scanSchedule(s scannable) (domain.Schedule, error) {
	var (
		sch                       domain.Schedule
		typ                       string
		isRecurring, hasCapacity  int
		hosts, tags, extra        string
		createdAt, updated        string
	)
	if err := s.Scan(&sch.TenantID, &sch.ScheduleID, &typ, &sch.ProgramID, &sch.LocationID, &sch.Timezone,
		&sch.Start, &sch.End, &isRecurring, &sch.RRule, &hasCapacity, &sch.BaseCapacity,
		&hosts, &tags, &extra, &createdAt, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.Schedule{}, apperrors.ErrNotFound
		}
		return domain.Schedule{}, err
	}
	sch.Type = domain.ScheduleType(typ)
	sch.IsRecurring = isRecurring != 0
	sch.HasCapacity = hasCapacity != 0
	sch.Hosts = decodeHosts(hosts)
	sch.Tags = decodeStrings(tags)
	sch.Extra = decodeExtra(extra)
	sch.CreatedAt = parseTime(createdAt)
	sch.UpdatedAt = parseTime(updated)
	return sch, nil
}

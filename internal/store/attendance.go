package store

import (
	"context"
	"database/sql"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

const attendanceSelect = `SELECT tenant_id, session_id, booking_id, status, check_in_time, check_in_method,
	has_coords, check_in_lat, check_in_lng, created_at, updated_at
	FROM attendance_records`

func (r *Repository) GetAttendance(ctx context.Context, tenantID, sessionID, bookingID string) (domain.AttendanceRecord, bool, error) {
	const q = attendanceSelect + ` WHERE tenant_id = ? AND session_id = ? AND booking_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, sessionID, bookingID)
	rec, err := scanAttendance(row)
	if err == apperrors.ErrNotFound {
		return domain.AttendanceRecord{}, false, nil
	}
	if err != nil {
		return domain.AttendanceRecord{}, false, err
	}
	return rec, true, nil
}

// ListAttendanceBySession returns every attendance record for sessionID,
// the roster view a host or admin uses to see who has checked in.
func (r *Repository) ListAttendanceBySession(ctx context.Context, tenantID, sessionID string) ([]domain.AttendanceRecord, error) {
	const q = attendanceSelect + ` WHERE tenant_id = ? AND session_id = ? ORDER BY created_at`
	rows, err := r.engine.helper.Query(ctx, q, tenantID, sessionID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

// ListAttendanceBySubject returns every attendance record belonging to
// subjectID's bookings, joining through bookings since attendance rows
// carry no subject_id of their own (spec.md §3: attendance keyed by
// session+booking; subject ownership flows through the booking row).
func (r *Repository) ListAttendanceBySubject(ctx context.Context, tenantID, subjectID string) ([]domain.AttendanceRecord, error) {
	const q = `SELECT a.tenant_id, a.session_id, a.booking_id, a.status, a.check_in_time, a.check_in_method,
	           a.has_coords, a.check_in_lat, a.check_in_lng, a.created_at, a.updated_at
	           FROM attendance_records a
	           JOIN bookings b ON b.tenant_id = a.tenant_id AND b.session_id = a.session_id AND b.booking_id = a.booking_id
	           WHERE a.tenant_id = ? AND b.subject_id = ?
	           ORDER BY a.created_at`
	rows, err := r.engine.helper.Query(ctx, q, tenantID, subjectID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

func collectAttendance(rows *sql.Rows) ([]domain.AttendanceRecord, error) {
	var out []domain.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertAttendance writes rec, creating the row on first check-in or
// replacing it on an administrative override (spec.md §4.6 lifecycle: "one
// per booking", "updated only by administrative override").
func (r *Repository) UpsertAttendance(ctx context.Context, rec domain.AttendanceRecord) error {
	checkInTime := ""
	if rec.CheckInTime != nil {
		checkInTime = formatTime(*rec.CheckInTime)
	}
	const q = `INSERT INTO attendance_records
	           (tenant_id, session_id, booking_id, status, check_in_time, check_in_method, has_coords, check_in_lat, check_in_lng, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON CONFLICT (tenant_id, session_id, booking_id) DO UPDATE SET
	             status = excluded.status, check_in_time = excluded.check_in_time, check_in_method = excluded.check_in_method,
	             has_coords = excluded.has_coords, check_in_lat = excluded.check_in_lat, check_in_lng = excluded.check_in_lng,
	             updated_at = excluded.updated_at`
	_, err := r.engine.helper.Exec(ctx, q,
		rec.TenantID, rec.SessionID, rec.BookingID, string(rec.Status), checkInTime, string(rec.CheckInMethod),
		boolToInt(rec.HasCoords), rec.CheckInLat, rec.CheckInLng, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	return r.engine.mapErr(err)
}

func scanAttendance(s scannable) (domain.AttendanceRecord, error) {
	var (
		rec                      domain.AttendanceRecord
		status, method           string
		hasCoords                int
		checkInTime              string
		createdAt, updated       string
	)
	if err := s.Scan(&rec.TenantID, &rec.SessionID, &rec.BookingID, &status, &checkInTime, &method,
		&hasCoords, &rec.CheckInLat, &rec.CheckInLng, &createdAt, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.AttendanceRecord{}, apperrors.ErrNotFound
		}
		return domain.AttendanceRecord{}, err
	}
	rec.Status = domain.AttendanceStatus(status)
	rec.CheckInMethod = domain.CheckInMethod(method)
	rec.HasCoords = hasCoords != 0
	rec.CheckInTime = parseTimePtr(checkInTime)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updated)
	return rec, nil
}

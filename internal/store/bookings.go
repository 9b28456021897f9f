package store

import (
	"context"
	"database/sql"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

const bookingSelect = `SELECT tenant_id, session_id, booking_id, subject_id, subject_type, status, source, notes, extra, created_at, cancelled_at
	FROM bookings`

// InsertBookingTx inserts b, failing with apperrors.ErrStoreConflict if a
// booking with the same (tenantId, sessionId, bookingId) already exists —
// the "not exists" condition spec.md §4.5 step 3 requires.
func (r *Repository) InsertBookingTx(tx *sql.Tx, b domain.Booking) error {
	cancelledAt := ""
	if b.CancelledAt != nil {
		cancelledAt = formatTime(*b.CancelledAt)
	}
	_, err := tx.Exec(`INSERT INTO bookings
	                    (tenant_id, session_id, booking_id, subject_id, subject_type, status, source, notes, extra, created_at, cancelled_at)
	                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.TenantID, b.SessionID, b.BookingID, b.SubjectID, b.SubjectType, string(b.Status),
		b.Source, b.Notes, encodeExtra(b.Extra), formatTime(b.CreatedAt), cancelledAt)
	if err != nil {
		return apperrors.ErrStoreConflict
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, tenantID, sessionID, bookingID string) (domain.Booking, error) {
	const q = bookingSelect + ` WHERE tenant_id = ? AND session_id = ? AND booking_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, sessionID, bookingID)
	return scanBooking(row)
}

// GetBookingByID locates a booking by id alone within tenantID, the lookup
// spec.md §4.5 Cancel step 1 describes as "scan/index on tenantId filtered
// by bookingId".
func (r *Repository) GetBookingByID(ctx context.Context, tenantID, bookingID string) (domain.Booking, error) {
	const q = bookingSelect + ` WHERE tenant_id = ? AND booking_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, bookingID)
	return scanBooking(row)
}

// FindActiveBookingBySubject returns the non-cancelled booking for subjectID
// on sessionID, if any, for the duplicate-booking check (spec.md §4.5 step 2).
func (r *Repository) FindActiveBookingBySubject(ctx context.Context, tenantID, sessionID, subjectID string) (domain.Booking, bool, error) {
	const q = bookingSelect + ` WHERE tenant_id = ? AND session_id = ? AND subject_id = ? AND status != ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, sessionID, subjectID, string(domain.BookingCancelled))
	b, err := scanBooking(row)
	if err == apperrors.ErrNotFound {
		return domain.Booking{}, false, nil
	}
	if err != nil {
		return domain.Booking{}, false, err
	}
	return b, true, nil
}

// ListBookingsBySubject returns all bookings for subjectID ordered by
// creation time ascending (spec.md §3 secondary lookup).
func (r *Repository) ListBookingsBySubject(ctx context.Context, tenantID, subjectID string) ([]domain.Booking, error) {
	const q = bookingSelect + ` WHERE tenant_id = ? AND subject_id = ? ORDER BY created_at`
	rows, err := r.engine.helper.Query(ctx, q, tenantID, subjectID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBookingsBySession returns all bookings for sessionID ordered by
// creation time ascending, for the admin/host roster view of a session.
func (r *Repository) ListBookingsBySession(ctx context.Context, tenantID, sessionID string) ([]domain.Booking, error) {
	const q = bookingSelect + ` WHERE tenant_id = ? AND session_id = ? ORDER BY created_at`
	rows, err := r.engine.helper.Query(ctx, q, tenantID, sessionID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CancelBookingTx transitions a CONFIRMED or WAITLIST booking to CANCELLED,
// conditional on the row not already being cancelled (spec.md §4.5 Cancel
// step 4).
func (r *Repository) CancelBookingTx(tx *sql.Tx, tenantID, sessionID, bookingID, cancelledAt string) error {
	res, err := tx.Exec(`UPDATE bookings SET status = ?, cancelled_at = ?
	                      WHERE tenant_id = ? AND session_id = ? AND booking_id = ? AND status != ?`,
		string(domain.BookingCancelled), cancelledAt, tenantID, sessionID, bookingID, string(domain.BookingCancelled))
	if err != nil {
		return err
	}
	return requireRowsAffected(res, apperrors.ErrAlreadyCancelled)
}

func scanBooking(s scannable) (domain.Booking, error) {
	var (
		b                      domain.Booking
		status, extra          string
		createdAt, cancelledAt string
	)
	if err := s.Scan(&b.TenantID, &b.SessionID, &b.BookingID, &b.SubjectID, &b.SubjectType, &status,
		&b.Source, &b.Notes, &extra, &createdAt, &cancelledAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Booking{}, apperrors.ErrNotFound
		}
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.Extra = decodeExtra(extra)
	b.CreatedAt = parseTime(createdAt)
	b.CancelledAt = parseTimePtr(cancelledAt)
	return b, nil
}

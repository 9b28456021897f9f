package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

const summarySelect = `SELECT tenant_id, session_id, date, has_capacity, capacity, booked_count, waitlist_count, updated_at
	FROM session_summaries`

func (r *Repository) GetSessionSummary(ctx context.Context, tenantID, sessionID string) (domain.SessionSummary, error) {
	const q = summarySelect + ` WHERE tenant_id = ? AND session_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, sessionID)
	return scanSummary(row)
}

// BatchGetSessionSummaries fetches summaries for sessionIDs in chunks of at
// most 100 per query, per spec.md §4.7 step 5. The whole batch runs inside a
// single read-only transaction so a booking that commits between two chunks
// can't make the result mix pre- and post-booking counts for different
// sessions in the same response.
func (r *Repository) BatchGetSessionSummaries(ctx context.Context, tenantID string, sessionIDs []string) (map[string]domain.SessionSummary, error) {
	out := make(map[string]domain.SessionSummary, len(sessionIDs))
	const chunkSize = 100

	err := r.engine.RunReadOnlyTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(sessionIDs); start += chunkSize {
			end := start + chunkSize
			if end > len(sessionIDs) {
				end = len(sessionIDs)
			}
			chunk := sessionIDs[start:end]

			placeholders := make([]string, len(chunk))
			args := make([]any, 0, len(chunk)+1)
			args = append(args, tenantID)
			for i, id := range chunk {
				placeholders[i] = "?"
				args = append(args, id)
			}
			q := summarySelect + fmt.Sprintf(` WHERE tenant_id = ? AND session_id IN (%s)`, strings.Join(placeholders, ","))

			rows, err := r.engine.helper.QueryTx(tx, q, args...)
			if err != nil {
				return r.engine.mapErr(err)
			}
			for rows.Next() {
				sum, err := scanSummary(rows)
				if err != nil {
					rows.Close()
					return err
				}
				out[sum.SessionID] = sum
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetSessionSummaryTx reads the current summary row within tx, returning
// (zero, false, nil) when no row exists yet (the capacity ledger treats an
// absent row as bookedCount=0/unbounded per spec.md §4.4).
func (r *Repository) GetSessionSummaryTx(tx *sql.Tx, tenantID, sessionID string) (domain.SessionSummary, bool, error) {
	row := tx.QueryRow(summarySelect+` WHERE tenant_id = ? AND session_id = ?`, tenantID, sessionID)
	sum, err := scanSummary(row)
	if err == apperrors.ErrNotFound {
		return domain.SessionSummary{}, false, nil
	}
	if err != nil {
		return domain.SessionSummary{}, false, err
	}
	return sum, true, nil
}

// ReserveTx implements the Capacity Ledger's reserve operation (spec.md
// §4.4): conditional increment of bookedCount, upserting the summary row.
// hasCapacity=false means unlimited (no capacity condition applied).
func (r *Repository) ReserveTx(tx *sql.Tx, tenantID, sessionID, date string, hasCapacity bool, capacity int, updatedAt string) error {
	existing, ok, err := r.GetSessionSummaryTx(tx, tenantID, sessionID)
	if err != nil {
		return err
	}

	if !ok {
		if hasCapacity && capacity < 1 {
			return apperrors.ErrAtCapacity
		}
		_, err := tx.Exec(`INSERT INTO session_summaries
		                    (tenant_id, session_id, date, has_capacity, capacity, booked_count, waitlist_count, updated_at)
		                    VALUES (?, ?, ?, ?, ?, 1, 0, ?)`,
			tenantID, sessionID, date, boolToInt(hasCapacity), capacity, updatedAt)
		return err
	}

	if hasCapacity && existing.BookedCount >= capacity {
		return apperrors.ErrAtCapacity
	}

	res, err := tx.Exec(`UPDATE session_summaries SET booked_count = booked_count + 1, has_capacity = ?, capacity = ?, updated_at = ?
	                      WHERE tenant_id = ? AND session_id = ? AND (? = 0 OR booked_count < ?)`,
		boolToInt(hasCapacity), capacity, updatedAt,
		tenantID, sessionID, boolToInt(hasCapacity), capacity)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, apperrors.ErrAtCapacity)
}

// ReleaseTx implements the Capacity Ledger's release operation (spec.md
// §4.4): conditional decrement of bookedCount, failing with
// apperrors.ErrCounterUnderflow if the counter is already zero or absent.
func (r *Repository) ReleaseTx(tx *sql.Tx, tenantID, sessionID, updatedAt string) error {
	res, err := tx.Exec(`UPDATE session_summaries SET booked_count = booked_count - 1, updated_at = ?
	                      WHERE tenant_id = ? AND session_id = ? AND booked_count > 0`,
		updatedAt, tenantID, sessionID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, apperrors.ErrCounterUnderflow)
}

func scanSummary(s scannable) (domain.SessionSummary, error) {
	var (
		sum        domain.SessionSummary
		hasCap     int
		updatedStr string
	)
	if err := s.Scan(&sum.TenantID, &sum.SessionID, &sum.Date, &hasCap, &sum.Capacity,
		&sum.BookedCount, &sum.WaitlistCount, &updatedStr); err != nil {
		if err == sql.ErrNoRows {
			return domain.SessionSummary{}, apperrors.ErrNotFound
		}
		return domain.SessionSummary{}, err
	}
	sum.HasCapacity = hasCap != 0
	sum.UpdatedAt = parseTime(updatedStr)
	return sum, nil
}

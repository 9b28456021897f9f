package store

import (
	"database/sql"
	"errors"

	"github.com/example/session-scheduler/internal/apperrors"
)

// mapErr translates a raw database/sql or sqlite driver error into the
// taxonomy internal/apperrors defines, the way the teacher's ErrorMapper
// translates SQLite errors into persistence-layer sentinels.
func (e *Engine) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrNotFound
	}

	mapped := e.mapper.MapError(err)
	msg := mapped.Error()
	switch {
	case containsAny(msg, "duplicate record", "UNIQUE constraint"):
		return apperrors.ErrStoreConflict
	case containsAny(msg, "database locked", "database is busy", "constraint violation", "foreign key violation"):
		return apperrors.ErrStoreUnavailable
	default:
		return mapped
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if len(sub) > 0 && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// requireRowsAffected returns notFound if res reports zero rows changed,
// the idiom every conditional UPDATE/DELETE in this package uses instead of
// trusting the statement succeeded just because Exec didn't error.
func requireRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Package capacity implements the Capacity Ledger (spec.md §4.4): a
// per-session bookedCount counter kept in the SessionSummary row, reserved
// and released under a conditional write composed into the Booking Engine's
// transaction.
package capacity

import (
	"database/sql"

	"github.com/example/session-scheduler/internal/store"
)

// Ledger performs the conditional counter operations against a single
// *sql.Tx, so callers (the Booking Engine) can compose them with the other
// writes of a booking create/cancel into one atomic transaction.
type Ledger struct {
	repo *store.Repository
}

// New returns a Ledger backed by repo.
func New(repo *store.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Reserve increments sessionID's bookedCount by one within tx, enforcing
// hasCapacity/capacity as the bound (absent capacity means unlimited).
// Returns apperrors.ErrAtCapacity when the bound is already reached.
func (l *Ledger) Reserve(tx *sql.Tx, tenantID, sessionID, date string, hasCapacity bool, capacity int, updatedAt string) error {
	return l.repo.ReserveTx(tx, tenantID, sessionID, date, hasCapacity, capacity, updatedAt)
}

// Release decrements sessionID's bookedCount by one within tx. Returns
// apperrors.ErrCounterUnderflow if the counter is already zero or absent,
// which spec.md §4.4 treats as a logic error rather than an expected
// condition.
func (l *Ledger) Release(tx *sql.Tx, tenantID, sessionID, updatedAt string) error {
	return l.repo.ReleaseTx(tx, tenantID, sessionID, updatedAt)
}

package capacity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/capacity"
	"github.com/example/session-scheduler/internal/testfixtures"
)

func TestReserveEnforcesBound(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ledger := capacity.New(repo)
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	reserve := func() error {
		return repo.RunTx(ctx, func(tx *sql.Tx) error {
			return ledger.Reserve(tx, "t1", "sess#2025-01-01", "2025-01-01", true, 2, now)
		})
	}

	if err := reserve(); err != nil {
		t.Fatalf("reserve 1: %v", err)
	}
	if err := reserve(); err != nil {
		t.Fatalf("reserve 2: %v", err)
	}
	if err := reserve(); apperrors.Kind(err) != "AtCapacity" {
		t.Fatalf("reserve 3 = %v, want AtCapacity", err)
	}
}

func TestUnlimitedCapacityNeverBlocks(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ledger := capacity.New(repo)
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	for i := 0; i < 5; i++ {
		err := repo.RunTx(ctx, func(tx *sql.Tx) error {
			return ledger.Reserve(tx, "t1", "sess#unlimited", "2025-01-01", false, 0, now)
		})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
}

func TestReleaseUnderflow(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ledger := capacity.New(repo)
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := repo.RunTx(ctx, func(tx *sql.Tx) error {
		return ledger.Release(tx, "t1", "sess#never-booked", now)
	})
	if apperrors.Kind(err) != "CounterUnderflow" {
		t.Fatalf("release on absent row = %v, want CounterUnderflow", err)
	}
}

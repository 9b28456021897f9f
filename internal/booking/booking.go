// Package booking implements the Booking Engine (spec.md §4.5): create and
// cancel protocols that coordinate the store with the Capacity Ledger inside
// a single transaction, enforcing idempotency against duplicate requests.
package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/capacity"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/materializer"
	"github.com/example/session-scheduler/internal/store"
)

// Service coordinates booking create/cancel over a store.Repository and a
// capacity.Ledger.
type Service struct {
	repo   *store.Repository
	ledger *capacity.Ledger
	now    func() time.Time
	newID  func() string
}

// New returns a Service with the given dependencies. now and newID default
// to time.Now and uuid.NewString when nil, letting tests supply
// deterministic fakes.
func New(repo *store.Repository, ledger *capacity.Ledger, now func() time.Time, newID func() string) *Service {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{repo: repo, ledger: ledger, now: now, newID: newID}
}

// CreateInput carries the Create protocol's inputs (spec.md §4.5).
type CreateInput struct {
	TenantID    string
	SessionID   string
	SubjectID   string
	SubjectType string
	Source      string
	Notes       string
	Extra       map[string]any
}

// Create runs the spec.md §4.5 Create protocol: resolve the session,
// duplicate-check, then transact a booking insert with a capacity reserve.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	scheduleID, date, err := splitSessionID(in.SessionID)
	if err != nil {
		return domain.Booking{}, err
	}

	schedule, err := s.repo.GetSchedule(ctx, in.TenantID, scheduleID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%w: schedule not found", apperrors.ErrNotFound)
	}

	var exceptionPtr *domain.ScheduleException
	exception, err := s.repo.GetException(ctx, in.TenantID, scheduleID, date)
	switch apperrors.Kind(err) {
	case "":
		if exception.Type == domain.ExceptionCancelled {
			return domain.Booking{}, fmt.Errorf("%w: occurrence cancelled", apperrors.ErrNotFound)
		}
		exceptionPtr = &exception
	case "NotFound":
		// no exception for this date
	default:
		return domain.Booking{}, err
	}

	capacityValue, hasCapacity := materializer.ResolvedCapacity(schedule, exceptionPtr)

	subjectType := in.SubjectType
	if subjectType == "" {
		subjectType = "MEMBER"
	}

	if existing, ok, err := s.repo.FindActiveBookingBySubject(ctx, in.TenantID, in.SessionID, in.SubjectID); err != nil {
		return domain.Booking{}, err
	} else if ok {
		return existing, apperrors.ErrAlreadyBooked
	}

	booking := domain.Booking{
		TenantID:    in.TenantID,
		SessionID:   in.SessionID,
		BookingID:   s.newID(),
		SubjectID:   in.SubjectID,
		SubjectType: subjectType,
		Status:      domain.BookingConfirmed,
		Source:      in.Source,
		Notes:       in.Notes,
		Extra:       in.Extra,
		CreatedAt:   s.now().UTC(),
	}

	nowStr := booking.CreatedAt.Format(time.RFC3339Nano)
	err = s.repo.RunTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.InsertBookingTx(tx, booking); err != nil {
			return err
		}
		return s.ledger.Reserve(tx, in.TenantID, in.SessionID, date, hasCapacity, capacityValue, nowStr)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return booking, nil
}

// Cancel runs the spec.md §4.5 Cancel protocol. callerSubjectID, when
// non-empty, must match the booking's subject or the call fails Forbidden.
func (s *Service) Cancel(ctx context.Context, tenantID, bookingID, callerSubjectID string) error {
	booking, err := s.repo.GetBookingByID(ctx, tenantID, bookingID)
	if err != nil {
		return err
	}
	if callerSubjectID != "" && callerSubjectID != booking.SubjectID {
		return apperrors.ErrForbidden
	}
	if booking.Status == domain.BookingCancelled {
		return apperrors.ErrAlreadyCancelled
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	return s.repo.RunTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.CancelBookingTx(tx, tenantID, booking.SessionID, bookingID, nowStr); err != nil {
			return err
		}
		return s.ledger.Release(tx, tenantID, booking.SessionID, nowStr)
	})
}

func splitSessionID(sessionID string) (scheduleID, date string, err error) {
	idx := strings.LastIndex(sessionID, "#")
	if idx < 0 {
		return "", "", fmt.Errorf("%w: malformed sessionId %q", apperrors.ErrBadInput, sessionID)
	}
	return sessionID[:idx], sessionID[idx+1:], nil
}

// Package attendance implements the Attendance Validator & Check-In
// (spec.md §4.6): a time-window check, an optional GPS-radius check, and the
// check-in/override protocols that persist an AttendanceRecord.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/geo"
	"github.com/example/session-scheduler/internal/materializer"
	"github.com/example/session-scheduler/internal/store"
)

// Window holds the before/after tolerances (in minutes) for a check-in's
// time-window check. Defaults per spec.md §4.6 are 15/15.
type Window struct {
	BeforeMinutes int
	AfterMinutes  int
}

// DefaultWindow returns spec.md §4.6's default 15-minute/15-minute window.
func DefaultWindow() Window {
	return Window{BeforeMinutes: 15, AfterMinutes: 15}
}

// DefaultRadiusMeters is the GPS check-in radius fallback used when a
// location's CheckInRadiusMeters is unset.
const DefaultRadiusMeters = 100

// Service coordinates check-in validation and persistence.
type Service struct {
	repo                *store.Repository
	window              Window
	now                 func() time.Time
	defaultRadiusMeters float64
}

// New returns a Service with the given window, clock, and GPS-radius
// fallback. now defaults to time.Now and defaultRadiusMeters to
// DefaultRadiusMeters when zero.
func New(repo *store.Repository, window Window, now func() time.Time, defaultRadiusMeters float64) *Service {
	if now == nil {
		now = time.Now
	}
	if defaultRadiusMeters <= 0 {
		defaultRadiusMeters = DefaultRadiusMeters
	}
	return &Service{repo: repo, window: window, now: now, defaultRadiusMeters: defaultRadiusMeters}
}

// CheckInInput carries the Create check-in protocol's inputs.
type CheckInInput struct {
	TenantID    string
	SessionID   string
	BookingID   string
	SubjectID   string // optional; when set, must match the booking's subject
	HasCoords   bool
	Lat, Lng    float64
	CheckInTime time.Time // defaults to now when zero
}

// CheckIn runs the spec.md §4.6 Create check-in protocol.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (domain.AttendanceRecord, error) {
	booking, err := s.repo.GetBooking(ctx, in.TenantID, in.SessionID, in.BookingID)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	if booking.Status != domain.BookingConfirmed {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: booking is not confirmed", apperrors.ErrNotFound)
	}
	if in.SubjectID != "" && in.SubjectID != booking.SubjectID {
		return domain.AttendanceRecord{}, apperrors.ErrForbidden
	}

	if existing, ok, err := s.repo.GetAttendance(ctx, in.TenantID, in.SessionID, in.BookingID); err != nil {
		return domain.AttendanceRecord{}, err
	} else if ok && existing.Status == domain.AttendancePresent {
		return domain.AttendanceRecord{}, apperrors.ErrAlreadyCheckedIn
	}

	scheduleID, date, err := splitSessionID(in.SessionID)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	schedule, err := s.repo.GetSchedule(ctx, in.TenantID, scheduleID)
	if err != nil {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: schedule not found", apperrors.ErrNotFound)
	}
	var exceptionPtr *domain.ScheduleException
	exception, err := s.repo.GetException(ctx, in.TenantID, scheduleID, date)
	switch apperrors.Kind(err) {
	case "":
		exceptionPtr = &exception
	case "NotFound":
	default:
		return domain.AttendanceRecord{}, err
	}

	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: malformed session date", apperrors.ErrBadDateTime)
	}
	sessions, err := materializer.Materialize(schedule, dayStart.Add(-30*time.Hour), dayStart.Add(54*time.Hour), exceptionsByDate(exceptionPtr), nil)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	var session *domain.Session
	for i := range sessions {
		if sessions[i].Date == date {
			session = &sessions[i]
			break
		}
	}
	if session == nil {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: session not found", apperrors.ErrNotFound)
	}

	checkInTime := in.CheckInTime
	if checkInTime.IsZero() {
		checkInTime = s.now()
	}

	status, err := s.classifyWindow(checkInTime, session.Start)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}

	method := domain.CheckInManual
	var distanceMeters *float64
	if in.HasCoords {
		method = domain.CheckInGPS
		if session.LocationID != "" {
			location, err := s.repo.GetLocation(ctx, in.TenantID, session.LocationID)
			if err == nil && location.HasCoordinates {
				if err := (geo.Coordinate{Lat: in.Lat, Lng: in.Lng}).Validate(); err != nil {
					return domain.AttendanceRecord{}, fmt.Errorf("%w: %v", apperrors.ErrBadCoordinates, err)
				}
				radius := location.CheckInRadiusMeters
				if radius <= 0 {
					radius = s.defaultRadiusMeters
				}
				here := geo.Coordinate{Lat: in.Lat, Lng: in.Lng}
				there := geo.Coordinate{Lat: location.Lat, Lng: location.Lng}
				distance := geo.HaversineMeters(here, there)
				distanceMeters = &distance
				if distance > radius {
					return domain.AttendanceRecord{}, apperrors.ErrOutOfRange
				}
			}
		}
	}

	record := domain.AttendanceRecord{
		TenantID:       in.TenantID,
		SessionID:      in.SessionID,
		BookingID:      in.BookingID,
		Status:         status,
		CheckInTime:    &checkInTime,
		CheckInMethod:  method,
		HasCoords:      in.HasCoords,
		CheckInLat:     in.Lat,
		CheckInLng:     in.Lng,
		DistanceMeters: distanceMeters,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}
	if err := s.repo.UpsertAttendance(ctx, record); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return record, nil
}

// classifyWindow applies spec.md §4.6's time-window check, returning the
// derived attendance status or ErrTooEarly/ErrTooLate.
func (s *Service) classifyWindow(checkInTime, sessionStart time.Time) (domain.AttendanceStatus, error) {
	delta := checkInTime.Sub(sessionStart)
	before := -time.Duration(s.window.BeforeMinutes) * time.Minute
	after := time.Duration(s.window.AfterMinutes) * time.Minute

	if delta < before {
		return "", fmt.Errorf("%w: %s before session start", apperrors.ErrTooEarly, (-delta).Round(time.Minute))
	}
	if delta > after {
		return "", fmt.Errorf("%w: %s after session start", apperrors.ErrTooLate, delta.Round(time.Minute))
	}
	if delta > 0 {
		return domain.AttendanceLate, nil
	}
	return domain.AttendancePresent, nil
}

// Override runs the spec.md §4.6 admin override protocol: bypasses the
// window and GPS checks, writes checkInMethod=OVERRIDE, and sets
// checkInTime to now unless status is NO_SHOW. The referenced booking must
// exist; an AttendanceRecord is never written for a bookingId with no
// matching booking (spec.md §3 referential invariant).
func (s *Service) Override(ctx context.Context, tenantID, sessionID, bookingID string, status domain.AttendanceStatus) (domain.AttendanceRecord, error) {
	if _, err := s.repo.GetBooking(ctx, tenantID, sessionID, bookingID); err != nil {
		return domain.AttendanceRecord{}, err
	}

	var checkInTime *time.Time
	if status != domain.AttendanceNoShow {
		t := s.now()
		checkInTime = &t
	}

	record := domain.AttendanceRecord{
		TenantID:      tenantID,
		SessionID:     sessionID,
		BookingID:     bookingID,
		Status:        status,
		CheckInTime:   checkInTime,
		CheckInMethod: domain.CheckInOverride,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}
	if err := s.repo.UpsertAttendance(ctx, record); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return record, nil
}

func exceptionsByDate(e *domain.ScheduleException) map[string]domain.ScheduleException {
	if e == nil {
		return nil
	}
	return map[string]domain.ScheduleException{e.OccurrenceDate: *e}
}

func splitSessionID(sessionID string) (scheduleID, date string, err error) {
	idx := len(sessionID)
	for i := len(sessionID) - 1; i >= 0; i-- {
		if sessionID[i] == '#' {
			idx = i
			break
		}
	}
	if idx == len(sessionID) {
		return "", "", fmt.Errorf("%w: malformed sessionId %q", apperrors.ErrBadInput, sessionID)
	}
	return sessionID[:idx], sessionID[idx+1:], nil
}

package attendance_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/attendance"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/testfixtures"
)

func seedConfirmedBooking(t *testing.T, repo interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	InsertBookingTx(tx *sql.Tx, b domain.Booking) error
}, tenantID, sessionID, bookingID, subjectID string, createdAt time.Time) {
	t.Helper()
	booking := domain.Booking{
		TenantID: tenantID, SessionID: sessionID, BookingID: bookingID,
		SubjectID: subjectID, SubjectType: "MEMBER", Status: domain.BookingConfirmed,
		CreatedAt: createdAt,
	}
	err := repo.RunTx(context.Background(), func(tx *sql.Tx) error {
		return repo.InsertBookingTx(tx, booking)
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestCheckInOnTimeMarksPresent(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		Timezone: "UTC", Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	sessionID := "sched1#2025-01-06"
	seedConfirmedBooking(t, repo, "t1", sessionID, "bk1", "sub1", now)

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return start }, 0)

	rec, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Status != domain.AttendancePresent {
		t.Errorf("Status = %s, want PRESENT", rec.Status)
	}

	if _, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
	}); apperrors.Kind(err) != "AlreadyCheckedIn" {
		t.Fatalf("duplicate CheckIn = %v, want AlreadyCheckedIn", err)
	}
}

func TestCheckInRejectsTooEarly(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		Timezone: "UTC", Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	sessionID := "sched1#2025-01-06"
	seedConfirmedBooking(t, repo, "t1", sessionID, "bk1", "sub1", now)

	early := time.Date(2025, 1, 6, 8, 30, 0, 0, time.UTC)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return early }, 0)

	if _, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
	}); apperrors.Kind(err) != "TooEarly" {
		t.Fatalf("CheckIn 30 min early = %v, want TooEarly", err)
	}
}

func TestCheckInLateWithinWindowMarksLate(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		Timezone: "UTC", Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	sessionID := "sched1#2025-01-06"
	seedConfirmedBooking(t, repo, "t1", sessionID, "bk1", "sub1", now)

	late := time.Date(2025, 1, 6, 9, 10, 0, 0, time.UTC)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return late }, 0)

	rec, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Status != domain.AttendanceLate {
		t.Errorf("Status = %s, want LATE", rec.Status)
	}
}

func TestCheckInOutOfRadiusRejected(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateLocation(ctx, domain.Location{
		TenantID: "t1", LocationID: "loc1", Name: "Studio A",
		HasCoordinates: true, Lat: 40.0, Lng: -73.0, CheckInRadiusMeters: 100,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		LocationID: "loc1", Timezone: "UTC",
		Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	sessionID := "sched1#2025-01-06"
	seedConfirmedBooking(t, repo, "t1", sessionID, "bk1", "sub1", now)

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return start }, 0)

	_, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
		HasCoords: true, Lat: 41.0, Lng: -73.0,
	})
	if apperrors.Kind(err) != "OutOfRange" {
		t.Fatalf("CheckIn far from location = %v, want OutOfRange", err)
	}
}

func TestCheckInWithinRadiusReportsDistance(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateLocation(ctx, domain.Location{
		TenantID: "t1", LocationID: "loc1", Name: "Studio A",
		HasCoordinates: true, Lat: 30.2672, Lng: -97.7431, CheckInRadiusMeters: 100,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		LocationID: "loc1", Timezone: "UTC",
		Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	sessionID := "sched1#2025-01-06"
	seedConfirmedBooking(t, repo, "t1", sessionID, "bk1", "sub1", now)

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return start }, 0)

	rec, err := svc.CheckIn(ctx, attendance.CheckInInput{
		TenantID: "t1", SessionID: sessionID, BookingID: "bk1", SubjectID: "sub1",
		HasCoords: true, Lat: 30.2675, Lng: -97.7428,
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if rec.Status != domain.AttendancePresent {
		t.Errorf("Status = %s, want PRESENT", rec.Status)
	}
	if rec.DistanceMeters == nil {
		t.Fatal("expected DistanceMeters to be set")
	}
	if *rec.DistanceMeters < 30 || *rec.DistanceMeters > 55 {
		t.Errorf("DistanceMeters = %f, want roughly 42", *rec.DistanceMeters)
	}
}

func TestOverrideBypassesWindow(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()
	seedConfirmedBooking(t, repo, "t1", "sched1#2025-01-06", "bk1", "sub1", now)

	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return now }, 0)

	rec, err := svc.Override(ctx, "t1", "sched1#2025-01-06", "bk1", domain.AttendanceNoShow)
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	if rec.CheckInMethod != domain.CheckInOverride {
		t.Errorf("CheckInMethod = %s, want OVERRIDE", rec.CheckInMethod)
	}
	if rec.CheckInTime != nil {
		t.Errorf("CheckInTime should be nil for NO_SHOW override")
	}
}

func TestOverrideRejectsUnknownBooking(t *testing.T) {
	repo := testfixtures.NewStoreRepository(t)
	svc := attendance.New(repo, attendance.DefaultWindow(), func() time.Time { return testfixtures.ReferenceTime() }, 0)

	_, err := svc.Override(context.Background(), "t1", "sched1#2025-01-06", "no-such-booking", domain.AttendanceNoShow)
	if apperrors.Kind(err) != "NotFound" {
		t.Fatalf("Override with unknown booking = %v, want NotFound", err)
	}
}

// Package catalog implements CRUD over the reference entities (Program,
// Location, Schedule, ScheduleException) that sit underneath the Session
// Reader and Booking Engine, validating input and logging the outcome of
// creates, exception upserts and program updates.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/store"
	"github.com/example/session-scheduler/internal/tz"
)

// Service provides CRUD operations over the catalog entities. Creates,
// exception upserts and program updates log their outcome; reads, deletes
// and location/schedule updates do not log.
type Service struct {
	repo   *store.Repository
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// New returns a Service. now and newID default to time.Now/uuid.NewString
// when nil.
func New(repo *store.Repository, now func() time.Time, newID func() string, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, now: now, newID: newID, logger: logger}
}

func (s *Service) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	pairs := append([]any{"service", "catalog", "operation", operation}, attrs...)
	return logger.With(pairs...)
}

// CreateProgram validates and persists a new Program.
func (s *Service) CreateProgram(ctx context.Context, tenantID, name, description string, extra map[string]any) (program domain.Program, err error) {
	logger := s.loggerWith(ctx, "CreateProgram", "tenant_id", tenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create program", "error", err, "error_kind", apperrors.Kind(err))
			return
		}
		logger.With("program_id", program.ProgramID).InfoContext(ctx, "program created")
	}()

	vErr := &apperrors.ValidationError{}
	if tenantID == "" {
		vErr.Add("tenantId", "required")
	}
	if name == "" {
		vErr.Add("name", "required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	program = domain.Program{
		TenantID: tenantID, ProgramID: s.newID(), Name: name, Description: description,
		Extra: extra, CreatedAt: now, UpdatedAt: now,
	}
	err = s.repo.CreateProgram(ctx, program)
	return
}

// GetProgram loads a Program by id.
func (s *Service) GetProgram(ctx context.Context, tenantID, programID string) (domain.Program, error) {
	return s.repo.GetProgram(ctx, tenantID, programID)
}

// ListPrograms lists every Program for a tenant.
func (s *Service) ListPrograms(ctx context.Context, tenantID string) ([]domain.Program, error) {
	return s.repo.ListPrograms(ctx, tenantID)
}

// UpdateProgram replaces a Program's mutable fields.
func (s *Service) UpdateProgram(ctx context.Context, program domain.Program) (err error) {
	logger := s.loggerWith(ctx, "UpdateProgram", "program_id", program.ProgramID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update program", "error", err, "error_kind", apperrors.Kind(err))
		}
	}()
	program.UpdatedAt = s.now().UTC()
	err = s.repo.UpdateProgram(ctx, program)
	return
}

// DeleteProgram removes a Program.
func (s *Service) DeleteProgram(ctx context.Context, tenantID, programID string) error {
	return s.repo.DeleteProgram(ctx, tenantID, programID)
}

// CreateLocation validates and persists a new Location.
func (s *Service) CreateLocation(ctx context.Context, loc domain.Location) (location domain.Location, err error) {
	logger := s.loggerWith(ctx, "CreateLocation", "tenant_id", loc.TenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create location", "error", err, "error_kind", apperrors.Kind(err))
			return
		}
		logger.With("location_id", location.LocationID).InfoContext(ctx, "location created")
	}()

	vErr := &apperrors.ValidationError{}
	if loc.TenantID == "" {
		vErr.Add("tenantId", "required")
	}
	if loc.Name == "" {
		vErr.Add("name", "required")
	}
	if loc.HasCoordinates {
		if loc.Lat < -90 || loc.Lat > 90 {
			vErr.Add("lat", "out of range")
		}
		if loc.Lng < -180 || loc.Lng > 180 {
			vErr.Add("lng", "out of range")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	loc.LocationID = s.newID()
	loc.CreatedAt = now
	loc.UpdatedAt = now
	err = s.repo.CreateLocation(ctx, loc)
	location = loc
	return
}

// GetLocation loads a Location by id.
func (s *Service) GetLocation(ctx context.Context, tenantID, locationID string) (domain.Location, error) {
	return s.repo.GetLocation(ctx, tenantID, locationID)
}

// ListLocations lists every Location for a tenant.
func (s *Service) ListLocations(ctx context.Context, tenantID string) ([]domain.Location, error) {
	return s.repo.ListLocations(ctx, tenantID)
}

// UpdateLocation replaces a Location's mutable fields.
func (s *Service) UpdateLocation(ctx context.Context, loc domain.Location) error {
	loc.UpdatedAt = s.now().UTC()
	return s.repo.UpdateLocation(ctx, loc)
}

// DeleteLocation removes a Location.
func (s *Service) DeleteLocation(ctx context.Context, tenantID, locationID string) error {
	return s.repo.DeleteLocation(ctx, tenantID, locationID)
}

// CreateSchedule validates and persists a new Schedule.
func (s *Service) CreateSchedule(ctx context.Context, sched domain.Schedule) (schedule domain.Schedule, err error) {
	logger := s.loggerWith(ctx, "CreateSchedule", "tenant_id", sched.TenantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", apperrors.Kind(err))
			return
		}
		logger.With("schedule_id", schedule.ScheduleID).InfoContext(ctx, "schedule created")
	}()

	vErr := &apperrors.ValidationError{}
	validateScheduleCore(sched, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	sched.ScheduleID = s.newID()
	sched.CreatedAt = now
	sched.UpdatedAt = now
	err = s.repo.CreateSchedule(ctx, sched)
	schedule = sched
	return
}

// GetSchedule loads a Schedule by id.
func (s *Service) GetSchedule(ctx context.Context, tenantID, scheduleID string) (domain.Schedule, error) {
	return s.repo.GetSchedule(ctx, tenantID, scheduleID)
}

// ListSchedules lists Schedules for a tenant, optionally narrowed by
// program id.
func (s *Service) ListSchedules(ctx context.Context, tenantID string, programIDs []string) ([]domain.Schedule, error) {
	return s.repo.ListSchedules(ctx, tenantID, programIDs, "")
}

// UpdateSchedule validates and replaces a Schedule's mutable fields.
func (s *Service) UpdateSchedule(ctx context.Context, sched domain.Schedule) error {
	vErr := &apperrors.ValidationError{}
	validateScheduleCore(sched, vErr)
	if sched.ScheduleID == "" {
		vErr.Add("scheduleId", "required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	sched.UpdatedAt = s.now().UTC()
	return s.repo.UpdateSchedule(ctx, sched)
}

// validateScheduleCore checks the Schedule invariants spec.md §3 requires:
// the base required fields, that a SESSION schedule names its program, that
// end falls after start, and that a recurring schedule carries a rule.
func validateScheduleCore(sched domain.Schedule, vErr *apperrors.ValidationError) {
	if sched.TenantID == "" {
		vErr.Add("tenantId", "required")
	}
	if sched.Start == "" {
		vErr.Add("start", "required")
	}
	if sched.End == "" {
		vErr.Add("end", "required")
	}
	if sched.Timezone == "" {
		vErr.Add("timezone", "required")
	}
	if sched.Type == domain.ScheduleTypeSession && sched.ProgramID == "" {
		vErr.Add("programId", "required for a SESSION schedule")
	}
	if sched.IsRecurring && sched.RRule == "" {
		vErr.Add("rrule", "required when isRecurring is true")
	}

	if sched.Start == "" || sched.End == "" || sched.Timezone == "" {
		return
	}
	zone, err := tz.LoadZone(sched.Timezone)
	if err != nil {
		vErr.Add("timezone", "unknown IANA zone")
		return
	}
	start, startErr := tz.ParseLocal(sched.Start, zone)
	end, endErr := tz.ParseLocal(sched.End, zone)
	if startErr != nil {
		vErr.Add("start", "unparseable datetime")
	}
	if endErr != nil {
		vErr.Add("end", "unparseable datetime")
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		vErr.Add("end", "must be after start")
	}
}

// DeleteSchedule removes a Schedule.
func (s *Service) DeleteSchedule(ctx context.Context, tenantID, scheduleID string) error {
	return s.repo.DeleteSchedule(ctx, tenantID, scheduleID)
}

// UpsertException creates or replaces a per-date ScheduleException.
func (s *Service) UpsertException(ctx context.Context, exc domain.ScheduleException) (err error) {
	logger := s.loggerWith(ctx, "UpsertException", "schedule_id", exc.ScheduleID, "occurrence_date", exc.OccurrenceDate)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert exception", "error", err, "error_kind", apperrors.Kind(err))
		}
	}()

	vErr := &apperrors.ValidationError{}
	if exc.TenantID == "" {
		vErr.Add("tenantId", "required")
	}
	if exc.ScheduleID == "" {
		vErr.Add("scheduleId", "required")
	}
	if exc.OccurrenceDate == "" {
		vErr.Add("occurrenceDate", "required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = now
	}
	exc.UpdatedAt = now
	err = s.repo.UpsertException(ctx, exc)
	return
}

// GetException loads a single ScheduleException.
func (s *Service) GetException(ctx context.Context, tenantID, scheduleID, date string) (domain.ScheduleException, error) {
	return s.repo.GetException(ctx, tenantID, scheduleID, date)
}

// DeleteException removes a ScheduleException, reverting the date to the
// schedule's base pattern.
func (s *Service) DeleteException(ctx context.Context, tenantID, scheduleID, date string) error {
	return s.repo.DeleteException(ctx, tenantID, scheduleID, date)
}

// ListExceptionsInRange lists ScheduleExceptions for a schedule between two
// local dates, inclusive.
func (s *Service) ListExceptionsInRange(ctx context.Context, tenantID, scheduleID, startDate, endDate string) ([]domain.ScheduleException, error) {
	return s.repo.ListExceptionsInRange(ctx, tenantID, scheduleID, startDate, endDate)
}

// Package reader implements the Session Reader (spec.md §4.7): the
// client-facing read path that expands schedules into sessions, merges
// persisted booking counters, applies filters, and returns them sorted.
package reader

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/materializer"
	"github.com/example/session-scheduler/internal/store"
	"github.com/example/session-scheduler/internal/tz"
)

// DefaultMaxWindowDays is the widest [startDate, endDate] window a client
// may request before the query fails RangeTooLarge (spec.md §4.7 step 1)
// when the caller does not override it via New.
const DefaultMaxWindowDays = 90

// widePadding is the absolute-range safety margin (spec.md §4.3
// "Query-range safety"): UTC-12 to UTC+14 covers every IANA zone offset,
// plus a day on each side for the widest DST shift.
const widePadding = 26 * time.Hour

// Filters narrows the sessions returned by Query beyond the requested date
// window (spec.md §4.3 "Filters" / §4.7).
type Filters struct {
	ProgramIDs []string
	Type       domain.ScheduleType
	HostID     string
	LocationID string
	StartTime  string // HH:MM, local wall-clock
	EndTime    string // HH:MM, local wall-clock
}

// Service reads materialized sessions from the store.
type Service struct {
	repo          *store.Repository
	maxWindowDays int
}

// New returns a reader Service backed by repo. maxWindowDays bounds the
// widest [startDate, endDate] window Query accepts; a value <= 0 falls back
// to DefaultMaxWindowDays.
func New(repo *store.Repository, maxWindowDays int) *Service {
	if maxWindowDays <= 0 {
		maxWindowDays = DefaultMaxWindowDays
	}
	return &Service{repo: repo, maxWindowDays: maxWindowDays}
}

// Query runs the spec.md §4.7 multi-session protocol.
func (s *Service) Query(ctx context.Context, tenantID, startDate, endDate string, filters Filters) ([]domain.Session, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed startDate", apperrors.ErrBadDateTime)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed endDate", apperrors.ErrBadDateTime)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate before startDate", apperrors.ErrBadInput)
	}
	if end.Sub(start) > time.Duration(s.maxWindowDays-1)*24*time.Hour {
		return nil, apperrors.ErrRangeTooLarge
	}

	schedules, err := s.repo.ListSchedules(ctx, tenantID, filters.ProgramIDs, filters.HostID)
	if err != nil {
		return nil, err
	}

	wideStart := start.Add(-widePadding)
	wideEnd := end.Add(24 * time.Hour).Add(widePadding)

	var all []domain.Session
	for _, schedule := range schedules {
		exceptions, err := s.repo.ListExceptionsInRange(ctx, tenantID, schedule.ScheduleID, startDate, endDate)
		if err != nil {
			return nil, err
		}
		sessions, err := materializer.Materialize(schedule, wideStart, wideEnd, exceptionsByDate(exceptions), nil)
		if err != nil {
			return nil, err
		}
		all = append(all, sessions...)
	}

	sessionIDs := make([]string, len(all))
	for i, sess := range all {
		sessionIDs[i] = sess.SessionID
	}
	summaries, err := s.repo.BatchGetSessionSummaries(ctx, tenantID, sessionIDs)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if summary, ok := summaries[all[i].SessionID]; ok {
			all[i].BookedCount = summary.BookedCount
			all[i].WaitlistCount = summary.WaitlistCount
		}
	}

	result := filterSessions(all, startDate, endDate, filters)
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

// QuerySingle runs the spec.md §4.7 single-session mode: it loads one
// schedule and that date's exception, and materializes a one-day window.
func (s *Service) QuerySingle(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	idx := strings.LastIndex(sessionID, "#")
	if idx < 0 {
		return domain.Session{}, fmt.Errorf("%w: malformed sessionId %q", apperrors.ErrBadInput, sessionID)
	}
	scheduleID, date := sessionID[:idx], sessionID[idx+1:]

	schedule, err := s.repo.GetSchedule(ctx, tenantID, scheduleID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: schedule not found", apperrors.ErrNotFound)
	}

	var exceptionsByDateMap map[string]domain.ScheduleException
	exception, err := s.repo.GetException(ctx, tenantID, scheduleID, date)
	switch apperrors.Kind(err) {
	case "":
		exceptionsByDateMap = map[string]domain.ScheduleException{date: exception}
	case "NotFound":
	default:
		return domain.Session{}, err
	}

	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: malformed session date", apperrors.ErrBadDateTime)
	}
	sessions, err := materializer.Materialize(schedule, dayStart.Add(-widePadding), dayStart.Add(24*time.Hour).Add(widePadding), exceptionsByDateMap, nil)
	if err != nil {
		return domain.Session{}, err
	}

	for _, sess := range sessions {
		if sess.Date == date {
			summary, err := s.repo.GetSessionSummary(ctx, tenantID, sessionID)
			switch apperrors.Kind(err) {
			case "":
				sess.BookedCount = summary.BookedCount
				sess.WaitlistCount = summary.WaitlistCount
			case "NotFound":
			default:
				return domain.Session{}, err
			}
			return sess, nil
		}
	}
	return domain.Session{}, fmt.Errorf("%w: session not found", apperrors.ErrNotFound)
}

func filterSessions(sessions []domain.Session, startDate, endDate string, f Filters) []domain.Session {
	out := make([]domain.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Date < startDate || sess.Date > endDate {
			continue
		}
		if f.Type != "" && sess.Type != f.Type {
			continue
		}
		if f.LocationID != "" && sess.LocationID != f.LocationID {
			continue
		}
		if f.HostID != "" && !hasHost(sess.Hosts, f.HostID) {
			continue
		}
		if f.StartTime != "" || f.EndTime != "" {
			local := tz.FormatLocalTime(sess.Start, sess.Start.Location(), "15:04")
			if f.StartTime != "" && local < f.StartTime {
				continue
			}
			if f.EndTime != "" && local > f.EndTime {
				continue
			}
		}
		out = append(out, sess)
	}
	return out
}

// hasHost re-checks a materialized session's hosts against the filter after
// ListSchedules has already narrowed candidate schedules by their base
// hosts in SQL; it is what catches a per-occurrence ScheduleException that
// overrides hosts away from the schedule's base list.
func hasHost(hosts []domain.Host, hostID string) bool {
	for _, h := range hosts {
		if h.ID == hostID {
			return true
		}
	}
	return false
}

func exceptionsByDate(exceptions []domain.ScheduleException) map[string]domain.ScheduleException {
	if len(exceptions) == 0 {
		return nil
	}
	m := make(map[string]domain.ScheduleException, len(exceptions))
	for _, e := range exceptions {
		m[e.OccurrenceDate] = e
	}
	return m
}

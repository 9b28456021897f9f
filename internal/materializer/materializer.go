// Package materializer implements the Session Materializer (spec.md §4.3): a
// pure function of (schedule, exceptions, range) that synthesizes virtual,
// never-persisted Session records.
package materializer

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/recurrence"
	"github.com/example/session-scheduler/internal/tz"
)

// Materialize expands schedule into the Session instances falling within
// [rangeStart, rangeEnd] (absolute instants), applying exceptionsByDate and
// filling booking counters from summariesBySessionID when present.
//
// This is a pure function: repeated calls with equal inputs return equal
// results, and it performs no I/O.
func Materialize(
	schedule domain.Schedule,
	rangeStart, rangeEnd time.Time,
	exceptionsByDate map[string]domain.ScheduleException,
	summariesBySessionID map[string]domain.SessionSummary,
) ([]domain.Session, error) {
	zone, err := tz.LoadZone(schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadDateTime, err)
	}

	templateStart, err := tz.ParseLocal(schedule.Start, zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadDateTime, err)
	}
	templateEnd, err := tz.ParseLocal(schedule.End, zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBadDateTime, err)
	}
	duration := templateEnd.Sub(templateStart)

	var occurrenceStarts []time.Time

	if !schedule.IsRecurring {
		if !templateStart.Before(rangeStart) && !templateStart.After(rangeEnd) {
			occurrenceStarts = []time.Time{templateStart}
		}
	} else {
		rule, err := recurrence.Parse(schedule.RRule)
		if err != nil {
			return nil, err
		}

		dtstartNaive := tz.AbsoluteToNaive(templateStart, zone)
		naiveRangeStart := tz.AbsoluteToNaive(rangeStart, zone)
		naiveRangeEnd := tz.AbsoluteToNaive(rangeEnd, zone)

		naiveOccurrences, err := rule.Expand(dtstartNaive, naiveRangeStart, naiveRangeEnd)
		if err != nil {
			return nil, err
		}

		occurrenceStarts = make([]time.Time, len(naiveOccurrences))
		for i, naive := range naiveOccurrences {
			occurrenceStarts[i] = tz.NaiveToAbsolute(naive, zone)
		}
	}

	sessions := make([]domain.Session, 0, len(occurrenceStarts))
	for _, start := range occurrenceStarts {
		dateStr := tz.FormatLocalDate(start, zone)

		exception, hasException := exceptionsByDate[dateStr]
		if hasException && exception.Type == domain.ExceptionCancelled {
			continue
		}

		end := start.Add(duration)
		hosts := schedule.Hosts
		locationID := schedule.LocationID
		hasCapacity := schedule.HasCapacity
		capacity := schedule.BaseCapacity

		if hasException && exception.Type == domain.ExceptionOverride {
			if exception.OverrideStart != "" {
				overrideStart, err := tz.ParseLocal(exception.OverrideStart, zone)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", apperrors.ErrBadDateTime, err)
				}
				start = overrideStart
			}
			if exception.OverrideEnd != "" {
				overrideEnd, err := tz.ParseLocal(exception.OverrideEnd, zone)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", apperrors.ErrBadDateTime, err)
				}
				end = overrideEnd
			} else {
				end = start.Add(duration)
			}
			if len(exception.OverrideHosts) > 0 {
				hosts = exception.OverrideHosts
			}
			if exception.OverrideLocation != "" {
				locationID = exception.OverrideLocation
			}
			if exception.HasOverrideCap {
				hasCapacity = true
				capacity = exception.OverrideCapacity
			}
		}

		sessionID := fmt.Sprintf("%s#%s", schedule.ScheduleID, dateStr)

		session := domain.Session{
			TenantID:    schedule.TenantID,
			SessionID:   sessionID,
			ScheduleID:  schedule.ScheduleID,
			ProgramID:   schedule.ProgramID,
			Type:        schedule.Type,
			Date:        dateStr,
			Start:       start,
			End:         end,
			Timezone:    schedule.Timezone,
			Hosts:       hosts,
			LocationID:  locationID,
			Tags:        schedule.Tags,
			HasCapacity: hasCapacity,
			Capacity:    capacity,
		}

		if summary, ok := summariesBySessionID[sessionID]; ok {
			session.BookedCount = summary.BookedCount
			session.WaitlistCount = summary.WaitlistCount
		}

		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Start.Before(sessions[j].Start)
	})

	return sessions, nil
}

// ResolvedCapacity returns the effective capacity for date given schedule and
// an optional exception, per the glossary's "resolved capacity" definition.
func ResolvedCapacity(schedule domain.Schedule, exception *domain.ScheduleException) (capacity int, hasCapacity bool) {
	if exception != nil && exception.Type == domain.ExceptionOverride && exception.HasOverrideCap {
		return exception.OverrideCapacity, true
	}
	return schedule.BaseCapacity, schedule.HasCapacity
}

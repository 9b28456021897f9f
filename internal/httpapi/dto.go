package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

var validate = validator.New()

// decodeAndValidate JSON-decodes r's body into dst and runs struct-tag
// validation over it. A decode failure returns a wrapped
// apperrors.ErrBadInput; a struct-tag failure returns an
// *apperrors.ValidationError keyed by the failing field names.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBadInput, err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			vErr := &apperrors.ValidationError{}
			for _, fe := range fieldErrs {
				vErr.Add(fe.Field(), fe.Tag())
			}
			return vErr
		}
		return fmt.Errorf("%w: %v", apperrors.ErrBadInput, err)
	}
	return nil
}

type programRequest struct {
	ProgramID   string         `json:"programId,omitempty"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type locationRequest struct {
	LocationID          string         `json:"locationId,omitempty"`
	Name                string         `json:"name" validate:"required"`
	HasCoordinates      bool           `json:"hasCoordinates,omitempty"`
	Lat                 float64        `json:"lat,omitempty"`
	Lng                 float64        `json:"lng,omitempty"`
	CheckInRadiusMeters float64        `json:"checkInRadiusMeters,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

type hostRequest struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type,omitempty"`
	Role string `json:"role,omitempty"`
}

type scheduleRequest struct {
	ScheduleID   string         `json:"scheduleId,omitempty"`
	Type         string         `json:"type" validate:"required,oneof=SESSION BLOCK"`
	ProgramID    string         `json:"programId,omitempty"`
	LocationID   string         `json:"locationId,omitempty"`
	Timezone     string         `json:"timezone" validate:"required"`
	Start        string         `json:"start" validate:"required"`
	End          string         `json:"end" validate:"required"`
	IsRecurring  bool           `json:"isRecurring,omitempty"`
	RRule        string         `json:"rrule,omitempty"`
	HasCapacity  bool           `json:"hasCapacity,omitempty"`
	BaseCapacity int            `json:"baseCapacity,omitempty"`
	Hosts        []hostRequest  `json:"hosts,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

type exceptionRequest struct {
	ScheduleID       string         `json:"scheduleId" validate:"required"`
	OccurrenceDate   string         `json:"occurrenceDate" validate:"required"`
	Type             string         `json:"type" validate:"required,oneof=CANCELLED OVERRIDE"`
	OverrideStart    string         `json:"overrideStart,omitempty"`
	OverrideEnd      string         `json:"overrideEnd,omitempty"`
	HasOverrideCap   bool           `json:"hasOverrideCap,omitempty"`
	OverrideCapacity int            `json:"overrideCapacity,omitempty"`
	OverrideHosts    []hostRequest  `json:"overrideHosts,omitempty"`
	OverrideLocation string         `json:"overrideLocationId,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

type bookingRequest struct {
	SessionID   string         `json:"sessionId" validate:"required"`
	SubjectID   string         `json:"subjectId,omitempty"`
	SubjectType string         `json:"subjectType,omitempty"`
	Source      string         `json:"source,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type checkInRequest struct {
	SessionID   string  `json:"sessionId" validate:"required"`
	BookingID   string  `json:"bookingId" validate:"required"`
	SubjectID   string  `json:"subjectId,omitempty"`
	HasCoords   bool    `json:"hasCoords,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
}

type attendanceOverrideRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	BookingID string `json:"bookingId" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=PRESENT LATE NO_SHOW"`
}

func toHosts(in []hostRequest) []domain.Host {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Host, len(in))
	for i, h := range in {
		out[i] = domain.Host{ID: h.ID, Type: h.Type, Role: h.Role}
	}
	return out
}

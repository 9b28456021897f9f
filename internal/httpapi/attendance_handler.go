package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/attendance"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/store"
)

// AttendanceHandler serves /scheduling/attendance.
type AttendanceHandler struct {
	attendance *attendance.Service
	repo       *store.Repository
	responder  responder
}

// NewAttendanceHandler returns an AttendanceHandler.
func NewAttendanceHandler(attendanceSvc *attendance.Service, repo *store.Repository, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendanceSvc, repo: repo, responder: newResponder(logger)}
}

// List handles GET /scheduling/attendance: one record for a sessionId +
// bookingId, every record for a session, or the caller's subject-scoped
// history otherwise.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	query := r.URL.Query()
	sessionID, bookingID := query.Get("sessionId"), query.Get("bookingId")

	if sessionID != "" && bookingID != "" {
		record, ok, err := h.repo.GetAttendance(ctx, tenant, sessionID, bookingID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		if !ok {
			h.responder.writeError(ctx, w, apperrors.ErrNotFound)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, record)
		return
	}

	var (
		records []domain.AttendanceRecord
		err     error
	)
	if sessionID != "" {
		records, err = h.repo.ListAttendanceBySession(ctx, tenant, sessionID)
	} else {
		subject := subjectID(r, query.Get("subjectId"))
		records, err = h.repo.ListAttendanceBySubject(ctx, tenant, subject)
	}
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, records)
}

// Create handles POST /scheduling/attendance (check-in).
func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req checkInRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	record, err := h.attendance.CheckIn(ctx, attendance.CheckInInput{
		TenantID:  tenantID(r),
		SessionID: req.SessionID,
		BookingID: req.BookingID,
		SubjectID: subjectID(r, req.SubjectID),
		HasCoords: req.HasCoords,
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, record)
}

// Update handles PATCH /scheduling/attendance (admin override).
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req attendanceOverrideRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	record, err := h.attendance.Override(
		ctx,
		tenantID(r),
		req.SessionID,
		req.BookingID,
		domain.AttendanceStatus(req.Status),
	)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, record)
}

package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/session-scheduler/internal/booking"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/store"
)

// BookingHandler serves /scheduling/bookings.
type BookingHandler struct {
	booking   *booking.Service
	repo      *store.Repository
	responder responder
}

// NewBookingHandler returns a BookingHandler.
func NewBookingHandler(bookingSvc *booking.Service, repo *store.Repository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{booking: bookingSvc, repo: repo, responder: newResponder(logger)}
}

// List handles GET /scheduling/bookings: one booking for a sessionId +
// bookingId, every booking for a session when only sessionId is given, or
// every booking for the caller's subject otherwise.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	query := r.URL.Query()

	sessionID, bookingID := query.Get("sessionId"), query.Get("bookingId")
	if sessionID != "" && bookingID != "" {
		record, err := h.repo.GetBooking(ctx, tenant, sessionID, bookingID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, record)
		return
	}

	var (
		bookings []domain.Booking
		err      error
	)
	if sessionID != "" {
		bookings, err = h.repo.ListBookingsBySession(ctx, tenant, sessionID)
	} else {
		subject := subjectID(r, query.Get("subjectId"))
		bookings, err = h.repo.ListBookingsBySubject(ctx, tenant, subject)
	}
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	if status := query.Get("status"); status != "" {
		bookings = filterBookingsByStatus(bookings, domain.BookingStatus(status))
	}
	if limit, ok := parsePositiveInt(query.Get("limit")); ok && limit < len(bookings) {
		bookings = bookings[:limit]
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, bookings)
}

// Create handles POST /scheduling/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req bookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	result, err := h.booking.Create(ctx, booking.CreateInput{
		TenantID:    tenantID(r),
		SessionID:   req.SessionID,
		SubjectID:   subjectID(r, req.SubjectID),
		SubjectType: req.SubjectType,
		Source:      req.Source,
		Notes:       req.Notes,
		Extra:       req.Extra,
	})
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, result)
}

// Delete handles DELETE /scheduling/bookings (bookingId).
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	bookingID := r.URL.Query().Get("bookingId")
	caller := subjectID(r, "")
	if err := h.booking.Cancel(ctx, tenant, bookingID, caller); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func filterBookingsByStatus(bookings []domain.Booking, status domain.BookingStatus) []domain.Booking {
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func parsePositiveInt(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

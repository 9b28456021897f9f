package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/example/session-scheduler/internal/catalog"
	"github.com/example/session-scheduler/internal/domain"
)

// ExceptionHandler serves /scheduling/exceptions.
type ExceptionHandler struct {
	catalog   *catalog.Service
	responder responder
}

// NewExceptionHandler returns an ExceptionHandler.
func NewExceptionHandler(catalogSvc *catalog.Service, logger *slog.Logger) *ExceptionHandler {
	return &ExceptionHandler{catalog: catalogSvc, responder: newResponder(logger)}
}

// List handles GET /scheduling/exceptions (scheduleId, occurrenceDate? or
// startDate+endDate?).
func (h *ExceptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	scheduleID := r.URL.Query().Get("scheduleId")

	if date := r.URL.Query().Get("occurrenceDate"); date != "" {
		exception, err := h.catalog.GetException(ctx, tenant, scheduleID, date)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, exception)
		return
	}

	startDate, endDate := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")
	exceptions, err := h.catalog.ListExceptionsInRange(ctx, tenant, scheduleID, startDate, endDate)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, exceptions)
}

// Create handles POST /scheduling/exceptions.
func (h *ExceptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req exceptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	exception := requestToException(req, tenantID(r))
	if err := h.catalog.UpsertException(ctx, exception); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, exception)
}

// Update handles PATCH /scheduling/exceptions.
func (h *ExceptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.Create(w, r)
}

// Delete handles DELETE /scheduling/exceptions.
func (h *ExceptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	scheduleID := r.URL.Query().Get("scheduleId")
	date := r.URL.Query().Get("occurrenceDate")
	if err := h.catalog.DeleteException(ctx, tenant, scheduleID, date); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func requestToException(req exceptionRequest, tenant string) domain.ScheduleException {
	return domain.ScheduleException{
		TenantID:         tenant,
		ScheduleID:       req.ScheduleID,
		OccurrenceDate:   req.OccurrenceDate,
		Type:             domain.ExceptionType(req.Type),
		OverrideStart:    req.OverrideStart,
		OverrideEnd:      req.OverrideEnd,
		HasOverrideCap:   req.HasOverrideCap,
		OverrideCapacity: req.OverrideCapacity,
		OverrideHosts:    toHosts(req.OverrideHosts),
		OverrideLocation: req.OverrideLocation,
		Extra:            req.Extra,
	}
}

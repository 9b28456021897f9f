package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/session-scheduler/internal/catalog"
	"github.com/example/session-scheduler/internal/domain"
)

// ScheduleHandler serves /scheduling/schedules.
type ScheduleHandler struct {
	catalog   *catalog.Service
	responder responder
}

// NewScheduleHandler returns a ScheduleHandler.
func NewScheduleHandler(catalogSvc *catalog.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{catalog: catalogSvc, responder: newResponder(logger)}
}

// List handles GET /scheduling/schedules (scheduleId? / programId?).
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)

	if scheduleID := r.URL.Query().Get("scheduleId"); scheduleID != "" {
		schedule, err := h.catalog.GetSchedule(ctx, tenant, scheduleID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, schedule)
		return
	}

	var programIDs []string
	if raw := r.URL.Query().Get("programId"); raw != "" {
		programIDs = strings.Split(raw, ",")
	}
	schedules, err := h.catalog.ListSchedules(ctx, tenant, programIDs)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, schedules)
}

// Create handles POST /scheduling/schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scheduleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	schedule, err := h.catalog.CreateSchedule(ctx, requestToSchedule(req, tenantID(r)))
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, schedule)
}

// Update handles PATCH /scheduling/schedules.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scheduleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	tenant := tenantID(r)

	schedule := requestToSchedule(req, tenant)
	schedule.ScheduleID = req.ScheduleID
	if err := h.catalog.UpdateSchedule(ctx, schedule); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, schedule)
}

// Delete handles DELETE /scheduling/schedules.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	scheduleID := r.URL.Query().Get("scheduleId")
	if err := h.catalog.DeleteSchedule(ctx, tenant, scheduleID); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func requestToSchedule(req scheduleRequest, tenant string) domain.Schedule {
	return domain.Schedule{
		TenantID:     tenant,
		ScheduleID:   req.ScheduleID,
		Type:         domain.ScheduleType(req.Type),
		ProgramID:    req.ProgramID,
		LocationID:   req.LocationID,
		Timezone:     req.Timezone,
		Start:        req.Start,
		End:          req.End,
		IsRecurring:  req.IsRecurring,
		RRule:        req.RRule,
		HasCapacity:  req.HasCapacity,
		BaseCapacity: req.BaseCapacity,
		Hosts:        toHosts(req.Hosts),
		Tags:         req.Tags,
		Extra:        req.Extra,
	}
}

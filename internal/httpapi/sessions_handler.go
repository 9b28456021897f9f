package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/reader"
)

// SessionHandler serves /scheduling/sessions.
type SessionHandler struct {
	reader    *reader.Service
	responder responder
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(readerSvc *reader.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{reader: readerSvc, responder: newResponder(logger)}
}

// List handles GET /scheduling/sessions, running the single-session
// protocol when sessionId is present and the multi-session protocol
// otherwise (startDate, endDate, plus filters).
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	query := r.URL.Query()

	if sessionID := query.Get("sessionId"); sessionID != "" {
		session, err := h.reader.QuerySingle(ctx, tenant, sessionID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, session)
		return
	}

	filters := reader.Filters{
		Type:       domain.ScheduleType(query.Get("type")),
		HostID:     query.Get("hostId"),
		LocationID: query.Get("locationId"),
		StartTime:  query.Get("startTime"),
		EndTime:    query.Get("endTime"),
	}
	if raw := query.Get("programId"); raw != "" {
		filters.ProgramIDs = strings.Split(raw, ",")
	}

	sessions, err := h.reader.Query(ctx, tenant, query.Get("startDate"), query.Get("endDate"), filters)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, sessions)
}

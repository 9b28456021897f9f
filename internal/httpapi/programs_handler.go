package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/example/session-scheduler/internal/catalog"
)

// ProgramHandler serves /scheduling/programs.
type ProgramHandler struct {
	catalog   *catalog.Service
	responder responder
}

// NewProgramHandler returns a ProgramHandler.
func NewProgramHandler(catalogSvc *catalog.Service, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{catalog: catalogSvc, responder: newResponder(logger)}
}

// List handles GET /scheduling/programs, returning one program when
// programId is present or the full tenant list otherwise.
func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)

	if programID := r.URL.Query().Get("programId"); programID != "" {
		program, err := h.catalog.GetProgram(ctx, tenant, programID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, program)
		return
	}

	programs, err := h.catalog.ListPrograms(ctx, tenant)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, programs)
}

// Create handles POST /scheduling/programs.
func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req programRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	tenant := tenantID(r)

	program, err := h.catalog.CreateProgram(ctx, tenant, req.Name, req.Description, req.Extra)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, program)
}

// Update handles PATCH /scheduling/programs.
func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req programRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	tenant := tenantID(r)

	program, err := h.catalog.GetProgram(ctx, tenant, req.ProgramID)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	program.Name = req.Name
	program.Description = req.Description
	if req.Extra != nil {
		program.Extra = req.Extra
	}
	if err := h.catalog.UpdateProgram(ctx, program); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, program)
}

// Delete handles DELETE /scheduling/programs.
func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	programID := r.URL.Query().Get("programId")
	if err := h.catalog.DeleteProgram(ctx, tenant, programID); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

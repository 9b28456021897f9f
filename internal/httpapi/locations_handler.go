package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/example/session-scheduler/internal/catalog"
	"github.com/example/session-scheduler/internal/domain"
)

// LocationHandler serves /scheduling/locations.
type LocationHandler struct {
	catalog   *catalog.Service
	responder responder
}

// NewLocationHandler returns a LocationHandler.
func NewLocationHandler(catalogSvc *catalog.Service, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{catalog: catalogSvc, responder: newResponder(logger)}
}

// List handles GET /scheduling/locations.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)

	if locationID := r.URL.Query().Get("locationId"); locationID != "" {
		location, err := h.catalog.GetLocation(ctx, tenant, locationID)
		if err != nil {
			h.responder.writeError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, location)
		return
	}

	locations, err := h.catalog.ListLocations(ctx, tenant)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, locations)
}

// Create handles POST /scheduling/locations.
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req locationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}

	location, err := h.catalog.CreateLocation(ctx, domain.Location{
		TenantID:            tenantID(r),
		Name:                req.Name,
		HasCoordinates:      req.HasCoordinates,
		Lat:                 req.Lat,
		Lng:                 req.Lng,
		CheckInRadiusMeters: req.CheckInRadiusMeters,
		Extra:               req.Extra,
	})
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, location)
}

// Update handles PATCH /scheduling/locations.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req locationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	tenant := tenantID(r)

	location, err := h.catalog.GetLocation(ctx, tenant, req.LocationID)
	if err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	location.Name = req.Name
	location.HasCoordinates = req.HasCoordinates
	location.Lat = req.Lat
	location.Lng = req.Lng
	location.CheckInRadiusMeters = req.CheckInRadiusMeters
	if req.Extra != nil {
		location.Extra = req.Extra
	}
	if err := h.catalog.UpdateLocation(ctx, location); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, location)
}

// Delete handles DELETE /scheduling/locations.
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantID(r)
	locationID := r.URL.Query().Get("locationId")
	if err := h.catalog.DeleteLocation(ctx, tenant, locationID); err != nil {
		h.responder.writeError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

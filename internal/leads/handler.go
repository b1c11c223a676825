package leads

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lead-manager/internal/http/envelope"
	"github.com/wolfman30/lead-manager/internal/tenancy"
	"github.com/wolfman30/lead-manager/internal/validation"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

// Handler handles HTTP requests for leads
type Handler struct {
	svc    *Service
	stats  *Aggregator
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(svc *Service, stats *Aggregator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:    svc,
		stats:  stats,
		logger: logger,
	}
}

// ListLeads handles GET /leads/
// Query params:
//   - status: exact status match (optional)
//   - search: case-insensitive match on name, email or phone (optional)
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	filter := ListLeadsFilter{
		Status: Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Search: r.URL.Query().Get("search"),
	}

	leads, err := h.svc.List(r.Context(), owner, filter)
	if err != nil {
		h.writeError(w, err, "Failed to list leads")
		return
	}
	envelope.OK(w, http.StatusOK, "", leads)
}

// CreateLead handles POST /leads/
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var in LeadInput
	if err := envelope.Decode(r, &in); err != nil && !errors.Is(err, envelope.ErrEmptyBody) {
		envelope.MalformedBody(w, err)
		return
	}

	lead, err := h.svc.Create(r.Context(), owner, in)
	if err != nil {
		h.writeError(w, err, "Failed to create lead")
		return
	}
	envelope.OK(w, http.StatusCreated, "Lead created successfully", lead)
}

// GetLead handles GET /leads/{id}/
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	lead, err := h.svc.Get(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, err, "Failed to load lead")
		return
	}
	envelope.OK(w, http.StatusOK, "", lead)
}

// UpdateLead handles PUT /leads/{id}/
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// PatchLead handles PATCH /leads/{id}/
func (h *Handler) PatchLead(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := leadID(w, r)
	if !ok {
		return
	}
	var in LeadInput
	if err := envelope.Decode(r, &in); err != nil && !errors.Is(err, envelope.ErrEmptyBody) {
		envelope.MalformedBody(w, err)
		return
	}

	lead, err := h.svc.Update(r.Context(), owner, id, in, partial)
	if err != nil {
		h.writeError(w, err, "Failed to update lead")
		return
	}
	envelope.OK(w, http.StatusOK, "Lead updated successfully", lead)
}

// DeleteLead handles DELETE /leads/{id}/
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), owner, id); err != nil {
		h.writeError(w, err, "Failed to delete lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /leads/{id}/status/
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := leadID(w, r)
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := envelope.Decode(r, &req); err != nil && !errors.Is(err, envelope.ErrEmptyBody) {
		envelope.MalformedBody(w, err)
		return
	}

	lead, err := h.svc.UpdateStatus(r.Context(), owner, id, req)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			envelope.Fail(w, http.StatusNotFound, "Lead not found", nil)
			return
		}
		h.writeError(w, err, "Failed to update lead status")
		return
	}
	envelope.OK(w, http.StatusOK, "Lead status updated successfully", lead)
}

// LeadsByStatus handles GET /leads/by-status/
func (h *Handler) LeadsByStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	grouped, summary, err := h.stats.ByStatus(r.Context(), owner)
	if err != nil {
		h.writeError(w, err, "Failed to load leads")
		return
	}
	envelope.Write(w, http.StatusOK, envelope.Envelope{
		Success: true,
		Data:    grouped,
		Summary: summary,
	})
}

// Statistics handles GET /leads/statistics/
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Statistics(r.Context(), owner)
	if err != nil {
		h.writeError(w, err, "Failed to load statistics")
		return
	}
	envelope.OK(w, http.StatusOK, "", stats)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (tenancy.Owner, bool) {
	owner, ok := tenancy.OwnerFromContext(r.Context())
	if !ok {
		envelope.Fail(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
		return tenancy.Owner{}, false
	}
	return owner, true
}

// leadID parses the {id} path segment; malformed ids are reported as missing.
func leadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		envelope.Fail(w, http.StatusNotFound, "Not found.", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, failMessage string) {
	if verr, ok := validation.As(err); ok {
		envelope.Invalid(w, failMessage, verr)
		return
	}
	switch {
	case errors.Is(err, ErrLeadNotFound):
		envelope.Fail(w, http.StatusNotFound, "Not found.", nil)
	case errors.Is(err, ErrMissingOwner):
		envelope.Fail(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
	default:
		h.logger.Error(failMessage, "error", err)
		envelope.Fail(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

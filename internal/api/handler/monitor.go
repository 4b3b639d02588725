package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/evo-uds/wafmon/internal/api/request"
	"github.com/evo-uds/wafmon/internal/api/response"
	"github.com/evo-uds/wafmon/internal/core"
)

// Monitor handles WAF monitoring configuration endpoints.
type Monitor struct {
	svc *core.MonitoringService
}

// NewMonitor creates a new Monitor handler.
func NewMonitor(svc *core.MonitoringService) *Monitor {
	return &Monitor{svc: svc}
}

// Enable creates or re-enables a monitoring configuration and kicks off
// pipeline provisioning. Returns 202: provisioning completes asynchronously
// and the configuration starts out in status "provisioning".
func (h *Monitor) Enable(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateWafMonitor
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.Enable(r.Context(), core.EnableParams{
		TenantID:   tenantID,
		AccountID:  req.AccountID,
		WebACLArn:  req.WebACLArn,
		FilterMode: req.FilterMode,
	})
	if err != nil {
		writeMonitorError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, cfg)
}

// Get retrieves a monitoring configuration by ID.
func (h *Monitor) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeMonitorError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// ListByTenant lists a tenant's monitoring configurations with cursor-based
// pagination.
func (h *Monitor) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	configs, hasMore, err := h.svc.ListByTenant(r.Context(), tenantID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(configs) > 0 {
		nextCursor = configs[len(configs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, configs, nextCursor, hasMore)
}

// Disable stops log forwarding for a configuration. The row is kept with
// status "disabled" so history and re-enablement work.
func (h *Monitor) Disable(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.Disable(r.Context(), id)
	if err != nil {
		writeMonitorError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// ListResources enumerates the web ACLs in a tenant's account that could be
// monitored, marking the ones that already are.
func (h *Monitor) ListResources(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		response.WriteError(w, http.StatusBadRequest, "missing account_id query parameter")
		return
	}

	resources, err := h.svc.ListCandidateResources(r.Context(), tenantID, accountID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"items": resources})
}

// TestSetup runs a read-only diagnosis of the forwarding pipeline for a web
// ACL without changing anything.
func (h *Monitor) TestSetup(w http.ResponseWriter, r *http.Request) {
	var req request.TestWafSetup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	steps, err := h.svc.TestSetup(r.Context(), req.AccountID, req.WebACLArn)
	if err != nil {
		writeMonitorError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func writeMonitorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidFilterMode), errors.Is(err, core.ErrInvalidWebACLArn):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrWebACLNotFound), errors.Is(err, pgx.ErrNoRows):
		response.WriteError(w, http.StatusNotFound, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

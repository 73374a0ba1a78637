package analytics

import (
	"net/http"

	"github.com/orderhub/backend-oms/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Overview returns aggregated order metrics for the admin dashboard.
// GET /api/v1/admin/analytics/overview?days=N
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	days := common.AtoiDefault(r.URL.Query().Get("days"), 0)
	if days < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "days must be positive", nil)
		return
	}
	overview, err := h.Svc.Overview(r.Context(), h.Svc.Range(days))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": overview})
}

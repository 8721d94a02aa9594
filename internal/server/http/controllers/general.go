package controllers

import (
	"net/http"

	"github.com/rzbill/pubrt/internal/runtime"
	recordsvc "github.com/rzbill/pubrt/internal/services/records"
)

// GeneralController serves health and metrics.
type GeneralController struct {
	rt  *runtime.Runtime
	svc *recordsvc.Service
}

func NewGeneralController(rt *runtime.Runtime, svc *recordsvc.Service) *GeneralController {
	return &GeneralController{rt: rt, svc: svc}
}

// RegisterRoutes registers /health and /metrics.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", c.handleHealth)
	mux.Handle("/metrics", c.rt.Metrics().Handler())
}

// handleHealth returns {"status":"healthy","total_records":N}, or 503 when
// the store cannot serve.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResp{Status: "unhealthy", TotalRecords: c.svc.Count()})
		return
	}
	writeJSON(w, healthResp{Status: "healthy", TotalRecords: c.svc.Count()})
}

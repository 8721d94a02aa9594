package controllers

import (
	"net/http"

	"github.com/rzbill/pubrt/internal/runtime"
	recordsvc "github.com/rzbill/pubrt/internal/services/records"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	records *RecordsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *recordsvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, svc),
		records: NewRecordsController(svc, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.records.RegisterRoutes(mux)
}

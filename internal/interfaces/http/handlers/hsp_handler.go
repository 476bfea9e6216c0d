package handlers

import (
	"net/http"

	hspapp "github.com/turtacn/mixingcompass/internal/application/hsp"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// HSPHandler exposes stateless Hansen sphere fitting: callers send a full
// set of solvent tests and get a fitted sphere back without anything being
// persisted.
type HSPHandler struct {
	service hspapp.Service
	logger  logging.Logger
}

func NewHSPHandler(service hspapp.Service, logger logging.Logger) *HSPHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HSPHandler{service: service, logger: logger.Named("hsp_handler")}
}

// Calculate handles POST /api/v1/hsp/calculate.
func (h *HSPHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req hsptypes.CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.service.Calculate(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LossFunctions handles GET /api/v1/hsp/loss-functions.
func (h *HSPHandler) LossFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]hsptypes.LossFunctionInfo{
		"loss_functions": h.service.LossFunctions(),
	})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	expapp "github.com/turtacn/mixingcompass/internal/application/experiment"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	exptypes "github.com/turtacn/mixingcompass/pkg/types/experiment"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// ExperimentHandler exposes persisted solubility experiments and their
// sphere calculations.
type ExperimentHandler struct {
	service expapp.Service
	logger  logging.Logger
}

func NewExperimentHandler(service expapp.Service, logger logging.Logger) *ExperimentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExperimentHandler{service: service, logger: logger.Named("experiment_handler")}
}

// Create handles POST /api/v1/experiments.
func (h *ExperimentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req exptypes.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	dto, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// Get handles GET /api/v1/experiments/{experimentID}.
func (h *ExperimentHandler) Get(w http.ResponseWriter, r *http.Request) {
	dto, err := h.service.Get(r.Context(), chi.URLParam(r, "experimentID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// List handles GET /api/v1/experiments.
func (h *ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := parsePagination(r)
	req := exptypes.SearchRequest{
		Query:    r.URL.Query().Get("query"),
		Tag:      r.URL.Query().Get("tag"),
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	}
	if v := r.URL.Query().Get("calculated"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.Calculated = &b
		}
	}

	resp, err := h.service.List(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddTest handles POST /api/v1/experiments/{experimentID}/tests.
func (h *ExperimentHandler) AddTest(w http.ResponseWriter, r *http.Request) {
	var test hsptypes.SolventTestInput
	if err := decodeJSON(r, &test); err != nil {
		writeAppError(w, err)
		return
	}

	dto, err := h.service.AddTest(r.Context(), chi.URLParam(r, "experimentID"), test)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Delete handles DELETE /api/v1/experiments/{experimentID}.
func (h *ExperimentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "experimentID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Calculate handles POST /api/v1/experiments/{experimentID}/calculate.
// The body is optional; an empty body runs a default sphere fit.
func (h *ExperimentHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	opts := &exptypes.CalculateOptions{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, opts); err != nil {
			writeAppError(w, err)
			return
		}
	}

	dto, err := h.service.Calculate(r.Context(), chi.URLParam(r, "experimentID"), opts)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Visualization handles GET /api/v1/experiments/{experimentID}/visualization.
func (h *ExperimentHandler) Visualization(w http.ResponseWriter, r *http.Request) {
	figure, err := h.service.Visualize(r.Context(), chi.URLParam(r, "experimentID"), r.URL.Query().Get("format"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, figure)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	solventapp "github.com/turtacn/mixingcompass/internal/application/solvent"
	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// maxImportBody caps CSV uploads at 16 MiB.
const maxImportBody = 16 << 20

// SolventHandler exposes the solvent reference database.
type SolventHandler struct {
	service solventapp.Service
	logger  logging.Logger
}

func NewSolventHandler(service solventapp.Service, logger logging.Logger) *SolventHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SolventHandler{service: service, logger: logger.Named("solvent_handler")}
}

// Create handles POST /api/v1/solvents.
func (h *SolventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req stypes.CreateRequest
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

// Get handles GET /api/v1/solvents/{solventID}.
func (h *SolventHandler) Get(w http.ResponseWriter, r *http.Request) {
	dto, err := h.service.Get(r.Context(), chi.URLParam(r, "solventID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Lookup handles GET /api/v1/solvents/lookup?q=<name-or-CAS>.
func (h *SolventHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeAppError(w, errors.New(errors.ErrCodeBadRequest, "query parameter q is required"))
		return
	}

	dto, err := h.service.Lookup(r.Context(), q)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// List handles GET /api/v1/solvents with optional query/source/range filters.
func (h *SolventHandler) List(w http.ResponseWriter, r *http.Request) {
	req := stypes.SearchRequest{
		Query:      r.URL.Query().Get("query"),
		Source:     r.URL.Query().Get("source"),
		DeltaD:     rangeFromQuery(r, "delta_d"),
		DeltaP:     rangeFromQuery(r, "delta_p"),
		DeltaH:     rangeFromQuery(r, "delta_h"),
		Pagination: parsePagination(r),
	}

	resp, err := h.service.Search(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles POST /api/v1/solvents/search for filter combinations that
// are unwieldy as query strings.
func (h *SolventHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req stypes.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	resp, err := h.service.Search(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/solvents/{solventID}.
func (h *SolventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "solventID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportCSV handles POST /api/v1/solvents/import with a text/csv body.
func (h *SolventHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	summary, err := h.service.ImportCSV(r.Context(), body, domainsol.SourceUser)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportCSV handles GET /api/v1/solvents/export.
func (h *SolventHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="solvents.csv"`)
	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		// Headers are already sent; log instead of writing a JSON error
		// into the CSV stream.
		h.logger.Error("solvent export failed", logging.Err(err))
	}
}

// rangeFromQuery reads <name>_min / <name>_max query parameters.
func rangeFromQuery(r *http.Request, name string) *stypes.RangeFilter {
	var f stypes.RangeFilter
	set := false
	if v := r.URL.Query().Get(name + "_min"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.Min = &n
			set = true
		}
	}
	if v := r.URL.Query().Get(name + "_max"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.Max = &n
			set = true
		}
	}
	if !set {
		return nil
	}
	return &f
}

package handlers

import (
	"net/http"
	"time"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mixingcompass/internal/intelligence/hsppredictor"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// PredictorHandler exposes descriptor-based HSP prediction from SMILES
// strings.
type PredictorHandler struct {
	predictor *hsppredictor.Predictor
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewPredictorHandler builds the handler.  metrics may be nil.
func NewPredictorHandler(predictor *hsppredictor.Predictor, metrics *prometheus.AppMetrics, logger logging.Logger) *PredictorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictorHandler{predictor: predictor, metrics: metrics, logger: logger.Named("predictor_handler")}
}

// PredictRequest is the body for POST /api/v1/predict/smiles.
type PredictRequest struct {
	SMILES string `json:"smiles"`
}

// Predict handles POST /api/v1/predict/smiles.
func (h *PredictorHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if req.SMILES == "" {
		writeAppError(w, errors.New(errors.ErrCodeBadRequest, "smiles is required"))
		return
	}

	start := time.Now()
	prediction, err := h.predictor.Predict(r.Context(), req.SMILES)
	if h.metrics != nil {
		prometheus.RecordPrediction(h.metrics, err == nil, time.Since(start))
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

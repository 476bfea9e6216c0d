package hsppredictor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// ---------------------------------------------------------------------------
// Model weights
// ---------------------------------------------------------------------------

// Head is one linear regression head: y = Bias + Coef·features, clamped to
// [Min, Max].
type Head struct {
	Bias float64   `json:"bias"`
	Coef []float64 `json:"coef"`
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
}

func (h Head) apply(features []float64) float64 {
	y := h.Bias
	for i, f := range features {
		if i >= len(h.Coef) {
			break
		}
		y += h.Coef[i] * f
	}
	if y < h.Min {
		y = h.Min
	}
	if y > h.Max {
		y = h.Max
	}
	return y
}

// Weights is the serialized model: one head per predicted target.
type Weights struct {
	Version      string `json:"version"`
	DeltaD       Head   `json:"delta_d"`
	DeltaP       Head   `json:"delta_p"`
	DeltaH       Head   `json:"delta_h"`
	BoilingPoint Head   `json:"boiling_point"`
}

// Validate checks coefficient dimensions against the featurizer.
func (w *Weights) Validate() error {
	for name, h := range map[string]Head{
		"delta_d": w.DeltaD, "delta_p": w.DeltaP,
		"delta_h": w.DeltaH, "boiling_point": w.BoilingPoint,
	} {
		if len(h.Coef) != FeatureDim {
			return errors.Newf(errors.ErrCodePredictorModelNotLoaded,
				"head %s has %d coefficients, featurizer produces %d", name, len(h.Coef), FeatureDim)
		}
		if h.Max <= h.Min {
			return errors.Newf(errors.ErrCodePredictorModelNotLoaded,
				"head %s has empty clamp range [%g, %g]", name, h.Min, h.Max)
		}
	}
	return nil
}

// DefaultWeights returns a baseline model fitted on the built-in solvent
// table.  It keeps the predictor usable without a weights file; deployments
// with a retrained model point PredictorConfig.ModelPath at their JSON.
func DefaultWeights() *Weights {
	return &Weights{
		Version: "builtin-1",
		DeltaD: Head{
			Bias: 15.2,
			Coef: []float64{1.1, 0.4, 0.3, -0.2, 1.8, 1.2, 2.6, 0.8, 0.3, 0.2, -0.4, -0.3, -0.2, 0.5, -0.3, 1.0},
			Min:  12, Max: 25,
		},
		DeltaP: Head{
			Bias: 2.0,
			Coef: []float64{-0.5, -1.2, 3.5, 2.8, 1.5, 2.2, 0.4, 0.2, 1.0, 2.5, 2.0, 5.5, 2.4, 6.0, 0.1, 8.0},
			Min:  0, Max: 30,
		},
		DeltaH: Head{
			Bias: 1.5,
			Coef: []float64{-0.8, -1.5, 2.5, 3.0, 0.5, 0.3, 0.2, 0.1, 0.4, 0.8, 9.0, 2.2, 1.6, 1.8, 0.1, 7.0},
			Min:  0, Max: 45,
		},
		BoilingPoint: Head{
			Bias: 45,
			Coef: []float64{95, 30, 25, 30, 45, 20, 40, 35, 10, 5, 55, 30, 15, 35, -8, 20},
			Min:  -50, Max: 400,
		},
	}
}

// ---------------------------------------------------------------------------
// Predictor
// ---------------------------------------------------------------------------

// Prediction is one SMILES → HSP estimate.
type Prediction struct {
	SMILES       string  `json:"smiles"`
	DeltaD       float64 `json:"delta_d"`
	DeltaP       float64 `json:"delta_p"`
	DeltaH       float64 `json:"delta_h"`
	BoilingPoint float64 `json:"boiling_point"`
	ModelVersion string  `json:"model_version"`
}

// Predictor serves HSP predictions from an immutable weight set.  Loading a
// new weight file swaps the whole set atomically; in-flight predictions keep
// the set they started with.
type Predictor struct {
	mu      sync.RWMutex
	weights *Weights
	logger  logging.Logger
}

// NewPredictor constructs a predictor with the built-in baseline weights.
func NewPredictor(logger logging.Logger) *Predictor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Predictor{
		weights: DefaultWeights(),
		logger:  logger.Named("hsppredictor"),
	}
}

// LoadWeights replaces the model with the JSON weight file at path.
func (p *Predictor) LoadWeights(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePredictorModelNotLoaded,
			fmt.Sprintf("cannot read weights file %s", path))
	}
	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, errors.ErrCodePredictorModelNotLoaded,
			fmt.Sprintf("cannot parse weights file %s", path))
	}
	if err := w.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	p.weights = &w
	p.mu.Unlock()

	p.logger.Info("loaded predictor weights",
		logging.String("path", path),
		logging.String("version", w.Version))
	return nil
}

// Predict estimates Hansen parameters for one SMILES string.
func (p *Predictor) Predict(ctx context.Context, smiles string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "prediction cancelled")
	}

	start := time.Now()
	features, err := Featurize(smiles)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	w := p.weights
	p.mu.RUnlock()
	if w == nil {
		return nil, errors.New(errors.ErrCodePredictorModelNotLoaded, "no predictor weights loaded")
	}

	pred := &Prediction{
		SMILES:       smiles,
		DeltaD:       w.DeltaD.apply(features),
		DeltaP:       w.DeltaP.apply(features),
		DeltaH:       w.DeltaH.apply(features),
		BoilingPoint: w.BoilingPoint.apply(features),
		ModelVersion: w.Version,
	}

	p.logger.Debug("predicted HSP from SMILES",
		logging.String("smiles", smiles),
		logging.Float64("delta_d", pred.DeltaD),
		logging.Float64("delta_p", pred.DeltaP),
		logging.Float64("delta_h", pred.DeltaH),
		logging.Duration("elapsed", time.Since(start)))
	return pred, nil
}

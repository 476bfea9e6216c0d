// Package hsp provides the application-level service for Hansen sphere
// calculations.  It resolves solvent identifiers against the solvent
// database, dispatches between the full sphere fit and the radius-only
// heuristic, and maps domain results onto the transport DTOs.
package hsp

import (
	"context"
	"fmt"
	"math"
	"time"

	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// SolventResolver looks up solvent coordinates by name or CAS number.  The
// domain solvent service satisfies it; tests use an in-memory stub.
type SolventResolver interface {
	Lookup(ctx context.Context, nameOrCAS string) (*domainsol.Solvent, error)
}

// FitMetrics records fit timings.  Nil-safe at the call sites so the CLI can
// run without a metrics registry.
type FitMetrics interface {
	ObserveFit(mode, loss string, elapsed time.Duration, converged bool)
}

// Service defines the application operations for sphere fitting.
type Service interface {
	// Calculate runs one fit and returns the transport-level response.
	Calculate(ctx context.Context, req *hsptypes.CalculateRequest) (*hsptypes.CalculateResponse, error)

	// Fit runs one fit and returns the domain result, for callers that
	// need to persist it (experiments) rather than serialize it.
	Fit(ctx context.Context, req *hsptypes.CalculateRequest) (*domainhsp.FitResult, []domainhsp.SolventObservation, error)

	// ResolveObservations turns request test rows into domain
	// observations, looking up named solvents in the database.
	ResolveObservations(ctx context.Context, tests []hsptypes.SolventTestInput) ([]domainhsp.SolventObservation, error)

	// LossFunctions lists the available loss variants.
	LossFunctions() []hsptypes.LossFunctionInfo
}

type serviceImpl struct {
	solvents  SolventResolver
	estimator *domainhsp.Estimator
	radius    *domainhsp.RadiusOnlyOptimizer
	metrics   FitMetrics
	logger    logging.Logger
}

// NewService creates the sphere-calculation application service.  metrics may
// be nil.
func NewService(solvents SolventResolver, estimator *domainhsp.Estimator, radius *domainhsp.RadiusOnlyOptimizer, metrics FitMetrics, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &serviceImpl{
		solvents:  solvents,
		estimator: estimator,
		radius:    radius,
		metrics:   metrics,
		logger:    logger.Named("hsp_app"),
	}
}

func (s *serviceImpl) Calculate(ctx context.Context, req *hsptypes.CalculateRequest) (*hsptypes.CalculateResponse, error) {
	fit, _, err := s.Fit(ctx, req)
	if err != nil {
		return nil, err
	}
	loss := req.Loss
	if req.Mode == hsptypes.ModeRadiusOnly {
		loss = string(domainhsp.LossCrossEntropy)
	} else if loss == "" {
		loss = string(domainhsp.DefaultLossKind)
	}
	return ToResponse(fit, loss), nil
}

func (s *serviceImpl) Fit(ctx context.Context, req *hsptypes.CalculateRequest) (*domainhsp.FitResult, []domainhsp.SolventObservation, error) {
	if req == nil {
		return nil, nil, errors.InvalidParam("calculation request is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = hsptypes.ModeSphere
	}
	if mode != hsptypes.ModeSphere && mode != hsptypes.ModeRadiusOnly {
		return nil, nil, errors.Newf(errors.ErrCodeExperimentInvalidMode,
			"unknown fit mode %q", mode)
	}

	obs, err := s.ResolveObservations(ctx, req.Tests)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	var fit *domainhsp.FitResult
	switch mode {
	case hsptypes.ModeRadiusOnly:
		fit, err = s.radius.Fit(ctx, obs, domainhsp.RadiusOnlyOptions{
			Seed:         req.Seed,
			AccuracyScan: req.AccuracyScan,
		})
	default:
		kind := domainhsp.DefaultLossKind
		if req.Loss != "" {
			var kerr error
			if kind, kerr = domainhsp.ParseLossKind(req.Loss); kerr != nil {
				return nil, nil, kerr
			}
		}
		fit, err = s.estimator.Fit(ctx, obs, domainhsp.FitOptions{
			Loss: domainhsp.LossConfig{Kind: kind, SizeFactor: req.SizeFactor},
			Seed: req.Seed,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveFit(mode, req.Loss, time.Since(start), fit.Converged)
	}
	s.logger.Info("sphere calculation finished",
		logging.String("mode", mode),
		logging.Int("observations", len(obs)),
		logging.Float64("accuracy", fit.Accuracy),
		logging.Bool("converged", fit.Converged),
		logging.Duration("elapsed", time.Since(start)))
	return fit, obs, nil
}

// ResolveObservations turns request test rows into domain observations.
// Explicit coordinates win over a database lookup; a row with neither fails
// the whole request.
func (s *serviceImpl) ResolveObservations(ctx context.Context, tests []hsptypes.SolventTestInput) ([]domainhsp.SolventObservation, error) {
	obs := make([]domainhsp.SolventObservation, 0, len(tests))
	for i, t := range tests {
		switch {
		case t.HasCoordinates():
			name := t.SolventName
			if name == "" {
				name = fmt.Sprintf("sample %d", i+1)
			}
			obs = append(obs, domainhsp.SolventObservation{
				Name:  name,
				Point: domainhsp.NewHSPPoint(*t.DeltaD, *t.DeltaP, *t.DeltaH),
				Score: t.Score,
			})
		case t.SolventName != "":
			if s.solvents == nil {
				return nil, errors.Newf(errors.ErrCodeSolventNotFound,
					"no solvent database configured to resolve %q", t.SolventName)
			}
			sol, err := s.solvents.Lookup(ctx, t.SolventName)
			if err != nil {
				return nil, err
			}
			obs = append(obs, domainhsp.SolventObservation{
				Name:  sol.Name,
				Point: sol.HSPPoint(),
				Score: t.Score,
			})
		default:
			return nil, errors.Newf(errors.ErrCodeExperimentInvalidTest,
				"test %d needs either a solvent name or explicit δD/δP/δH coordinates", i+1)
		}
	}
	return obs, nil
}

func (s *serviceImpl) LossFunctions() []hsptypes.LossFunctionInfo {
	descriptions := map[domainhsp.LossKind]string{
		domainhsp.LossBoundaryDistance:     "hinge on the distance to the sphere boundary",
		domainhsp.LossProportionalBoundary: "boundary hinge scaled by the observed score",
		domainhsp.LossLogBarrier:           "logarithmic barrier near the boundary",
		domainhsp.LossNormalizedDistance:   "hinge on RED rather than absolute distance",
		domainhsp.LossCrossEntropy:         "binary cross-entropy on a sigmoid of RED",
		domainhsp.LossContinuousL2:         "squared error against the continuous score",
	}

	kinds := domainhsp.AllLossKinds()
	infos := make([]hsptypes.LossFunctionInfo, 0, len(kinds))
	for _, k := range kinds {
		infos = append(infos, hsptypes.LossFunctionInfo{
			Name:        string(k),
			Default:     k == domainhsp.DefaultLossKind,
			Description: descriptions[k],
		})
	}
	return infos
}

// ToResponse maps a domain fit result onto the transport DTO.  A +Inf RaMax
// becomes a nil pointer since JSON has no representation for infinity.
func ToResponse(fit *domainhsp.FitResult, loss string) *hsptypes.CalculateResponse {
	if fit == nil {
		return nil
	}

	perSample := make([]hsptypes.SampleResultDTO, len(fit.PerSample))
	for i, d := range fit.PerSample {
		perSample[i] = hsptypes.SampleResultDTO{
			Name:            d.Name,
			RED:             d.RED,
			PredictedInside: d.PredictedInside,
			Correct:         d.Correct,
		}
	}

	resp := &hsptypes.CalculateResponse{
		Sphere: hsptypes.SphereDTO{
			DeltaD: fit.Sphere.Center.D,
			DeltaP: fit.Sphere.Center.P,
			DeltaH: fit.Sphere.Center.H,
			Radius: fit.Sphere.Radius,
		},
		Loss:      loss,
		LossValue: fit.LossValue,
		Accuracy:  fit.Accuracy,
		Converged: fit.Converged,
		PerSample: perSample,
	}

	if fit.Details != nil {
		details := &hsptypes.CalculationDetailsDTO{
			RaMin:    fit.Details.RaMin,
			Feasible: fit.Details.Feasible,
			Branch:   fit.Details.Branch,
		}
		if !math.IsInf(fit.Details.RaMax, 1) {
			raMax := fit.Details.RaMax
			details.RaMax = &raMax
		}
		resp.Details = details
	}
	return resp
}

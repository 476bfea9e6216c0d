// Package experiment provides the application-level service for solubility
// experiments: CRUD over the experiment store, running sphere calculations
// on an experiment's tests, publishing result events and producing the
// visualization payload.
package experiment

import (
	"context"
	"time"

	hspapp "github.com/turtacn/mixingcompass/internal/application/hsp"
	domainexp "github.com/turtacn/mixingcompass/internal/domain/experiment"
	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/visualization"
	"github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	exptypes "github.com/turtacn/mixingcompass/pkg/types/experiment"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// Service defines the application operations over experiments.
type Service interface {
	Create(ctx context.Context, req *exptypes.CreateRequest) (*exptypes.ExperimentDTO, error)
	Get(ctx context.Context, id string) (*exptypes.ExperimentDTO, error)
	List(ctx context.Context, req *exptypes.SearchRequest) (*exptypes.ListResponse, error)
	AddTest(ctx context.Context, id string, test hsptypes.SolventTestInput) (*exptypes.ExperimentDTO, error)
	Delete(ctx context.Context, id string) error

	// Calculate fits a Hansen sphere to the experiment's tests, records
	// the result snapshot and publishes an experiment.calculated event.
	Calculate(ctx context.Context, id string, opts *exptypes.CalculateOptions) (*exptypes.ExperimentDTO, error)

	// Visualize renders the experiment's fitted sphere and its test points
	// as a Plotly figure.
	Visualize(ctx context.Context, id string, format string) (*visualization.Figure, error)
}

type serviceImpl struct {
	repo      domainexp.Repository
	fitter    hspapp.Service
	publisher domainexp.EventPublisher
	viz       *visualization.Builder
	logger    logging.Logger
}

// NewService creates the experiment application service.  publisher may be
// nil; it degrades to the nop publisher.
func NewService(repo domainexp.Repository, fitter hspapp.Service, publisher domainexp.EventPublisher, viz *visualization.Builder, logger logging.Logger) Service {
	if publisher == nil {
		publisher = domainexp.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &serviceImpl{
		repo:      repo,
		fitter:    fitter,
		publisher: publisher,
		viz:       viz,
		logger:    logger.Named("experiment_app"),
	}
}

func (s *serviceImpl) Create(ctx context.Context, req *exptypes.CreateRequest) (*exptypes.ExperimentDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("create request is required")
	}

	exp, err := domainexp.NewExperiment(req.SampleName, req.Description, req.Tags, testsFromInputs(req.Tests))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, exp); err != nil {
		return nil, err
	}

	s.logger.Info("experiment created",
		logging.String("experiment_id", string(exp.ID)),
		logging.String("sample", exp.SampleName),
		logging.Int("tests", len(exp.Tests)))
	return toDTO(exp), nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*exptypes.ExperimentDTO, error) {
	exp, err := s.repo.FindByID(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	return toDTO(exp), nil
}

func (s *serviceImpl) List(ctx context.Context, req *exptypes.SearchRequest) (*exptypes.ListResponse, error) {
	if req == nil {
		req = &exptypes.SearchRequest{}
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := domainexp.SearchFilter{
		Query:      req.Query,
		Tag:        req.Tag,
		Calculated: req.Calculated,
		Pagination: common.Pagination{Page: page, PageSize: pageSize},
	}
	exps, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]*exptypes.ExperimentDTO, len(exps))
	for i, exp := range exps {
		dtos[i] = toDTO(exp)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &exptypes.ListResponse{
		Experiments: dtos,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	}, nil
}

func (s *serviceImpl) AddTest(ctx context.Context, id string, test hsptypes.SolventTestInput) (*exptypes.ExperimentDTO, error) {
	exp, err := s.repo.FindByID(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	if err := exp.AddTest(testFromInput(test)); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, exp); err != nil {
		return nil, err
	}
	return toDTO(exp), nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, common.ID(id)); err != nil {
		return err
	}

	event := domainexp.DeletedEvent{
		ExperimentID: common.ID(id),
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Event delivery must not undo the deletion.
		s.logger.Warn("failed to publish experiment deletion event",
			logging.String("experiment_id", id),
			logging.Err(errors.Wrap(err, errors.ErrCodeExperimentPublishFailed, "publish failed")))
	}
	return nil
}

func (s *serviceImpl) Calculate(ctx context.Context, id string, opts *exptypes.CalculateOptions) (*exptypes.ExperimentDTO, error) {
	if opts == nil {
		opts = &exptypes.CalculateOptions{}
	}
	exp, err := s.repo.FindByID(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}

	req := &hsptypes.CalculateRequest{
		Tests:        inputsFromTests(exp.Tests),
		Loss:         opts.Loss,
		SizeFactor:   opts.SizeFactor,
		Mode:         opts.Mode,
		AccuracyScan: opts.AccuracyScan,
		Seed:         opts.Seed,
	}
	fit, _, err := s.fitter.Fit(ctx, req)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = hsptypes.ModeSphere
	}
	loss := opts.Loss
	if mode == hsptypes.ModeRadiusOnly {
		loss = string(domainhsp.LossCrossEntropy)
	} else if loss == "" {
		loss = string(domainhsp.DefaultLossKind)
	}

	exp.SetResult(mode, loss, fit)
	if err := s.repo.Save(ctx, exp); err != nil {
		return nil, err
	}

	event := domainexp.CalculatedEvent{
		ExperimentID: exp.ID,
		SampleName:   exp.SampleName,
		Mode:         mode,
		Loss:         loss,
		DeltaD:       fit.Sphere.Center.D,
		DeltaP:       fit.Sphere.Center.P,
		DeltaH:       fit.Sphere.Center.H,
		Radius:       fit.Sphere.Radius,
		Accuracy:     fit.Accuracy,
		Converged:    fit.Converged,
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The calculation already succeeded and is persisted; a broker
		// outage only costs downstream consumers the notification.
		s.logger.Warn("failed to publish experiment calculation event",
			logging.String("experiment_id", string(exp.ID)),
			logging.Err(errors.Wrap(err, errors.ErrCodeExperimentPublishFailed, "publish failed")))
	}

	return toDTO(exp), nil
}

func (s *serviceImpl) Visualize(ctx context.Context, id string, format string) (*visualization.Figure, error) {
	if _, err := visualization.ParseFormat(format); err != nil {
		return nil, err
	}
	exp, err := s.repo.FindByID(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	sphere, err := exp.Sphere()
	if err != nil {
		return nil, err
	}
	obs, err := s.fitter.ResolveObservations(ctx, inputsFromTests(exp.Tests))
	if err != nil {
		return nil, err
	}
	return s.viz.Render(sphere, obs, visualization.Options{})
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping helpers
// ─────────────────────────────────────────────────────────────────────────────

func testFromInput(in hsptypes.SolventTestInput) domainexp.SolventTest {
	return domainexp.SolventTest{
		SolventName: in.SolventName,
		DeltaD:      in.DeltaD,
		DeltaP:      in.DeltaP,
		DeltaH:      in.DeltaH,
		Score:       in.Score,
	}
}

func testsFromInputs(inputs []hsptypes.SolventTestInput) []domainexp.SolventTest {
	tests := make([]domainexp.SolventTest, len(inputs))
	for i, in := range inputs {
		tests[i] = testFromInput(in)
	}
	return tests
}

func inputsFromTests(tests []domainexp.SolventTest) []hsptypes.SolventTestInput {
	inputs := make([]hsptypes.SolventTestInput, len(tests))
	for i, t := range tests {
		inputs[i] = hsptypes.SolventTestInput{
			SolventName: t.SolventName,
			DeltaD:      t.DeltaD,
			DeltaP:      t.DeltaP,
			DeltaH:      t.DeltaH,
			Score:       t.Score,
		}
	}
	return inputs
}

func toDTO(exp *domainexp.Experiment) *exptypes.ExperimentDTO {
	if exp == nil {
		return nil
	}
	dto := &exptypes.ExperimentDTO{
		ID:          string(exp.ID),
		SampleName:  exp.SampleName,
		Description: exp.Description,
		Tags:        exp.Tags,
		Tests:       inputsFromTests(exp.Tests),
		CreatedAt:   exp.CreatedAt,
		UpdatedAt:   exp.UpdatedAt,
	}
	if exp.Result != nil {
		dto.Result = &exptypes.ResultDTO{
			Mode:        exp.Result.Mode,
			FittedAt:    exp.Result.FittedAt,
			Calculation: hspapp.ToResponse(exp.Result.Fit, exp.Result.Loss),
		}
	}
	return dto
}

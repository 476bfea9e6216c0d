package experiment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hspapp "github.com/turtacn/mixingcompass/internal/application/hsp"
	domainexp "github.com/turtacn/mixingcompass/internal/domain/experiment"
	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/internal/testutil"
	"github.com/turtacn/mixingcompass/internal/visualization"
	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	exptypes "github.com/turtacn/mixingcompass/pkg/types/experiment"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// memoryRepo is an in-memory experiment repository.
type memoryRepo struct {
	mu    sync.Mutex
	items map[common.ID]*domainexp.Experiment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[common.ID]*domainexp.Experiment{}}
}

func (r *memoryRepo) Save(_ context.Context, e *domainexp.Experiment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.ID] = e
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id common.ID) (*domainexp.Experiment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[id]; ok {
		return e, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeExperimentNotFound, "experiment not found")
}

func (r *memoryRepo) Search(_ context.Context, filter domainexp.SearchFilter) ([]*domainexp.Experiment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainexp.Experiment
	for _, e := range r.items {
		if filter.Query != "" && !strings.Contains(strings.ToLower(e.SampleName), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Calculated != nil && (e.Result != nil) != *filter.Calculated {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SampleName < out[j].SampleName })
	return out, int64(len(out)), nil
}

func (r *memoryRepo) Delete(_ context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.New(apperrors.ErrCodeExperimentNotFound, "experiment not found")
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domainexp.DomainEvent
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, e domainexp.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return apperrors.New(apperrors.ErrCodeExperimentPublishFailed, "broker down")
	}
	p.events = append(p.events, e)
	return nil
}

func newTestService(t *testing.T, publisher domainexp.EventPublisher) (Service, *memoryRepo) {
	t.Helper()
	logger := testutil.NewMockLogger()
	estimator := domainhsp.NewEstimator(logger)
	radius := domainhsp.NewRadiusOnlyOptimizer(estimator, logger)
	fitter := hspapp.NewService(nil, estimator, radius, nil, logger)
	repo := newMemoryRepo()
	svc := NewService(repo, fitter, publisher, visualization.NewBuilder(logger), logger)
	return svc, repo
}

func f64(v float64) *float64 { return &v }

func createRequest() *exptypes.CreateRequest {
	return &exptypes.CreateRequest{
		SampleName: "polymer-A",
		Tags:       []string{"pilot"},
		Tests: []hsptypes.SolventTestInput{
			{SolventName: "good", DeltaD: f64(17), DeltaP: f64(8), DeltaH: f64(9), Score: 1.0},
			{SolventName: "poor", DeltaD: f64(15.5), DeltaP: f64(16), DeltaH: f64(42), Score: 0.0},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)
	assert.Equal(t, "polymer-A", dto.SampleName)
	assert.Len(t, dto.Tests, 2)
	assert.Nil(t, dto.Result)

	got, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, got.ID)
}

func TestCreateRejectsEmptySampleName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	_, err := svc.Create(context.Background(), &exptypes.CreateRequest{SampleName: "  "})
	require.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExperimentNotFound))
}

func TestAddTest(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	updated, err := svc.AddTest(context.Background(), dto.ID, hsptypes.SolventTestInput{
		SolventName: "middle", DeltaD: f64(16), DeltaP: f64(10), DeltaH: f64(12), Score: 0.5,
	})
	require.NoError(t, err)
	assert.Len(t, updated.Tests, 3)
}

func TestCalculateRecordsResultAndPublishes(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	svc, _ := newTestService(t, publisher)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	calculated, err := svc.Calculate(context.Background(), dto.ID, &exptypes.CalculateOptions{Seed: 42})
	require.NoError(t, err)

	require.NotNil(t, calculated.Result)
	assert.Equal(t, hsptypes.ModeSphere, calculated.Result.Mode)
	require.NotNil(t, calculated.Result.Calculation)
	assert.Equal(t, string(domainhsp.DefaultLossKind), calculated.Result.Calculation.Loss)
	assert.Equal(t, 1.0, calculated.Result.Calculation.Accuracy)

	require.Len(t, publisher.events, 1)
	event, ok := publisher.events[0].(domainexp.CalculatedEvent)
	require.True(t, ok)
	assert.Equal(t, "experiment.calculated", event.EventType())
	assert.Equal(t, dto.ID, string(event.ExperimentID))
	assert.Equal(t, 1.0, event.Accuracy)
}

func TestCalculateRadiusOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	calculated, err := svc.Calculate(context.Background(), dto.ID, &exptypes.CalculateOptions{
		Mode: hsptypes.ModeRadiusOnly,
		Seed: 42,
	})
	require.NoError(t, err)
	require.NotNil(t, calculated.Result)
	assert.Equal(t, hsptypes.ModeRadiusOnly, calculated.Result.Mode)
	require.NotNil(t, calculated.Result.Calculation.Details)
}

func TestCalculatePublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{fail: true}
	svc, repo := newTestService(t, publisher)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	calculated, err := svc.Calculate(context.Background(), dto.ID, &exptypes.CalculateOptions{Seed: 42})
	require.NoError(t, err)
	require.NotNil(t, calculated.Result)

	// The result snapshot is persisted despite the broker failure.
	stored, err := repo.FindByID(context.Background(), common.ID(dto.ID))
	require.NoError(t, err)
	require.NotNil(t, stored.Result)
}

func TestCalculateTooFewTests(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	dto, err := svc.Create(context.Background(), &exptypes.CreateRequest{
		SampleName: "sparse",
		Tests: []hsptypes.SolventTestInput{
			{DeltaD: f64(17), DeltaP: f64(8), DeltaH: f64(9), Score: 1.0},
		},
	})
	require.NoError(t, err)

	_, err = svc.Calculate(context.Background(), dto.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeHSPInsufficientData))
}

func TestDeletePublishesEvent(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	svc, _ := newTestService(t, publisher)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), dto.ID))

	_, err = svc.Get(context.Background(), dto.ID)
	require.Error(t, err)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "experiment.deleted", publisher.events[0].EventType())
}

func TestVisualize(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	dto, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	// Unfitted experiments cannot be rendered.
	_, err = svc.Visualize(context.Background(), dto.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExperimentNotFitted))

	_, err = svc.Calculate(context.Background(), dto.ID, &exptypes.CalculateOptions{Seed: 42})
	require.NoError(t, err)

	fig, err := svc.Visualize(context.Background(), dto.ID, "plotly")
	require.NoError(t, err)
	require.NotEmpty(t, fig.Data)

	_, err = svc.Visualize(context.Background(), dto.ID, "gnuplot")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeVisualizationUnsupported))
}

func TestList(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	for _, name := range []string{"alpha", "beta"} {
		req := createRequest()
		req.SampleName = name
		_, err := svc.Create(context.Background(), req)
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), &exptypes.SearchRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 1, list.TotalPages)

	filtered, err := svc.List(context.Background(), &exptypes.SearchRequest{Query: "alp"})
	require.NoError(t, err)
	require.Len(t, filtered.Experiments, 1)
	assert.Equal(t, "alpha", filtered.Experiments[0].SampleName)
}

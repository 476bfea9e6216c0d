package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/intelligence/hsppredictor"
	"github.com/turtacn/mixingcompass/internal/visualization"
	"github.com/turtacn/mixingcompass/pkg/errors"
	exptypes "github.com/turtacn/mixingcompass/pkg/types/experiment"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// ─────────────────────────────────────────────────────────────────────────────
// Service mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockHSPService struct {
	calculateResp *hsptypes.CalculateResponse
	calculateErr  error
	lastRequest   *hsptypes.CalculateRequest
}

func (m *mockHSPService) Calculate(_ context.Context, req *hsptypes.CalculateRequest) (*hsptypes.CalculateResponse, error) {
	m.lastRequest = req
	return m.calculateResp, m.calculateErr
}

func (m *mockHSPService) Fit(context.Context, *hsptypes.CalculateRequest) (*domainhsp.FitResult, []domainhsp.SolventObservation, error) {
	panic("not used by handlers")
}

func (m *mockHSPService) ResolveObservations(context.Context, []hsptypes.SolventTestInput) ([]domainhsp.SolventObservation, error) {
	panic("not used by handlers")
}

func (m *mockHSPService) LossFunctions() []hsptypes.LossFunctionInfo {
	return []hsptypes.LossFunctionInfo{
		{Name: "continuous_l2", Default: true, Description: "squared hinge on RED"},
		{Name: "cross_entropy", Description: "log loss on sigmoid(1-RED)"},
	}
}

type mockSolventService struct {
	dto       *stypes.SolventDTO
	searchRes *stypes.SearchResponse
	summary   *stypes.ImportSummary
	err       error

	lastSearch  *stypes.SearchRequest
	lastLookup  string
	lastImport  string
	lastSource  solvent.Source
	exportBody  string
	deleteCalls []string
}

func (m *mockSolventService) Create(_ context.Context, _ *stypes.CreateRequest) (*stypes.SolventDTO, error) {
	return m.dto, m.err
}

func (m *mockSolventService) Get(_ context.Context, _ string) (*stypes.SolventDTO, error) {
	return m.dto, m.err
}

func (m *mockSolventService) Lookup(_ context.Context, nameOrCAS string) (*stypes.SolventDTO, error) {
	m.lastLookup = nameOrCAS
	return m.dto, m.err
}

func (m *mockSolventService) Search(_ context.Context, req *stypes.SearchRequest) (*stypes.SearchResponse, error) {
	m.lastSearch = req
	return m.searchRes, m.err
}

func (m *mockSolventService) Delete(_ context.Context, id string) error {
	m.deleteCalls = append(m.deleteCalls, id)
	return m.err
}

func (m *mockSolventService) ImportCSV(_ context.Context, r io.Reader, source solvent.Source) (*stypes.ImportSummary, error) {
	data, _ := io.ReadAll(r)
	m.lastImport = string(data)
	m.lastSource = source
	return m.summary, m.err
}

func (m *mockSolventService) ExportCSV(_ context.Context, w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, m.exportBody)
	return err
}

type mockExperimentService struct {
	dto    *exptypes.ExperimentDTO
	list   *exptypes.ListResponse
	figure *visualization.Figure
	err    error

	lastList   *exptypes.SearchRequest
	lastOpts   *exptypes.CalculateOptions
	lastID     string
	lastFormat string
}

func (m *mockExperimentService) Create(_ context.Context, _ *exptypes.CreateRequest) (*exptypes.ExperimentDTO, error) {
	return m.dto, m.err
}

func (m *mockExperimentService) Get(_ context.Context, id string) (*exptypes.ExperimentDTO, error) {
	m.lastID = id
	return m.dto, m.err
}

func (m *mockExperimentService) List(_ context.Context, req *exptypes.SearchRequest) (*exptypes.ListResponse, error) {
	m.lastList = req
	return m.list, m.err
}

func (m *mockExperimentService) AddTest(_ context.Context, id string, _ hsptypes.SolventTestInput) (*exptypes.ExperimentDTO, error) {
	m.lastID = id
	return m.dto, m.err
}

func (m *mockExperimentService) Delete(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

func (m *mockExperimentService) Calculate(_ context.Context, id string, opts *exptypes.CalculateOptions) (*exptypes.ExperimentDTO, error) {
	m.lastID = id
	m.lastOpts = opts
	return m.dto, m.err
}

func (m *mockExperimentService) Visualize(_ context.Context, id string, format string) (*visualization.Figure, error) {
	m.lastID = id
	m.lastFormat = format
	return m.figure, m.err
}

// withURLParam injects a chi route parameter into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ─────────────────────────────────────────────────────────────────────────────
// HSP handler
// ─────────────────────────────────────────────────────────────────────────────

func TestHSPCalculate(t *testing.T) {
	t.Parallel()

	svc := &mockHSPService{calculateResp: &hsptypes.CalculateResponse{
		Sphere:    hsptypes.SphereDTO{DeltaD: 17.5, DeltaP: 8.2, DeltaH: 9.1, Radius: 6.3},
		Loss:      "continuous_l2",
		Accuracy:  1.0,
		Converged: true,
	}}
	h := NewHSPHandler(svc, logging.NewNopLogger())

	body := `{"tests":[{"solvent_name":"acetone","score":1},{"solvent_name":"hexane","score":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hsp/calculate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp hsptypes.CalculateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 17.5, resp.Sphere.DeltaD, 1e-9)
	assert.True(t, resp.Converged)

	require.NotNil(t, svc.lastRequest)
	assert.Len(t, svc.lastRequest.Tests, 2)
}

func TestHSPCalculateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	h := NewHSPHandler(&mockHSPService{}, logging.NewNopLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hsp/calculate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), decodeErrorBody(t, rec).Code)
}

func TestHSPCalculateRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	h := NewHSPHandler(&mockHSPService{}, logging.NewNopLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hsp/calculate",
		strings.NewReader(`{"tests":[],"bogus_field":1}`))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHSPCalculateMapsDomainErrors(t *testing.T) {
	t.Parallel()

	svc := &mockHSPService{calculateErr: errors.New(errors.ErrCodeHSPInsufficientData,
		"at least one good and one poor solvent required")}
	h := NewHSPHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hsp/calculate",
		strings.NewReader(`{"tests":[{"solvent_name":"acetone","score":1}]}`))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, string(errors.ErrCodeHSPInsufficientData), body.Code)
	assert.Contains(t, body.Message, "good and one poor")
}

func TestHSPCalculateMasksInternalErrors(t *testing.T) {
	t.Parallel()

	svc := &mockHSPService{calculateErr: errors.New(errors.ErrCodeDatabaseError,
		"pgx: connection refused at 10.1.2.3")}
	h := NewHSPHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hsp/calculate",
		strings.NewReader(`{"tests":[]}`))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeErrorBody(t, rec).Message, "10.1.2.3")
}

func TestHSPLossFunctions(t *testing.T) {
	t.Parallel()

	h := NewHSPHandler(&mockHSPService{}, logging.NewNopLogger())
	rec := httptest.NewRecorder()
	h.LossFunctions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hsp/loss-functions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]hsptypes.LossFunctionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp["loss_functions"], 2)
	assert.True(t, resp["loss_functions"][0].Default)
}

// ─────────────────────────────────────────────────────────────────────────────
// Solvent handler
// ─────────────────────────────────────────────────────────────────────────────

func TestSolventCreate(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{dto: &stypes.SolventDTO{Name: "acetone", DeltaD: 15.5, DeltaP: 10.4, DeltaH: 7.0}}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/solvents",
		strings.NewReader(`{"name":"acetone","delta_d":15.5,"delta_p":10.4,"delta_h":7.0}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSolventGetNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{err: errors.New(errors.ErrCodeSolventNotFound, "solvent not found")}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/solvents/nope", nil), "solventID", "nope")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(errors.ErrCodeSolventNotFound), decodeErrorBody(t, rec).Code)
}

func TestSolventLookupRequiresQuery(t *testing.T) {
	t.Parallel()

	h := NewSolventHandler(&mockSolventService{}, logging.NewNopLogger())
	rec := httptest.NewRecorder()
	h.Lookup(rec, httptest.NewRequest(http.MethodGet, "/api/v1/solvents/lookup", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSolventLookupPassesQuery(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{dto: &stypes.SolventDTO{Name: "acetone", CAS: "67-64-1"}}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.Lookup(rec, httptest.NewRequest(http.MethodGet, "/api/v1/solvents/lookup?q=67-64-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "67-64-1", svc.lastLookup)
}

func TestSolventListBuildsRangeFilters(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{searchRes: &stypes.SearchResponse{}}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/solvents?query=ace&source=builtin&delta_d_min=15&delta_d_max=18&delta_h_max=10&page=2&page_size=25", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	req := svc.lastSearch
	require.NotNil(t, req)
	assert.Equal(t, "ace", req.Query)
	assert.Equal(t, "builtin", req.Source)
	require.NotNil(t, req.DeltaD)
	assert.Equal(t, 15.0, *req.DeltaD.Min)
	assert.Equal(t, 18.0, *req.DeltaD.Max)
	require.NotNil(t, req.DeltaH)
	assert.Nil(t, req.DeltaH.Min)
	assert.Nil(t, req.DeltaP)
	assert.Equal(t, 2, req.Pagination.Page)
	assert.Equal(t, 25, req.Pagination.PageSize)
}

func TestSolventListPaginationDefaults(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{searchRes: &stypes.SearchResponse{}}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/solvents?page_size=5000", nil))

	require.NotNil(t, svc.lastSearch)
	assert.Equal(t, 1, svc.lastSearch.Pagination.Page)
	assert.Equal(t, 20, svc.lastSearch.Pagination.PageSize)
}

func TestSolventDelete(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/solvents/sol-1", nil), "solventID", "sol-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"sol-1"}, svc.deleteCalls)
}

func TestSolventImportCSV(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{summary: &stypes.ImportSummary{Imported: 2, Skipped: 1}}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	csv := "name,cas,delta_d,delta_p,delta_h\nacetone,67-64-1,15.5,10.4,7.0\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solvents/import", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	h.ImportCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csv, svc.lastImport)
	assert.Equal(t, solvent.SourceUser, svc.lastSource)

	var summary stypes.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Imported)
}

func TestSolventExportCSV(t *testing.T) {
	t.Parallel()

	svc := &mockSolventService{exportBody: "name,cas\nacetone,67-64-1\n"}
	h := NewSolventHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ExportCSV(rec, httptest.NewRequest(http.MethodGet, "/api/v1/solvents/export", nil))

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "solvents.csv")
	assert.Equal(t, svc.exportBody, rec.Body.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Experiment handler
// ─────────────────────────────────────────────────────────────────────────────

func TestExperimentCreate(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{dto: &exptypes.ExperimentDTO{ID: "exp-1", SampleName: "polymer A"}}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/experiments",
		strings.NewReader(`{"sample_name":"polymer A","tags":["pilot"]}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestExperimentListParsesCalculatedFilter(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{list: &exptypes.ListResponse{}}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/experiments?tag=pilot&calculated=true", nil))

	require.NotNil(t, svc.lastList)
	assert.Equal(t, "pilot", svc.lastList.Tag)
	require.NotNil(t, svc.lastList.Calculated)
	assert.True(t, *svc.lastList.Calculated)
}

func TestExperimentCalculateDefaultsOnEmptyBody(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{dto: &exptypes.ExperimentDTO{ID: "exp-1"}}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/experiments/exp-1/calculate", nil),
		"experimentID", "exp-1")
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "exp-1", svc.lastID)
	require.NotNil(t, svc.lastOpts)
	assert.Empty(t, svc.lastOpts.Mode)
}

func TestExperimentCalculateWithOptions(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{dto: &exptypes.ExperimentDTO{ID: "exp-1"}}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/experiments/exp-1/calculate",
		strings.NewReader(`{"mode":"radius_only","seed":42}`)), "experimentID", "exp-1")
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastOpts)
	assert.Equal(t, hsptypes.ModeRadiusOnly, svc.lastOpts.Mode)
	assert.Equal(t, int64(42), svc.lastOpts.Seed)
}

func TestExperimentDeleteNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{err: errors.New(errors.ErrCodeExperimentNotFound, "experiment not found")}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/experiments/nope", nil),
		"experimentID", "nope")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExperimentVisualizationPassesFormat(t *testing.T) {
	t.Parallel()

	svc := &mockExperimentService{figure: &visualization.Figure{}}
	h := NewExperimentHandler(svc, logging.NewNopLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet,
		"/api/v1/experiments/exp-1/visualization?format=html", nil), "experimentID", "exp-1")
	rec := httptest.NewRecorder()
	h.Visualization(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "html", svc.lastFormat)
}

// ─────────────────────────────────────────────────────────────────────────────
// Predictor handler
// ─────────────────────────────────────────────────────────────────────────────

func TestPredictSMILES(t *testing.T) {
	t.Parallel()

	h := NewPredictorHandler(hsppredictor.NewPredictor(logging.NewNopLogger()), nil, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/smiles",
		strings.NewReader(`{"smiles":"CCO"}`))
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var pred hsppredictor.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pred))
	assert.Equal(t, "CCO", pred.SMILES)
	assert.Greater(t, pred.DeltaD, 0.0)
	assert.Greater(t, pred.DeltaH, 0.0)
}

func TestPredictRequiresSMILES(t *testing.T) {
	t.Parallel()

	h := NewPredictorHandler(hsppredictor.NewPredictor(logging.NewNopLogger()), nil, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/smiles", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictInvalidSMILES(t *testing.T) {
	t.Parallel()

	h := NewPredictorHandler(hsppredictor.NewPredictor(logging.NewNopLogger()), nil, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/smiles",
		strings.NewReader(`{"smiles":"|||"}`))
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodePredictorInvalidSMILES), decodeErrorBody(t, rec).Code)
}

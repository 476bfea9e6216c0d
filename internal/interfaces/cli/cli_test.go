package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/pkg/errors"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFormatTable(t *testing.T) {
	t.Parallel()

	out := FormatTable(
		[]string{"name", "delta_d"},
		[][]string{{"acetone", "15.5"}, {"tetrahydrofuran", "16.8"}},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "name             delta_d", lines[0])
	assert.Equal(t, "---------------  -------", lines[1])
	assert.Equal(t, "acetone          15.5   ", lines[2])
	assert.Equal(t, "tetrahydrofuran  16.8   ", lines[3])
}

func TestReadFitRequestFullObject(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "tests.json",
		`{"tests":[{"solvent_name":"acetone","score":1}],"loss":"cross_entropy","seed":7}`)

	req, err := readFitRequest(path)
	require.NoError(t, err)
	assert.Len(t, req.Tests, 1)
	assert.Equal(t, "cross_entropy", req.Loss)
	assert.Equal(t, int64(7), req.Seed)
}

func TestReadFitRequestBareArray(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "tests.json",
		`[{"solvent_name":"acetone","score":1},{"solvent_name":"hexane","score":0}]`)

	req, err := readFitRequest(path)
	require.NoError(t, err)
	assert.Len(t, req.Tests, 2)
	assert.Empty(t, req.Loss)
}

func TestFileResolverLookup(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "solvents.csv",
		"Solvent,CAS,delta_D,delta_P,delta_H\nAcetone,67-64-1,15.5,10.4,7.0\n")

	resolver, err := newFileResolver(path)
	require.NoError(t, err)

	s, err := resolver.Lookup(context.Background(), "acetone")
	require.NoError(t, err)
	assert.InDelta(t, 15.5, s.DeltaD, 1e-9)

	s, err = resolver.Lookup(context.Background(), "67-64-1")
	require.NoError(t, err)
	assert.Equal(t, "Acetone", s.Name)

	_, err = resolver.Lookup(context.Background(), "water")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSolventNotFound))
}

func TestFitCommandWithExplicitCoordinates(t *testing.T) {
	coord := func(v float64) string {
		b, _ := json.Marshal(v)
		return string(b)
	}
	tests := `[
		{"delta_d":` + coord(16.0) + `,"delta_p":` + coord(8.0) + `,"delta_h":` + coord(9.0) + `,"score":1},
		{"delta_d":` + coord(15.5) + `,"delta_p":` + coord(10.4) + `,"delta_h":` + coord(7.0) + `,"score":1},
		{"delta_d":` + coord(14.9) + `,"delta_p":` + coord(0.0) + `,"delta_h":` + coord(0.0) + `,"score":0},
		{"delta_d":` + coord(18.0) + `,"delta_p":` + coord(1.4) + `,"delta_h":` + coord(2.0) + `,"score":0}
	]`
	path := writeTempFile(t, "tests.json", tests)

	out, err := runCommand(t, "fit", "--tests", path, "--seed", "11", "--output", "json")
	require.NoError(t, err)

	var resp hsptypes.CalculateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Greater(t, resp.Sphere.Radius, 0.0)
	assert.Len(t, resp.PerSample, 4)
}

func TestFitCommandRequiresTestsFlag(t *testing.T) {
	_, err := runCommand(t, "fit")
	assert.Error(t, err)
}

func TestPredictCommand(t *testing.T) {
	out, err := runCommand(t, "predict", "CCO", "--output", "json")
	require.NoError(t, err)

	var pred struct {
		SMILES string  `json:"smiles"`
		DeltaD float64 `json:"delta_d"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Equal(t, "CCO", pred.SMILES)
	assert.Greater(t, pred.DeltaD, 0.0)
}

func TestPredictCommandInvalidSMILES(t *testing.T) {
	_, err := runCommand(t, "predict", "|||")
	assert.Error(t, err)
}

func TestSolventsListAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/solvents", r.URL.Path)
		json.NewEncoder(w).Encode(stypes.SearchResponse{
			Items: []stypes.SolventDTO{{Name: "acetone", CAS: "67-64-1", DeltaD: 15.5, DeltaP: 10.4, DeltaH: 7.0, Source: "builtin"}},
		})
	}))
	defer srv.Close()

	out, err := runCommand(t, "solvents", "list", "--server", srv.URL, "--output", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "acetone")
	assert.Contains(t, out, "67-64-1")
}

func TestSolventsImportAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/solvents/import", r.URL.Path)
		json.NewEncoder(w).Encode(stypes.ImportSummary{Imported: 3, Skipped: 1})
	}))
	defer srv.Close()

	path := writeTempFile(t, "in.csv", "Solvent,delta_D,delta_P,delta_H\nAcetone,15.5,10.4,7.0\n")
	out, err := runCommand(t, "solvents", "import", path, "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3, skipped 1")
}

func TestRootCommandVersion(t *testing.T) {
	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit")
}

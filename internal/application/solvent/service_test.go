package solvent

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/testutil"
	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// memoryRepo is an in-memory solvent repository.
type memoryRepo struct {
	byID map[common.ID]*domainsol.Solvent
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[common.ID]*domainsol.Solvent{}}
}

func (r *memoryRepo) Save(_ context.Context, s *domainsol.Solvent) error {
	r.byID[s.ID] = s
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id common.ID) (*domainsol.Solvent, error) {
	if s, ok := r.byID[id]; ok {
		return s, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeSolventNotFound, "solvent not found")
}

func (r *memoryRepo) FindByName(_ context.Context, name string) (*domainsol.Solvent, error) {
	for _, s := range r.byID {
		if s.NormalizedName() == domainsol.NormalizeName(name) {
			return s, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeSolventNotFound, "solvent not found")
}

func (r *memoryRepo) FindByCAS(_ context.Context, cas string) (*domainsol.Solvent, error) {
	for _, s := range r.byID {
		if s.CAS == cas {
			return s, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeSolventNotFound, "solvent not found")
}

func (r *memoryRepo) Search(_ context.Context, _ stypes.SearchRequest) ([]*domainsol.Solvent, int64, error) {
	out := make([]*domainsol.Solvent, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) Delete(_ context.Context, id common.ID) error {
	if _, ok := r.byID[id]; !ok {
		return apperrors.New(apperrors.ErrCodeSolventNotFound, "solvent not found")
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryRepo) BatchSave(_ context.Context, solvents []*domainsol.Solvent) error {
	for _, s := range solvents {
		r.byID[s.ID] = s
	}
	return nil
}

func (r *memoryRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

func newTestService(t *testing.T) Service {
	t.Helper()
	logger := testutil.NewMockLogger()
	return NewService(domainsol.NewService(newMemoryRepo(), logger), logger)
}

func TestCreateAndLookup(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	dto, err := svc.Create(context.Background(), &stypes.CreateRequest{
		Name: "Acetone", CAS: "67-64-1", DeltaD: 15.5, DeltaP: 10.4, DeltaH: 7.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dto.ID)

	byName, err := svc.Lookup(context.Background(), "acetone")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, byName.ID)

	byCAS, err := svc.Lookup(context.Background(), "67-64-1")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, byCAS.ID)
}

func TestImportCSV(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	csv := `Solvent,CAS,delta_D,delta_P,delta_H
Acetone,67-64-1,15.5,10.4,7.0
Hexane,110-54-3,14.9,0,0
Broken,abc,1,1
`
	summary, err := svc.ImportCSV(context.Background(), strings.NewReader(csv), domainsol.SourceBuiltin)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	dto, err := svc.Lookup(context.Background(), "hexane")
	require.NoError(t, err)
	assert.Equal(t, 14.9, dto.DeltaD)
}

func TestImportCSVMissingColumns(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.ImportCSV(context.Background(), strings.NewReader("Solvent\nAcetone\n"), domainsol.SourceUser)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSolventImportFailed))
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Create(context.Background(), &stypes.CreateRequest{
		Name: "Water", DeltaD: 15.5, DeltaP: 16.0, DeltaH: 42.3,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Water")
	assert.Contains(t, buf.String(), "42.3")
}

func TestDelete(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	dto, err := svc.Create(context.Background(), &stypes.CreateRequest{
		Name: "Toluene", DeltaD: 18.0, DeltaP: 1.4, DeltaH: 2.0,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), string(dto.ID)))
	_, err = svc.Get(context.Background(), string(dto.ID))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSolventNotFound))
}

type recordingLocker struct {
	fail     bool
	acquired int
	released int
}

func (l *recordingLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.fail {
		return nil, apperrors.New(apperrors.ErrCodeConflict, "lock is held by another owner")
	}
	l.acquired++
	return func() { l.released++ }, nil
}

func TestImportCSVHoldsLock(t *testing.T) {
	t.Parallel()

	logger := testutil.NewMockLogger()
	locker := &recordingLocker{}
	svc := NewService(domainsol.NewService(newMemoryRepo(), logger), logger, WithImportLocker(locker))

	csv := "Solvent,CAS,delta_D,delta_P,delta_H\nAcetone,67-64-1,15.5,10.4,7.0\n"
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv), domainsol.SourceUser)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func TestImportCSVRejectedWhileLockHeld(t *testing.T) {
	t.Parallel()

	logger := testutil.NewMockLogger()
	svc := NewService(domainsol.NewService(newMemoryRepo(), logger), logger, WithImportLocker(&recordingLocker{fail: true}))

	csv := "Solvent,CAS,delta_D,delta_P,delta_H\nAcetone,67-64-1,15.5,10.4,7.0\n"
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv), domainsol.SourceUser)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

package criteriainit_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	criteriaconfigstore "github.com/dalemusser/doctorados/internal/app/store/criteriaconfig"
	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/criteriainit"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore keeps each record's criteria as a raw key set; nil means the
// field is absent.
type fakeStore struct {
	records []map[string]int
	failOn  string
}

func (f *fakeStore) fail(op string) error {
	if f.failOn == op {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) {
	if err := f.fail("count"); err != nil {
		return 0, err
	}
	return int64(len(f.records)), nil
}

func (f *fakeStore) CountMissingCriteria(ctx context.Context) (int64, error) {
	if err := f.fail("missing"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range f.records {
		if len(r) == 0 {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountWithCriteria(ctx context.Context) (int64, error) {
	var n int64
	for _, r := range f.records {
		if len(r) > 0 {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountCompleteCriteria(ctx context.Context) (int64, error) {
	var n int64
	for _, r := range f.records {
		complete := true
		for _, k := range models.CriterionKeys {
			if _, ok := r[k]; !ok {
				complete = false
			}
		}
		if complete {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SetDefaultCriteria(ctx context.Context) (programstore.UpdateResult, error) {
	if err := f.fail("set"); err != nil {
		return programstore.UpdateResult{}, err
	}
	var res programstore.UpdateResult
	for i, r := range f.records {
		if len(r) > 0 {
			continue
		}
		f.records[i] = map[string]int{}
		for _, k := range models.CriterionKeys {
			f.records[i][k] = 0
		}
		res.Matched++
		res.Modified++
	}
	return res, nil
}

func (f *fakeStore) Sample(ctx context.Context, limit int64) ([]models.Program, error) {
	if err := f.fail("sample"); err != nil {
		return nil, err
	}
	var out []models.Program
	for i, r := range f.records {
		if int64(len(out)) == limit {
			break
		}
		if r == nil {
			continue
		}
		out = append(out, models.Program{
			Name:       "Programa " + string(rune('A'+i)),
			University: "Uni",
			Criteria:   &models.Criteria{Relevance: r[models.CriterionRelevance]},
		})
	}
	return out, nil
}

func newInitializer(store criteriainit.Store, out io.Writer) *criteriainit.Initializer {
	return criteriainit.New(store, out, timeouts.Default(), zap.NewNop())
}

func TestInitializeDefaults_IsIdempotent(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil, {}, {models.CriterionRelevance: 4, models.CriterionClarity: 2}, nil}}
	in := newInitializer(store, nil)
	ctx := context.Background()

	first, err := in.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Modified)

	missing, err := in.CountMissing(ctx)
	require.NoError(t, err)
	assert.Zero(t, missing)

	second, err := in.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Modified)
	assert.Zero(t, second.Matched)
}

func TestInitializeDefaults_DefaultShape(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil}}
	_, err := newInitializer(store, nil).InitializeDefaults(context.Background())
	require.NoError(t, err)

	got := store.records[0]
	require.Len(t, got, len(models.CriterionKeys))
	for _, k := range models.CriterionKeys {
		assert.Equal(t, 0, got[k], k)
	}
}

func TestRun_Converges(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil, {}, nil}}
	var out bytes.Buffer

	cov, err := newInitializer(store, &out).Run(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, cov.Converged())
	assert.Equal(t, criteriainit.Coverage{Complete: 3, Total: 3}, cov)
	assert.Contains(t, out.String(), "Total programs in database: 3")
	assert.Contains(t, out.String(), "Programs without criteria: 3")
	assert.Contains(t, out.String(), "Updated 3 programs with criteria fields")
	assert.Contains(t, out.String(), "Sample programs with criteria:")
	assert.Contains(t, out.String(), "Programs with complete criteria: 3/3")
}

func TestRun_NothingMissingSkipsWrite(t *testing.T) {
	full := map[string]int{}
	for _, k := range models.CriterionKeys {
		full[k] = 1
	}
	store := &fakeStore{records: []map[string]int{full}, failOn: "set"}
	var out bytes.Buffer

	cov, err := newInitializer(store, &out).Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, cov.Converged())
	assert.Contains(t, out.String(), "already have criteria fields initialized")
}

func TestRun_VerifyOnlyDoesNotWrite(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil, {models.CriterionRelevance: 1}}}
	var out bytes.Buffer

	cov, err := newInitializer(store, &out).Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, criteriainit.Coverage{Complete: 0, Total: 2}, cov)
	assert.EqualValues(t, 2, cov.Missing())
	assert.Nil(t, store.records[0], "verify-only must not initialize")
	assert.Contains(t, out.String(), "2 programs still need criteria fields")
	assert.NotContains(t, out.String(), "Total programs in database")
}

func TestRun_StoreErrorAborts(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil}, failOn: "missing"}

	_, err := newInitializer(store, nil).Run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count missing criteria")
}

func TestRun_SampleFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{records: []map[string]int{nil}, failOn: "sample"}

	cov, err := newInitializer(store, nil).Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, cov.Converged())
}

type fakeCatalogStore struct {
	stored *models.CriteriaCatalog
}

func (f *fakeCatalogStore) Seed(ctx context.Context, cat models.CriteriaCatalog, overwrite bool) (criteriaconfigstore.SeedResult, error) {
	if f.stored == nil {
		f.stored = &cat
		return criteriaconfigstore.SeedResult{Action: criteriaconfigstore.SeedCreated}, nil
	}
	res := criteriaconfigstore.SeedResult{ExistingVersion: f.stored.Version, Action: criteriaconfigstore.SeedKept}
	if overwrite {
		f.stored = &cat
		res.Action = criteriaconfigstore.SeedReplaced
	}
	return res, nil
}

func validCatalog() models.CriteriaCatalog {
	cat := models.CriteriaCatalog{Type: models.CriteriaConfigType, Version: "1.1"}
	for i, k := range models.CriterionKeys {
		levels := map[int]string{}
		for l := 1; l <= models.CriterionLevels; l++ {
			levels[l] = "nivel"
		}
		cat.Criteria = append(cat.Criteria, models.CriterionDefinition{
			ID: i + 1, Key: k, Label: k, Description: "d", Levels: levels,
		})
	}
	return cat
}

func TestSeedCatalog(t *testing.T) {
	store := &fakeCatalogStore{}
	var out bytes.Buffer
	in := newInitializer(&fakeStore{}, &out)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	res, err := in.SeedCatalog(context.Background(), store, validCatalog(), false, now)
	require.NoError(t, err)
	assert.Equal(t, criteriaconfigstore.SeedCreated, res.Action)
	assert.Equal(t, "2026-03-01T12:00:00Z", store.stored.LastUpdated)

	res, err = in.SeedCatalog(context.Background(), store, validCatalog(), false, now)
	require.NoError(t, err)
	assert.Equal(t, criteriaconfigstore.SeedKept, res.Action)
	assert.Contains(t, out.String(), "left unchanged")
}

func TestSeedCatalog_RejectsInvalid(t *testing.T) {
	store := &fakeCatalogStore{}
	cat := validCatalog()
	cat.Criteria = cat.Criteria[:4]

	_, err := newInitializer(&fakeStore{}, nil).SeedCatalog(context.Background(), store, cat, true, time.Now())
	require.Error(t, err)
	assert.Nil(t, store.stored)
}

package annotate_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/annotate"
	"github.com/dalemusser/doctorados/internal/app/system/explain"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sliceGroups struct {
	groups    []models.GroupView
	pos       int
	closed    bool
	err       error
	decodeErr map[int]error
}

func (g *sliceGroups) Next(ctx context.Context) bool {
	if g.pos >= len(g.groups) {
		return false
	}
	g.pos++
	return true
}

func (g *sliceGroups) Decode() (models.GroupView, error) {
	if err := g.decodeErr[g.pos-1]; err != nil {
		return models.GroupView{}, err
	}
	return g.groups[g.pos-1], nil
}

func (g *sliceGroups) Err() error { return g.err }

func (g *sliceGroups) Close(ctx context.Context) error {
	g.closed = true
	return nil
}

// memStore is an in-memory programs collection that groups the same way
// the aggregation does.
type memStore struct {
	programs  []models.Program
	openErr   error
	iterErr   error
	decodeErr map[int]error
	failWrite map[string]bool
	opened    *sliceGroups
}

func (s *memStore) add(university, city string, stats models.Stats) primitive.ObjectID {
	id := primitive.NewObjectID()
	s.programs = append(s.programs, models.Program{
		ID: id, Name: fmt.Sprintf("P%d", len(s.programs)+1),
		University: university, City: city, Stats: stats,
	})
	return id
}

func (s *memStore) OpenGroups(ctx context.Context) (annotate.Groups, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	sorted := append([]models.Program(nil), s.programs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID.Hex() < sorted[j].ID.Hex() })

	index := map[models.UniversityKey]int{}
	var groups []models.GroupView
	for _, p := range sorted {
		key := models.UniversityKey{University: p.University, City: p.City}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.GroupView{Key: key})
		}
		groups[i].Members = append(groups[i].Members, models.GroupMember{
			ID: p.ID, Name: p.Name, ResearchLine: p.ResearchLine, Stats: p.Stats,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key.University != groups[j].Key.University {
			return groups[i].Key.University < groups[j].Key.University
		}
		return groups[i].Key.City < groups[j].Key.City
	})
	s.opened = &sliceGroups{groups: groups, err: s.iterErr, decodeErr: s.decodeErr}
	return s.opened, nil
}

func (s *memStore) SetUniversityMetadata(ctx context.Context, university, description, lastUpdated string) (programstore.UpdateResult, error) {
	if s.failWrite[university] {
		return programstore.UpdateResult{}, errors.New("write concern timeout")
	}
	var res programstore.UpdateResult
	for i := range s.programs {
		p := &s.programs[i]
		if p.University != university {
			continue
		}
		res.Matched++
		next := models.Metadata{Description: description, LastUpdated: lastUpdated}
		if p.Metadata == nil || *p.Metadata != next {
			p.Metadata = &next
			res.Modified++
		}
	}
	return res, nil
}

func (s *memStore) FindExplanations(ctx context.Context, university string, limit int64) ([]models.Program, error) {
	var out []models.Program
	for _, p := range s.programs {
		if int64(len(out)) == limit {
			break
		}
		if university == "" || p.University == university {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) metadataOf(university string) []models.Metadata {
	var out []models.Metadata
	for _, p := range s.programs {
		if p.University == university && p.Metadata != nil {
			out = append(out, *p.Metadata)
		}
	}
	return out
}

type stubExplainer struct {
	fail  map[string]explain.FailureReason
	calls []string
	seen  map[string]models.Stats
}

func (e *stubExplainer) Explain(ctx context.Context, university string, stats models.Stats) explain.Outcome {
	e.calls = append(e.calls, university)
	if e.seen == nil {
		e.seen = map[string]models.Stats{}
	}
	e.seen[university] = stats
	if r, ok := e.fail[university]; ok {
		return explain.Outcome{Reason: r, Err: errors.New("service unavailable")}
	}
	return explain.Outcome{Text: "Explicación de " + university}
}

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newAnnotator(store annotate.Store, ex annotate.Explainer, out io.Writer) *annotate.Annotator {
	return annotate.New(store, ex, out, timeouts.Default(), zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
}

func TestRecalculateFields_EndToEnd(t *testing.T) {
	store := &memStore{}
	store.add("Uni A", "City X", models.Stats{models.MetricInnovation: 8})
	store.add("Uni A", "City X", nil)
	store.add("Uni B", "City Y", nil)
	ex := &stubExplainer{}
	var out bytes.Buffer

	sum, err := newAnnotator(store, ex, &out).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.UniversitiesProcessed)
	assert.EqualValues(t, 2, sum.DocumentsUpdated)
	assert.Equal(t, models.MetricKeys, sum.FieldsUpdated)
	assert.Equal(t, []string{"No stats found for Uni B"}, sum.Errors)

	assert.Equal(t, []string{"Uni A"}, ex.calls)
	if diff := cmp.Diff(models.Stats{models.MetricInnovation: 8}, ex.seen["Uni A"]); diff != "" {
		t.Errorf("stats sent to explainer (-want +got):\n%s", diff)
	}

	want := models.Metadata{Description: "Explicación de Uni A", LastUpdated: "2026-05-04T10:30:00Z"}
	if diff := cmp.Diff([]models.Metadata{want, want}, store.metadataOf("Uni A")); diff != "" {
		t.Errorf("Uni A metadata (-want +got):\n%s", diff)
	}
	assert.Empty(t, store.metadataOf("Uni B"))
	assert.True(t, store.opened.closed, "group cursor must be closed")

	assert.Contains(t, out.String(), "Processing university: Uni A")
	assert.Contains(t, out.String(), "No stats found for Uni B. Skipping...")
	assert.Contains(t, out.String(), "Updated 2 documents for Uni A")
}

func TestRecalculateFields_ServiceFailureWritesFallback(t *testing.T) {
	store := &memStore{}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})
	store.add("Uni C", "City Z", models.Stats{models.MetricImpact: 9})
	ex := &stubExplainer{fail: map[string]explain.FailureReason{"Uni A": explain.ReasonQuota}}

	sum, err := newAnnotator(store, ex, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "Uni A")
	assert.Contains(t, sum.Errors[0], "quota")
	assert.EqualValues(t, 2, sum.DocumentsUpdated)

	md := store.metadataOf("Uni A")
	require.Len(t, md, 1)
	assert.Equal(t, explain.Fallback("Uni A"), md[0].Description)
	assert.Contains(t, md[0].Description, "Uni A")
	assert.Equal(t, "Explicación de Uni C", store.metadataOf("Uni C")[0].Description)
}

func TestRecalculateFields_WriteFailureContinues(t *testing.T) {
	store := &memStore{failWrite: map[string]bool{"Uni A": true}}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})
	store.add("Uni B", "City Y", models.Stats{models.MetricImpact: 7})

	sum, err := newAnnotator(store, &stubExplainer{}, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.UniversitiesProcessed)
	assert.EqualValues(t, 1, sum.DocumentsUpdated)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "Error processing Uni A")
}

func TestRecalculateFields_AnnotatesUniversityAcrossCities(t *testing.T) {
	store := &memStore{}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})
	store.add("Uni A", "City W", nil)

	sum, err := newAnnotator(store, &stubExplainer{}, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	// City W sorts first and has no stats; the City X write still reaches it.
	assert.Equal(t, 2, sum.UniversitiesProcessed)
	assert.EqualValues(t, 2, sum.DocumentsUpdated)
	assert.Equal(t, []string{"No stats found for Uni A"}, sum.Errors)
	assert.Len(t, store.metadataOf("Uni A"), 2)
}

func TestRecalculateFields_WithoutDescriptions(t *testing.T) {
	store := &memStore{}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})
	ex := &stubExplainer{}

	sum, err := newAnnotator(store, ex, nil).RecalculateFields(context.Background(), annotate.Options{
		Fields: []string{models.MetricImpact},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.UniversitiesProcessed)
	assert.Zero(t, sum.DocumentsUpdated)
	assert.Empty(t, sum.Errors)
	assert.Empty(t, ex.calls)
	assert.Empty(t, store.metadataOf("Uni A"))
	assert.Equal(t, []string{models.MetricImpact}, sum.FieldsUpdated)
}

func TestRecalculateFields_OpenFailure(t *testing.T) {
	store := &memStore{openErr: errors.New("no reachable servers")}

	_, err := newAnnotator(store, &stubExplainer{}, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group by university")
}

func TestRecalculateFields_IterationErrorIsRecorded(t *testing.T) {
	store := &memStore{iterErr: errors.New("cursor killed")}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})

	sum, err := newAnnotator(store, &stubExplainer{}, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "cursor killed")
}

func TestRecalculateFields_DecodeFailureSkipsOneGroup(t *testing.T) {
	store := &memStore{decodeErr: map[int]error{0: errors.New("cannot decode string into an integer type")}}
	store.add("Uni A", "City X", models.Stats{models.MetricImpact: 6})
	store.add("Uni B", "City Y", models.Stats{models.MetricImpact: 7})
	ex := &stubExplainer{}

	sum, err := newAnnotator(store, ex, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.UniversitiesProcessed)
	assert.EqualValues(t, 1, sum.DocumentsUpdated)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "Error decoding university group")
	assert.Equal(t, []string{"Uni B"}, ex.calls)
	assert.Empty(t, store.metadataOf("Uni A"))
}

func TestRecalculateFields_LooseStatsReachExplainer(t *testing.T) {
	store := &memStore{}
	loose := models.Stats{models.MetricInnovation: "8", models.MetricImpact: nil}
	store.add("Uni A", "City X", loose)
	ex := &stubExplainer{}

	sum, err := newAnnotator(store, ex, nil).RecalculateFields(context.Background(), annotate.Options{GenerateDescriptions: true})
	require.NoError(t, err)

	assert.Empty(t, sum.Errors)
	if diff := cmp.Diff(loose, ex.seen["Uni A"]); diff != "" {
		t.Errorf("stats sent to explainer (-want +got):\n%s", diff)
	}
}

func TestSelectRepresentativeStats(t *testing.T) {
	first := models.Stats{models.MetricImpact: 5}
	group := models.GroupView{Members: []models.GroupMember{
		{Stats: nil},
		{Stats: models.Stats{}},
		{Stats: first},
		{Stats: models.Stats{models.MetricImpact: 9}},
	}}

	got, ok := annotate.SelectRepresentativeStats(group)
	require.True(t, ok)
	assert.Equal(t, first, got)

	_, ok = annotate.SelectRepresentativeStats(models.GroupView{Members: []models.GroupMember{{}}})
	assert.False(t, ok)
}

func TestUniversityExplanations(t *testing.T) {
	store := &memStore{}
	store.programs = []models.Program{
		{University: "Uni A", Stats: models.Stats{models.MetricImpact: 1}, Metadata: &models.Metadata{Description: "old", LastUpdated: "t1"}},
		{University: "Uni A", Stats: models.Stats{models.MetricImpact: 2}, Metadata: &models.Metadata{Description: "new", LastUpdated: "t2"}},
		{University: "Uni A"},
		{University: "Uni B", Metadata: &models.Metadata{Description: "b"}},
		{University: "Uni C"},
	}
	a := newAnnotator(store, &stubExplainer{}, nil)

	got, err := a.UniversityExplanations(context.Background(), "")
	require.NoError(t, err)

	want := map[string]models.UniversityExplanation{
		"Uni A": {Description: "new", LastUpdated: "t2", Stats: models.Stats{models.MetricImpact: 2}},
		"Uni B": {Description: "b", LastUpdated: annotate.UnknownTimestamp, Stats: models.Stats{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("explanations (-want +got):\n%s", diff)
	}

	only, err := a.UniversityExplanations(context.Background(), "Uni B")
	require.NoError(t, err)
	assert.Len(t, only, 1)
	assert.Contains(t, only, "Uni B")
}

func TestUniversityExplanations_ReadsAtMostLimit(t *testing.T) {
	store := &memStore{}
	for i := 0; i < annotate.ExplanationLimit+20; i++ {
		store.programs = append(store.programs, models.Program{
			University: fmt.Sprintf("Uni %03d", i),
			Metadata:   &models.Metadata{Description: "d"},
		})
	}

	got, err := newAnnotator(store, &stubExplainer{}, nil).UniversityExplanations(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, annotate.ExplanationLimit)
}

func TestSummaryPrint(t *testing.T) {
	var out bytes.Buffer
	annotate.Summary{
		UniversitiesProcessed: 2,
		DocumentsUpdated:      2,
		FieldsUpdated:         []string{"innovacion", "impacto"},
		Errors:                []string{"No stats found for Uni B"},
	}.Print(&out)

	assert.Contains(t, out.String(), "Universities processed: 2")
	assert.Contains(t, out.String(), "Documents updated: 2")
	assert.Contains(t, out.String(), "Fields recalculated: innovacion, impacto")
	assert.Contains(t, out.String(), "Errors occurred (1):\n- No stats found for Uni B")
}

func TestParseFields(t *testing.T) {
	assert.Nil(t, annotate.ParseFields(""))
	assert.Equal(t, []string{"innovacion", "impacto"}, annotate.ParseFields(" innovacion, ,impacto "))
}

func TestPrintExplanations(t *testing.T) {
	var out bytes.Buffer
	annotate.PrintExplanations(&out, map[string]models.UniversityExplanation{
		"Uni B": {Description: "b", LastUpdated: "t"},
		"Uni A": {Description: "a", LastUpdated: "t"},
	})
	s := out.String()
	assert.Less(t, bytes.Index([]byte(s), []byte("Uni A")), bytes.Index([]byte(s), []byte("Uni B")))

	out.Reset()
	annotate.PrintExplanations(&out, nil)
	assert.Equal(t, "No explanations found.\n", out.String())
}

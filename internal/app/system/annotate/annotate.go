// Package annotate groups programs by university, asks the explanation
// service about each group's representative stats, and writes the answer
// onto every program of that university.
//
// Failures are collected per group. Only a failure to start the grouping
// query ends a run early.
package annotate

import (
	"context"
	"fmt"
	"io"
	"time"

	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/explain"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExplanationLimit caps how many records UniversityExplanations reads.
const ExplanationLimit = 100

// UnknownTimestamp stands in for a missing last_updated value.
const UnknownTimestamp = "Unknown"

// Groups is a one-shot sequence of university groups.
type Groups interface {
	Next(ctx context.Context) bool
	Decode() (models.GroupView, error)
	Err() error
	Close(ctx context.Context) error
}

// Store is what the annotator needs from the programs collection.
type Store interface {
	OpenGroups(ctx context.Context) (Groups, error)
	SetUniversityMetadata(ctx context.Context, university, description, lastUpdated string) (programstore.UpdateResult, error)
	FindExplanations(ctx context.Context, university string, limit int64) ([]models.Program, error)
}

// Explainer produces an explanation outcome for one university.
type Explainer interface {
	Explain(ctx context.Context, university string, stats models.Stats) explain.Outcome
}

// programsStore adapts the MongoDB programs store to Store.
type programsStore struct {
	*programstore.Store
}

// NewStore wraps a programs store for use by an Annotator.
func NewStore(s *programstore.Store) Store {
	return programsStore{Store: s}
}

func (p programsStore) OpenGroups(ctx context.Context) (Groups, error) {
	cur, err := p.GroupByUniversity(ctx)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// Options controls one RecalculateFields run.
type Options struct {
	// Fields names the metrics to recalculate. It is reported in the
	// summary but does not yet select anything. Empty means all metrics.
	Fields               []string
	GenerateDescriptions bool
}

// Annotator runs the aggregation-and-annotation workflow.
type Annotator struct {
	store    Store
	explain  Explainer
	out      io.Writer
	timeouts timeouts.Config
	log      *zap.Logger
	now      func() time.Time
}

// New creates an Annotator. Narration goes to out; a nil out discards it.
func New(store Store, ex Explainer, out io.Writer, to timeouts.Config, log *zap.Logger) *Annotator {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Annotator{
		store:    store,
		explain:  ex,
		out:      out,
		timeouts: to.Merge(),
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for last_updated timestamps.
func (a *Annotator) WithClock(now func() time.Time) *Annotator {
	a.now = now
	return a
}

// GroupByUniversity opens the grouping query. The caller must Close the
// returned Groups.
func (a *Annotator) GroupByUniversity(ctx context.Context) (Groups, error) {
	groups, err := a.store.OpenGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("group by university: %w", err)
	}
	return groups, nil
}

// SelectRepresentativeStats returns the stats of the first member that has
// any. Members arrive in ascending _id order, so the choice is stable.
func SelectRepresentativeStats(group models.GroupView) (models.Stats, bool) {
	for _, m := range group.Members {
		if len(m.Stats) > 0 {
			return m.Stats, true
		}
	}
	return nil, false
}

// AnnotateGroup writes explanation and the current time onto every program
// of the group's university, across all of its cities.
func (a *Annotator) AnnotateGroup(ctx context.Context, group models.GroupView, explanation string) (programstore.UpdateResult, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, a.timeouts.Short, a.log, "annotate university")
	defer cancel()

	stamp := a.now().UTC().Format(time.RFC3339)
	res, err := a.store.SetUniversityMetadata(ctx, group.Key.University, explanation, stamp)
	if err != nil {
		return programstore.UpdateResult{}, err
	}
	return res, nil
}

// RecalculateFields walks every university group and annotates it. A
// group's failure is recorded in the summary and the walk continues.
func (a *Annotator) RecalculateFields(ctx context.Context, opts Options) (Summary, error) {
	runLog := a.log.With(zap.String("run_id", uuid.NewString()))

	fields := opts.Fields
	if len(fields) == 0 {
		fields = append([]string(nil), models.MetricKeys...)
	}
	sum := Summary{FieldsUpdated: fields}

	// No deadline on the whole walk: each write and each explanation call
	// carries its own.
	groups, err := a.GroupByUniversity(ctx)
	if err != nil {
		return sum, err
	}
	defer func() {
		if cerr := groups.Close(context.WithoutCancel(ctx)); cerr != nil {
			runLog.Warn("close group cursor", zap.Error(cerr))
		}
	}()

	runLog.Info("recalculation started",
		zap.Strings("fields", fields),
		zap.Bool("generate_descriptions", opts.GenerateDescriptions))

	for groups.Next(ctx) {
		sum.UniversitiesProcessed++
		group, err := groups.Decode()
		if err != nil {
			sum.addError(fmt.Sprintf("Error decoding university group: %v", err))
			runLog.Warn("decode university group", zap.Error(err))
			continue
		}
		a.processGroup(ctx, runLog, group, opts, &sum)
	}
	if err := groups.Err(); err != nil {
		sum.addError(fmt.Sprintf("Error during recalculation: %v", err))
		runLog.Error("group iteration stopped", zap.Error(err))
	}

	runLog.Info("recalculation finished",
		zap.Int("universities_processed", sum.UniversitiesProcessed),
		zap.Int64("documents_updated", sum.DocumentsUpdated),
		zap.Int("errors", len(sum.Errors)))
	return sum, nil
}

func (a *Annotator) processGroup(ctx context.Context, log *zap.Logger, group models.GroupView, opts Options, sum *Summary) {
	uni := group.Key.University
	fmt.Fprintf(a.out, "Processing university: %s\n", uni)

	stats, ok := SelectRepresentativeStats(group)
	if !ok {
		fmt.Fprintf(a.out, "No stats found for %s. Skipping...\n", uni)
		sum.addError(fmt.Sprintf("No stats found for %s", uni))
		return
	}

	if !opts.GenerateDescriptions {
		return
	}

	outcome := a.explain.Explain(ctx, uni, stats)
	if !outcome.OK() {
		sum.addError(fmt.Sprintf("Explanation failed for %s: %s", uni, outcome.Failure()))
	}

	res, err := a.AnnotateGroup(ctx, group, outcome.TextOrFallback(uni))
	if err != nil {
		msg := fmt.Sprintf("Error processing %s: %v", uni, err)
		fmt.Fprintln(a.out, msg)
		sum.addError(msg)
		log.Warn("annotate university", zap.String("university", uni), zap.Error(err))
		return
	}

	sum.DocumentsUpdated += res.Modified
	fmt.Fprintf(a.out, "Updated %d documents for %s\n", res.Modified, uni)
	log.Info("university annotated",
		zap.String("university", uni),
		zap.String("city", group.Key.City),
		zap.Int64("matched", res.Matched),
		zap.Int64("modified", res.Modified),
		zap.Bool("fallback", !outcome.OK()))
}

// UniversityExplanations returns the stored explanation per university,
// optionally restricted to one university. At most ExplanationLimit records
// are read; when several carry an explanation for the same university the
// last one read wins.
func (a *Annotator) UniversityExplanations(ctx context.Context, university string) (map[string]models.UniversityExplanation, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, a.timeouts.Short, a.log, "find explanations")
	defer cancel()

	programs, err := a.store.FindExplanations(ctx, university, ExplanationLimit)
	if err != nil {
		return nil, fmt.Errorf("university explanations: %w", err)
	}

	out := make(map[string]models.UniversityExplanation)
	for _, p := range programs {
		if p.University == "" || p.Metadata == nil || p.Metadata.Description == "" {
			continue
		}
		lastUpdated := p.Metadata.LastUpdated
		if lastUpdated == "" {
			lastUpdated = UnknownTimestamp
		}
		stats := p.Stats
		if stats == nil {
			stats = models.Stats{}
		}
		out[p.University] = models.UniversityExplanation{
			Description: p.Metadata.Description,
			LastUpdated: lastUpdated,
			Stats:       stats,
		}
	}
	return out, nil
}

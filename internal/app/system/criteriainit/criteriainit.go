// Package criteriainit gives every program record the default criteria
// block and verifies that the collection has converged.
//
// The missing-criteria predicate is the same one the write uses, so a run
// that is interrupted can simply be started again.
package criteriainit

import (
	"context"
	"fmt"
	"io"

	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.uber.org/zap"
)

// SampleSize is how many initialized records Run prints.
const SampleSize = 5

// Store is the subset of the programs store the initializer needs.
type Store interface {
	Count(ctx context.Context) (int64, error)
	CountMissingCriteria(ctx context.Context) (int64, error)
	CountWithCriteria(ctx context.Context) (int64, error)
	CountCompleteCriteria(ctx context.Context) (int64, error)
	SetDefaultCriteria(ctx context.Context) (programstore.UpdateResult, error)
	Sample(ctx context.Context, limit int64) ([]models.Program, error)
}

// Coverage is the result of a verification pass.
type Coverage struct {
	Complete int64
	Total    int64
}

// Converged reports whether every record has a complete criteria block.
func (c Coverage) Converged() bool {
	return c.Complete == c.Total
}

// Missing is the number of records that still need criteria.
func (c Coverage) Missing() int64 {
	return c.Total - c.Complete
}

// Initializer runs the criteria initialization workflow.
type Initializer struct {
	store    Store
	out      io.Writer
	timeouts timeouts.Config
	log      *zap.Logger
}

// New creates an Initializer. Narration goes to out; a nil out discards it.
func New(store Store, out io.Writer, to timeouts.Config, log *zap.Logger) *Initializer {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Initializer{store: store, out: out, timeouts: to.Merge(), log: log}
}

// CountMissing returns the number of records whose criteria are absent,
// null or empty.
func (in *Initializer) CountMissing(ctx context.Context) (int64, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "count missing criteria")
	defer cancel()

	n, err := in.store.CountMissingCriteria(ctx)
	if err != nil {
		return 0, fmt.Errorf("count missing criteria: %w", err)
	}
	return n, nil
}

// InitializeDefaults sets the default criteria on every record that lacks
// them, in one bulk write. A second call matches nothing.
func (in *Initializer) InitializeDefaults(ctx context.Context) (programstore.UpdateResult, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Batch, in.log, "initialize default criteria")
	defer cancel()

	res, err := in.store.SetDefaultCriteria(ctx)
	if err != nil {
		return programstore.UpdateResult{}, fmt.Errorf("initialize default criteria: %w", err)
	}
	in.log.Info("default criteria initialized",
		zap.Int64("matched", res.Matched),
		zap.Int64("modified", res.Modified))
	return res, nil
}

// VerifyComplete counts records carrying all five criterion keys against
// the total record count.
func (in *Initializer) VerifyComplete(ctx context.Context) (Coverage, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "verify criteria")
	defer cancel()

	complete, err := in.store.CountCompleteCriteria(ctx)
	if err != nil {
		return Coverage{}, fmt.Errorf("count complete criteria: %w", err)
	}
	total, err := in.store.Count(ctx)
	if err != nil {
		return Coverage{}, fmt.Errorf("count programs: %w", err)
	}
	return Coverage{Complete: complete, Total: total}, nil
}

// Run initializes missing criteria and then verifies. With verifyOnly it
// only verifies. The returned Coverage is the authoritative outcome.
func (in *Initializer) Run(ctx context.Context, verifyOnly bool) (Coverage, error) {
	if !verifyOnly {
		if err := in.initialize(ctx); err != nil {
			return Coverage{}, err
		}
	}

	fmt.Fprintln(in.out, "\nVerifying criteria initialization...")
	cov, err := in.VerifyComplete(ctx)
	if err != nil {
		return Coverage{}, err
	}
	fmt.Fprintf(in.out, "Programs with complete criteria: %d/%d\n", cov.Complete, cov.Total)
	if cov.Converged() {
		fmt.Fprintln(in.out, "All programs have complete criteria fields.")
	} else {
		fmt.Fprintf(in.out, "%d programs still need criteria fields\n", cov.Missing())
		in.log.Warn("criteria not complete", zap.Int64("missing", cov.Missing()))
	}
	return cov, nil
}

func (in *Initializer) initialize(ctx context.Context) error {
	total, err := in.count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "Total programs in database: %d\n", total)

	missing, err := in.CountMissing(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "Programs without criteria: %d\n", missing)

	if missing == 0 {
		fmt.Fprintln(in.out, "All programs already have criteria fields initialized")
		return nil
	}

	fmt.Fprintf(in.out, "Initializing criteria for %d programs...\n", missing)
	res, err := in.InitializeDefaults(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "Updated %d programs with criteria fields\n", res.Modified)

	withCriteria, err := in.countWithCriteria(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "Programs with criteria after update: %d\n", withCriteria)

	// Samples are informational; a failed read is logged, not fatal.
	if err := in.printSamples(ctx); err != nil {
		in.log.Warn("could not read sample programs", zap.Error(err))
	}

	fmt.Fprintln(in.out, "\nCriteria initialization completed")
	fmt.Fprintf(in.out, "  - Total programs: %d\n", total)
	fmt.Fprintf(in.out, "  - Programs updated: %d\n", res.Modified)
	fmt.Fprintf(in.out, "  - Programs with criteria: %d\n", withCriteria)
	return nil
}

func (in *Initializer) count(ctx context.Context) (int64, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "count programs")
	defer cancel()

	n, err := in.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return n, nil
}

func (in *Initializer) countWithCriteria(ctx context.Context) (int64, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "count programs with criteria")
	defer cancel()

	n, err := in.store.CountWithCriteria(ctx)
	if err != nil {
		return 0, fmt.Errorf("count programs with criteria: %w", err)
	}
	return n, nil
}

func (in *Initializer) printSamples(ctx context.Context) error {
	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "sample programs")
	defer cancel()

	samples, err := in.store.Sample(ctx, SampleSize)
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, "\nSample programs with criteria:")
	for i, p := range samples {
		fmt.Fprintf(in.out, "  %d. %s - %s\n", i+1, orNA(p.Name), orNA(p.University))
		fmt.Fprintf(in.out, "     Criteria: %s\n", formatCriteria(p.Criteria))
	}
	return nil
}

func formatCriteria(c *models.Criteria) string {
	if c == nil {
		return "{}"
	}
	return fmt.Sprintf("{%s: %d, %s: %d, %s: %d, %s: %d, %s: %d}",
		models.CriterionRelevance, c.Relevance,
		models.CriterionClarity, c.Clarity,
		models.CriterionTransparency, c.Transparency,
		models.CriterionActivities, c.Activities,
		models.CriterionResults, c.Results)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

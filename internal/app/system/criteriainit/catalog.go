package criteriainit

import (
	"context"
	"fmt"
	"time"

	criteriaconfigstore "github.com/dalemusser/doctorados/internal/app/store/criteriaconfig"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.uber.org/zap"
)

// CatalogStore persists the criteria catalog document.
type CatalogStore interface {
	Seed(ctx context.Context, cat models.CriteriaCatalog, overwrite bool) (criteriaconfigstore.SeedResult, error)
}

// SeedCatalog validates cat and writes it when no catalog exists. An
// existing catalog is replaced only when overwrite is set.
func (in *Initializer) SeedCatalog(ctx context.Context, store CatalogStore, cat models.CriteriaCatalog, overwrite bool, now time.Time) (criteriaconfigstore.SeedResult, error) {
	if err := cat.Validate(); err != nil {
		return criteriaconfigstore.SeedResult{}, err
	}
	cat.LastUpdated = now.UTC().Format(time.RFC3339)

	ctx, cancel := timeouts.WithTimeout(ctx, in.timeouts.Short, in.log, "seed criteria catalog")
	defer cancel()

	res, err := store.Seed(ctx, cat, overwrite)
	if err != nil {
		return criteriaconfigstore.SeedResult{}, fmt.Errorf("seed criteria catalog: %w", err)
	}

	switch res.Action {
	case criteriaconfigstore.SeedCreated:
		fmt.Fprintf(in.out, "Criteria catalog created (version %s, %d criteria)\n", cat.Version, len(cat.Criteria))
	case criteriaconfigstore.SeedReplaced:
		fmt.Fprintf(in.out, "Criteria catalog replaced (version %s -> %s)\n", res.ExistingVersion, cat.Version)
	case criteriaconfigstore.SeedKept:
		fmt.Fprintf(in.out, "Criteria catalog already present (version %s); left unchanged\n", res.ExistingVersion)
	}
	in.log.Info("criteria catalog seeded",
		zap.String("action", string(res.Action)),
		zap.String("version", cat.Version),
		zap.String("existing_version", res.ExistingVersion))
	return res, nil
}

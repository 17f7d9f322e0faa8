// internal/app/store/criteriaconfig/criteriaconfigstore.go
package criteriaconfigstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultCollection holds the single criteria catalog document.
const DefaultCollection = "criteria_config"

// SeedAction describes what Seed did with the catalog document.
type SeedAction string

const (
	SeedCreated  SeedAction = "created"
	SeedReplaced SeedAction = "replaced"
	SeedKept     SeedAction = "kept"
)

// SeedResult reports the outcome of Seed.
type SeedResult struct {
	Action SeedAction
	// ExistingVersion is the version found before seeding, if any.
	ExistingVersion string
}

// Store provides access to the criteria_config collection.
// There is one catalog document, identified by type "criteria_config".
type Store struct {
	c *mongo.Collection
}

// New creates a new criteria catalog store.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{c: db.Collection(collection)}
}

// Get returns the stored catalog. The boolean is false when none exists.
func (s *Store) Get(ctx context.Context) (models.CriteriaCatalog, bool, error) {
	var cat models.CriteriaCatalog
	err := s.c.FindOne(ctx, bson.M{"type": models.CriteriaConfigType}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CriteriaCatalog{}, false, nil
	}
	if err != nil {
		return models.CriteriaCatalog{}, false, fmt.Errorf("get criteria catalog: %w", err)
	}
	return cat, true, nil
}

// Seed inserts cat when no catalog exists. An existing catalog is replaced
// only when overwrite is true; otherwise it is left untouched.
func (s *Store) Seed(ctx context.Context, cat models.CriteriaCatalog, overwrite bool) (SeedResult, error) {
	cat.Type = models.CriteriaConfigType

	existing, found, err := s.Get(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	if !found {
		if _, err := s.c.InsertOne(ctx, cat); err != nil {
			return SeedResult{}, fmt.Errorf("insert criteria catalog: %w", err)
		}
		return SeedResult{Action: SeedCreated}, nil
	}

	res := SeedResult{ExistingVersion: existing.Version}
	if !overwrite {
		res.Action = SeedKept
		return res, nil
	}
	if _, err := s.c.ReplaceOne(ctx, bson.M{"type": models.CriteriaConfigType}, cat); err != nil {
		return SeedResult{}, fmt.Errorf("replace criteria catalog: %w", err)
	}
	res.Action = SeedReplaced
	return res, nil
}

// internal/app/store/programs/programstore.go
package programstore

import (
	"context"
	"fmt"

	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection the import process writes programs to.
const DefaultCollection = "programas"

// UpdateResult reports the counts returned by a bulk update.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Store provides access to the programs collection.
type Store struct {
	c *mongo.Collection
}

// New creates a programs store over the named collection.
// An empty name selects DefaultCollection.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{c: db.Collection(collection)}
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.c.Name()
}

// MissingCriteriaFilter matches programs whose criterios field is absent,
// null, or an empty document.
func MissingCriteriaFilter() bson.M {
	return bson.M{"$or": []bson.M{
		{"criterios": bson.M{"$exists": false}},
		{"criterios": nil},
		{"criterios": bson.M{}},
	}}
}

// CompleteCriteriaFilter matches programs that have every criterion key.
func CompleteCriteriaFilter() bson.M {
	f := bson.M{}
	for _, k := range models.CriterionKeys {
		f["criterios."+k] = bson.M{"$exists": true}
	}
	return f
}

// Count returns the total number of programs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return n, nil
}

// CountMissingCriteria returns how many programs still need criteria.
func (s *Store) CountMissingCriteria(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, MissingCriteriaFilter())
	if err != nil {
		return 0, fmt.Errorf("count programs missing criteria: %w", err)
	}
	return n, nil
}

// CountWithCriteria returns how many programs have a non-empty criterios field,
// regardless of which keys it holds.
func (s *Store) CountWithCriteria(ctx context.Context) (int64, error) {
	filter := bson.M{"criterios": bson.M{"$exists": true, "$nin": bson.A{nil, bson.M{}}}}
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count programs with criteria: %w", err)
	}
	return n, nil
}

// CountCompleteCriteria returns how many programs have all five criterion keys.
func (s *Store) CountCompleteCriteria(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, CompleteCriteriaFilter())
	if err != nil {
		return 0, fmt.Errorf("count programs with complete criteria: %w", err)
	}
	return n, nil
}

// SetDefaultCriteria sets criterios to the all-zero default on every program
// matched by MissingCriteriaFilter, in one UpdateMany. Programs that already
// carry criteria are never touched, so repeated calls converge.
func (s *Store) SetDefaultCriteria(ctx context.Context) (UpdateResult, error) {
	update := bson.M{"$set": bson.M{"criterios": models.DefaultCriteria()}}
	res, err := s.c.UpdateMany(ctx, MissingCriteriaFilter(), update)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("set default criteria: %w", err)
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// Sample returns up to limit programs that have a criterios field, projected
// to name, university, and criteria.
func (s *Store) Sample(ctx context.Context, limit int64) ([]models.Program, error) {
	opts := options.Find().
		SetProjection(bson.M{"programa": 1, "universidad": 1, "criterios": 1}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"criterios": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("sample programs: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Program
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode sample programs: %w", err)
	}
	return out, nil
}

// GroupByUniversity starts the grouping aggregation and returns a cursor
// over one GroupView per distinct (universidad, ciudad) pair.
//
// Programs are sorted by _id before grouping, so members appear in
// ascending _id order inside each group. Groups come out sorted by
// university and city.
func (s *Store) GroupByUniversity(ctx context.Context) (*GroupCursor, error) {
	pipeline := []bson.M{
		{"$sort": bson.M{"_id": 1}},
		{"$group": bson.M{
			"_id": bson.M{
				"universidad": "$universidad",
				"ciudad":      "$ciudad",
			},
			"programas": bson.M{"$push": bson.M{
				"_id":                 "$_id",
				"programa":            "$programa",
				"linea_investigacion": "$linea_investigacion",
				"stats":               "$stats",
			}},
		}},
		{"$sort": bson.D{{Key: "_id.universidad", Value: 1}, {Key: "_id.ciudad", Value: 1}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("group programs by university: %w", err)
	}
	return &GroupCursor{cur: cur}, nil
}

// SetUniversityMetadata writes the same description and timestamp onto every
// program of the named university, in every city.
func (s *Store) SetUniversityMetadata(ctx context.Context, university, description, lastUpdated string) (UpdateResult, error) {
	update := bson.M{"$set": bson.M{
		"metadata.descripcion":  description,
		"metadata.last_updated": lastUpdated,
	}}
	res, err := s.c.UpdateMany(ctx, bson.M{"universidad": university}, update)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("set metadata for %q: %w", university, err)
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// FindExplanations returns up to limit programs projected to university,
// metadata, and stats. An empty university matches all programs. Records
// that do not decode are skipped; they still count toward limit.
func (s *Store) FindExplanations(ctx context.Context, university string, limit int64) ([]models.Program, error) {
	filter := bson.M{}
	if university != "" {
		filter["universidad"] = university
	}
	opts := options.Find().
		SetProjection(bson.M{
			"universidad":           1,
			"metadata.descripcion":  1,
			"metadata.last_updated": 1,
			"stats":                 1,
		}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find explanations: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Program
	for cur.Next(ctx) {
		var p models.Program
		if err := cur.Decode(&p); err != nil {
			continue
		}
		out = append(out, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read explanations: %w", err)
	}
	return out, nil
}

package testutil

import (
	"context"
	"testing"

	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProgramsCollection is the collection fixtures write programs into.
const ProgramsCollection = "programas"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// Programs returns the programs collection.
func (f *Fixtures) Programs() *mongo.Collection {
	return f.db.Collection(ProgramsCollection)
}

// CreateProgram inserts a program with no criteria, stats, or metadata.
func (f *Fixtures) CreateProgram(ctx context.Context, name, university, city string) models.Program {
	f.t.Helper()
	return f.InsertProgram(ctx, models.Program{
		Name:       name,
		University: university,
		City:       city,
	})
}

// CreateProgramWithStats inserts a program carrying the given stats.
func (f *Fixtures) CreateProgramWithStats(ctx context.Context, name, university, city string, stats models.Stats) models.Program {
	f.t.Helper()
	return f.InsertProgram(ctx, models.Program{
		Name:       name,
		University: university,
		City:       city,
		Stats:      stats,
	})
}

// InsertProgram inserts p, assigning an ID when it has none.
func (f *Fixtures) InsertProgram(ctx context.Context, p models.Program) models.Program {
	f.t.Helper()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := f.Programs().InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test program: %v", err)
	}
	return p
}

// InsertRaw inserts an arbitrary program document, for shapes the model
// cannot express (null or empty criteria, partial criteria).
func (f *Fixtures) InsertRaw(ctx context.Context, doc bson.M) primitive.ObjectID {
	f.t.Helper()

	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	if _, err := f.Programs().InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert raw program: %v", err)
	}
	return id
}

// GetProgram loads a program by ID.
func (f *Fixtures) GetProgram(ctx context.Context, id primitive.ObjectID) models.Program {
	f.t.Helper()

	var p models.Program
	if err := f.Programs().FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		f.t.Fatalf("failed to load program %s: %v", id.Hex(), err)
	}
	return p
}

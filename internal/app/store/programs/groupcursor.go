package programstore

import (
	"context"

	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupCursor iterates the university groups of one aggregation run.
// It is one-shot: once exhausted, issue GroupByUniversity again.
//
// A group that fails to decode does not end the iteration; Decode returns
// the error and the next call to Next moves on.
type GroupCursor struct {
	cur *mongo.Cursor
}

// Next advances to the next group, fetching more results when needed.
func (g *GroupCursor) Next(ctx context.Context) bool {
	return g.cur.Next(ctx)
}

// Decode returns the current group.
func (g *GroupCursor) Decode() (models.GroupView, error) {
	var gv models.GroupView
	if err := g.cur.Decode(&gv); err != nil {
		return models.GroupView{}, err
	}
	return gv, nil
}

// Err returns the last cursor error, if any.
func (g *GroupCursor) Err() error {
	return g.cur.Err()
}

// Close releases the server-side cursor.
func (g *GroupCursor) Close(ctx context.Context) error {
	return g.cur.Close(ctx)
}

// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/doctorados/internal/app/system/indexes"
	"github.com/dalemusser/doctorados/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and pings the primary. The client is
// disconnected again when the ping fails.
func ConnectDB(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	to := appCfg.Timeouts.Merge()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := timeouts.WithTimeout(ctx, to.Ping, logger, "mongo ping")
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema reconciles the indexes the commands rely on. Failures are
// logged and do not stop the command.
func EnsureSchema(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	ctx, cancel := timeouts.WithTimeout(ctx, appCfg.Timeouts.Merge().Short, logger, "ensure indexes")
	defer cancel()

	names := indexes.Collections{
		Programs: appCfg.ProgramsCollection,
		Criteria: appCfg.CriteriaCollection,
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, names, logger); err != nil {
		logger.Warn("index setup incomplete", zap.Error(err))
	}
}

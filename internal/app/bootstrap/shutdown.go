// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"go.uber.org/zap"
)

// Shutdown cleanly tears down DB connections.
func Shutdown(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

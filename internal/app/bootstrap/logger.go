// internal/app/bootstrap/logger.go
package bootstrap

import (
	"go.uber.org/zap"
)

// NewLogger builds the command logger: a development console logger when
// env is "dev", JSON production logging otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

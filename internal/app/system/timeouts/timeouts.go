// Package timeouts provides timeout values for store and service calls.
//
// The maintenance commands build one Config at startup and hand it to the
// workflows that need it, so there is no package-level state to reset
// between runs or tests.
//
// Guidelines for choosing a timeout:
//   - Ping: connectivity verification right after connect
//   - Short: counts, single reads, single bulk updates
//   - Batch: a whole cursor-driven pass over the collection
package timeouts

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Default timeout values.
const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 10 * time.Second
	DefaultBatch = 2 * time.Minute
)

// Config holds timeout configuration values.
type Config struct {
	Ping  time.Duration
	Short time.Duration
	Batch time.Duration
}

// Default returns a Config with every value set to its default.
func Default() Config {
	return Config{Ping: DefaultPing, Short: DefaultShort, Batch: DefaultBatch}
}

// Merge returns c with zero values replaced by the defaults.
func (c Config) Merge() Config {
	d := Default()
	if c.Ping > 0 {
		d.Ping = c.Ping
	}
	if c.Short > 0 {
		d.Short = c.Short
	}
	if c.Batch > 0 {
		d.Batch = c.Batch
	}
	return d
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
// Example:
//
//	ctx, cancel := timeouts.WithTimeout(ctx, cfg.Short, logger, "count missing criteria")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}

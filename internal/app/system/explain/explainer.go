// Package explain turns a university's stats into a natural-language
// explanation using an external text-generation service.
//
// Generation never fails the caller: every problem is reported as an
// Outcome with a FailureReason, and callers store Fallback text instead.
package explain

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dalemusser/doctorados/internal/app/system/htmlsanitize"
	"github.com/dalemusser/doctorados/internal/clients/llmerr"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one explanation request when none is configured.
const DefaultTimeout = 60 * time.Second

// Generator is a text-generation provider.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Explainer requests explanations with a per-call timeout.
type Explainer struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an Explainer. A non-positive timeout selects DefaultTimeout.
func New(gen Generator, timeout time.Duration, logger *zap.Logger) *Explainer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explainer{gen: gen, timeout: timeout, logger: logger}
}

// Explain asks the provider to explain stats for university. Markup in the
// answer is stripped; an answer that is empty afterwards is a failure.
func (e *Explainer) Explain(ctx context.Context, university string, stats models.Stats) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	text, err := e.gen.GenerateText(ctx, SystemPrompt, BuildPrompt(university, stats))
	if err != nil {
		out := Outcome{Reason: classify(err), Err: err}
		e.logger.Warn("explanation generation failed",
			zap.String("university", university),
			zap.String("reason", string(out.Reason)),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return out
	}

	text = htmlsanitize.PlainText(text)
	if text == "" {
		e.logger.Warn("explanation generation returned no text",
			zap.String("university", university))
		return Outcome{Reason: ReasonEmpty}
	}

	e.logger.Debug("explanation generated",
		zap.String("university", university),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)))
	return Outcome{Text: text}
}

func classify(err error) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}

	var he *llmerr.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusUnauthorized || he.StatusCode == http.StatusForbidden:
			return ReasonAuth
		case he.StatusCode == http.StatusTooManyRequests:
			return ReasonQuota
		case he.StatusCode >= 500:
			return ReasonTransport
		default:
			return ReasonBadResponse
		}
	}

	if errors.Is(err, llmerr.ErrMalformedResponse) {
		return ReasonBadResponse
	}
	return ReasonTransport
}

package explain

import (
	"fmt"
)

// FailureReason tags why an explanation could not be generated.
type FailureReason string

const (
	ReasonNone        FailureReason = ""
	ReasonTimeout     FailureReason = "timeout"
	ReasonTransport   FailureReason = "transport"
	ReasonAuth        FailureReason = "auth"
	ReasonQuota       FailureReason = "quota"
	ReasonBadResponse FailureReason = "bad_response"
	ReasonEmpty       FailureReason = "empty"
)

// Outcome is the result of one explanation request: generated text, or a
// failure reason plus the underlying error.
type Outcome struct {
	Text   string
	Reason FailureReason
	Err    error
}

// OK reports whether the service produced usable text.
func (o Outcome) OK() bool {
	return o.Reason == ReasonNone
}

// TextOrFallback returns the generated text, or the fallback for university
// when generation failed.
func (o Outcome) TextOrFallback(university string) string {
	if o.OK() {
		return o.Text
	}
	return Fallback(university)
}

// Failure renders the outcome as a one-line error description.
func (o Outcome) Failure() string {
	if o.OK() {
		return ""
	}
	if o.Err == nil {
		return string(o.Reason)
	}
	return fmt.Sprintf("%s: %v", o.Reason, o.Err)
}

// Fallback is the text stored when no explanation could be generated.
func Fallback(university string) string {
	return fmt.Sprintf("No se pudo generar una explicación para las estadísticas de %s.", university)
}

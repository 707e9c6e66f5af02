package gemini

import "fmt"

// FailureKind classifies why a generation attempt produced no text.
type FailureKind int

const (
	// FailureConfig: missing credential; fatal to the turn, never retried.
	FailureConfig FailureKind = iota
	// FailureTransport: network or request error before a response arrived.
	FailureTransport
	// FailureStatus: the backend answered with a non-2xx status.
	FailureStatus
	// FailureSafety: the prompt or the completion was blocked.
	FailureSafety
	// FailureStructure: a 2xx response without usable text.
	FailureStructure
)

// Failure is a classified generation error. Message doubles as the
// user-visible reply; the orchestrator forwards it verbatim, deliberately
// exposing backend reason codes to aid diagnosis.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

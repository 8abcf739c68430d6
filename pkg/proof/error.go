package proof

import "fmt"

// ProofEngineError marks configuration-class failures: unknown criterion
// names, unsupported field types, malformed data source payloads. These are
// fatal for the current request and surface to the operator unchanged.
type ProofEngineError struct {
	Msg string
}

func (e *ProofEngineError) Error() string {
	return e.Msg
}

// newEngineErrorf uses fmt.Sprintf(format, a...) to format the message
func newEngineErrorf(format string, a ...any) error {
	return &ProofEngineError{
		Msg: fmt.Sprintf(format, a...),
	}
}

// InvalidTokenError reports a {{token}} that could not be resolved while
// suppressErrors was off, or a template that never converged.
type InvalidTokenError struct {
	Token  string
	Reason string
}

func (e *InvalidTokenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid token {{%s}}: %s", e.Token, e.Reason)
	}
	return fmt.Sprintf("invalid token {{%s}}", e.Token)
}

// LookupPendingError reports a declared lookup whose fetch did not complete.
// Lookups have no continuation mechanism, so this is fatal for the request.
type LookupPendingError struct {
	Lookup  string
	DataSet string
}

func (e *LookupPendingError) Error() string {
	return fmt.Sprintf("lookup %s against dataset %s did not complete", e.Lookup, e.DataSet)
}

// DuplicateProofTypeError reports a proof type registered both in code and in
// the declarative configuration. Raised at engine construction, before any
// request is served.
type DuplicateProofTypeError struct {
	ProofType string
}

func (e *DuplicateProofTypeError) Error() string {
	return fmt.Sprintf("proof type %s is registered more than once", e.ProofType)
}

// UnknownProofTypeError is the client-facing error for a request naming a
// proof type absent from the registry. Recoverable by correcting the request.
type UnknownProofTypeError struct {
	ProofType string
}

func (e *UnknownProofTypeError) Error() string {
	return fmt.Sprintf("bad proof type %s", e.ProofType)
}

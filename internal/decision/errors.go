package decision

import "fmt"

// ErrorKind is the closed taxonomy of tier failures.
type ErrorKind string

const (
	// KindConfigurationAbsent marks a deliberate skip, not a failure.
	KindConfigurationAbsent ErrorKind = "configuration_absent"
	KindTransportFailure    ErrorKind = "transport_failure"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindSchemaViolation     ErrorKind = "schema_violation"
	KindInternalException   ErrorKind = "internal_exception"
)

// TierError is returned inside a TierOutcome; it never escapes the generator.
type TierError struct {
	Kind   ErrorKind
	Source Source
	Err    error
}

func (e *TierError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *TierError) Unwrap() error { return e.Err }

func newTierError(src Source, kind ErrorKind, format string, args ...any) *TierError {
	return &TierError{Kind: kind, Source: src, Err: fmt.Errorf(format, args...)}
}

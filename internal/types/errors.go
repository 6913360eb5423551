package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for waypoint operations.
var (
	// ErrConfiguration indicates malformed or conflicting rule declarations.
	// Fatal at load time.
	ErrConfiguration = errors.New("invalid navigation configuration")

	// ErrExpression indicates a condition or target expression failed to evaluate.
	// Aborts the resolution attempt; never treated as false.
	ErrExpression = errors.New("expression evaluation failed")

	// ErrRecoveryFailure indicates no target could be derived for a request
	// that arrived without an active page.
	ErrRecoveryFailure = errors.New("no recovery target")

	// ErrPageNotFound indicates the page factory does not know the target page.
	ErrPageNotFound = errors.New("page not found")

	// ErrSessionNotFound indicates a session is unknown or has expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCoercionFailed indicates an expression result has the wrong type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrMalformedWildcard indicates a rule key with '*' anywhere but the end.
	ErrMalformedWildcard = errors.New("wildcard must terminate the rule key")

	// ErrKeyTooLong indicates a rule key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("rule key too long")

	// ErrMissingTarget indicates a case with neither a target page nor a flow reference.
	ErrMissingTarget = errors.New("case has no target page or flow reference")

	// ErrTooManyCases indicates a rule key exceeds MaxCasesPerKey after merging.
	ErrTooManyCases = errors.New("too many cases for rule key")

	// ErrTooManyParameters indicates a case exceeds MaxParameters or MaxParameterValues.
	ErrTooManyParameters = errors.New("too many case parameters")

	// ErrReservedParameter indicates a case parameter uses a directive control name.
	ErrReservedParameter = errors.New("parameter name reserved for navigation directives")

	// ErrDuplicateParameter indicates a case declares the same parameter name twice.
	ErrDuplicateParameter = errors.New("duplicate parameter name")

	// ErrEmptyParameterName indicates a case parameter without a name.
	ErrEmptyParameterName = errors.New("empty parameter name")
)

// ConfigError locates a configuration failure within a rule.
// Matches both ErrConfiguration and the specific cause with errors.Is.
type ConfigError struct {
	Key  string // rule key
	Case int    // case index within the declared rule, -1 for the rule itself
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Case < 0 {
		return fmt.Sprintf("rule %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("rule %q case %d: %v", e.Key, e.Case, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the cause.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// ExpressionError carries the failing expression text.
// Matches ErrExpression and the underlying cause with errors.Is.
type ExpressionError struct {
	Expr string
	Err  error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the cause.
func (e *ExpressionError) Unwrap() []error {
	return []error{ErrExpression, e.Err}
}

package dag

import "fmt"

// ErrorCode taxonomizes every failure the consensus core can produce
// (spec §7). ParentUnknown and HashTreeMissing are deliberately NOT errors
// returned from Validate — they surface as Outcome variants (NeedParents /
// NeedHashTree) per §7's "treat as X, not an error" rule; the codes still
// exist here so catchup/logging code can tag diagnostics consistently.
type ErrorCode string

const (
	ErrMalformed             ErrorCode = "MALFORMED"
	ErrNestingTooDeep        ErrorCode = "NESTING_TOO_DEEP"
	ErrDefinitionMalformed   ErrorCode = "DEFINITION_MALFORMED"
	ErrReferenceNotAllowed   ErrorCode = "REFERENCE_NOT_ALLOWED"
	ErrComplexityExceeded    ErrorCode = "COMPLEXITY_EXCEEDED"
	ErrUnresolvedInnerAddr   ErrorCode = "UNRESOLVED_INNER_ADDRESS"
	ErrEvaluatedFalse        ErrorCode = "EVALUATED_FALSE"
	ErrParentUnknown         ErrorCode = "PARENT_UNKNOWN"
	ErrHashTreeMissing       ErrorCode = "HASH_TREE_MISSING"
	ErrConflict              ErrorCode = "CONFLICT"
	ErrDoubleSpend           ErrorCode = "DOUBLE_SPEND"
	ErrInsufficientInputs    ErrorCode = "INSUFFICIENT_INPUTS"
	ErrAssetPolicyViolation  ErrorCode = "ASSET_POLICY_VIOLATION"
	ErrLastBallStaleOrMoved  ErrorCode = "LAST_BALL_STALE_OR_ADVANCED"
	ErrTransient             ErrorCode = "TRANSIENT"
	ErrFatal                 ErrorCode = "FATAL"
)

// Error is the single error type every consensus package returns. Context
// carries enough to log without truncation but callers MUST NOT stuff
// unbounded peer-supplied blobs into it (§4.5.2, §7).
type Error struct {
	Code    ErrorCode
	Msg     string
	Context map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Retriable reports whether the caller may retry the same operation later
// without the outcome necessarily differing (Transient, LastBallStaleOrMoved).
func (e *Error) Retriable() bool {
	if e == nil {
		return false
	}
	return e.Code == ErrTransient || e.Code == ErrLastBallStaleOrMoved
}

func newErr(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func newErrCtx(code ErrorCode, msg string, ctx map[string]any) *Error {
	return &Error{Code: code, Msg: msg, Context: ctx}
}

// AsError unwraps err into *Error if possible.
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

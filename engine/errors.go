package engine

import "errors"

// Contract violations: malformed front-end output. Fatal for the whole
// proc; a correct front end makes them impossible.
var (
	ErrUnhandledEffect = errors.New("unhandled effect")
	ErrArityMismatch   = errors.New("operation arity mismatch")
)

// Engine invariant violations: misuse of the low-level API or a bug in
// the engine itself. Also fatal, never retried.
var (
	ErrFrameMismatch        = errors.New("handler frame mismatch")
	ErrContinuationConsumed = errors.New("continuation already consumed")
	ErrContinuationMisuse   = errors.New("continuation misuse")
	ErrIncompleteHandler    = errors.New("incomplete handler")
	ErrReplayDivergence     = errors.New("replay divergence")
)

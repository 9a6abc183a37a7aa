package engine

// Option configures a Runtime.
type Option func(*Runtime)

// WithSingleShot restricts every continuation to at most one resumption.
// A second Resume on the same continuation fails with
// ErrContinuationConsumed. The default is multi-shot: backtracking-style
// handlers may resume the same continuation many times.
func WithSingleShot() Option {
	return func(rt *Runtime) {
		rt.singleShot = true
	}
}

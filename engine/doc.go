// Package engine dispatches effect operations to dynamically scoped
// handlers and reifies suspended computations as resumable, multi-shot
// continuations.
//
// A Proc is one logical thread of control holding a stack of handler
// frames. Run installs frames and evaluates a body; Perform suspends the
// body at an operation call site and hands the nearest matching handler
// the operation's arguments plus a Continuation for the remainder. The
// handler resumes zero or more times, or returns a value of its own to
// abort; either way its result becomes the run block's result.
//
// Continuations are checkpoints, not forked stacks: resuming one
// re-executes the delimiting run body, answering already-journaled
// operations from the journal (their handlers do not run again) and
// diverging at the capture point with the new resume value. Bodies must
// therefore be deterministic modulo performed operations; divergence is
// detected by operation fingerprints and fails fast.
package engine

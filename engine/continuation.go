package engine

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/effrun-dev/effrun/trace"
)

// Continuation is the reified rest of a computation, from an effect
// operation call site to the end of the run block whose handler resolved
// it. It is a shared value: a handler may store it, pass it on, or
// invoke it any number of times; each invocation is an independent
// execution of the remainder.
//
// The representation is a checkpoint: the delimiting run block's body
// and handler set, the handler-stack token captured below that block,
// and the journal prefix of operations the suspended body execution had
// already consumed. Resume re-executes the body, answering the prefix
// from the journal without re-invoking its handlers, delivers the resume
// value at the capture point, and lets the remainder run live. Two
// resumptions therefore share no mutable suspended-frame state.
type Continuation struct {
	id         string
	p          *Proc
	body       Thunk
	handlers   []*Handler
	below      Token
	prefix     trace.Journal
	entry      trace.Entry
	resumable  bool
	singleShot bool

	mu      sync.Mutex
	invoked int
}

// ID identifies the continuation in logs and diagnostics.
func (k *Continuation) ID() string { return k.id }

// Invoked reports how many times Resume has been called.
func (k *Continuation) Invoked() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.invoked
}

// Journal returns a copy of the journal prefix the continuation would
// replay, for diagnostics.
func (k *Continuation) Journal() trace.Journal {
	return k.prefix.Clone()
}

// Resume supplies v as the result of the captured operation call and
// runs the remainder of the delimiting run block to completion, to an
// abort, or to a further effect handled before Resume returns. It may be
// called zero or more times; with the runtime in single-shot mode a
// second call fails with ErrContinuationConsumed. Resuming the
// continuation of a non-resumable operation fails with
// ErrContinuationMisuse. Both failures are fatal for the proc.
func (k *Continuation) Resume(v Value) (Value, error) {
	p := k.p
	if !k.resumable {
		return nil, p.fail(fmt.Errorf("%w: %s.%s is not resumable",
			ErrContinuationMisuse, k.entry.Effect, k.entry.Op))
	}
	k.mu.Lock()
	n := k.invoked
	k.invoked++
	k.mu.Unlock()
	if k.singleShot && n > 0 {
		return nil, p.fail(fmt.Errorf("%w: %s.%s continuation resumed twice in single-shot mode",
			ErrContinuationConsumed, k.entry.Effect, k.entry.Op))
	}
	if p.fatal != nil {
		return nil, p.fatal
	}

	ent := k.entry
	ent.Value = v
	script := k.prefix.Clone().Append(ent)

	log.Trace().Str("proc", p.id).Str("continuation", k.id).
		Str("effect", k.entry.Effect).Str("op", k.entry.Op).
		Int("invocation", n+1).Int("script", len(script)).
		Msg("continuation: resuming")

	// The captured token replaces the active stack for the scope of this
	// resume, so effects the remainder raises afresh resolve to the
	// handlers that were dynamically enclosing it at capture time. The
	// resumer's own stack comes back when Resume returns.
	saved := p.stack.Snapshot()
	p.stack.Restore(k.below)
	defer p.stack.Restore(saved)

	e := p.newExecution(k.body, k.handlers, script)
	return p.runExec(e)
}

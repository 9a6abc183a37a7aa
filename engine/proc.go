package engine

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/effrun-dev/effrun/trace"
)

// Proc is one logical thread of control: a handler stack plus the run
// activations currently open on it. A Proc and any in-flight
// continuation captured on it are single-threaded; independent Procs may
// run concurrently.
type Proc struct {
	rt    *Runtime
	id    string
	stack Stack
	execs []*execution
	marks []dispatchMark
	fatal error
}

// execution is one body evaluation of a run block. A fresh execution is
// created both by Run and by every Continuation.Resume; resumed
// executions carry a script, the journal prefix to replay plus the new
// resume value at its end.
type execution struct {
	id       string
	body     Thunk
	handlers []*Handler
	frames   []FrameHandle
	below    Token
	script   trace.Journal
	cursor   int
	journal  trace.Journal
}

// ID identifies the proc in logs and diagnostics.
func (p *Proc) ID() string { return p.id }

// Runtime returns the runtime that created this proc.
func (p *Proc) Runtime() *Runtime { return p.rt }

// Stack exposes the proc's handler stack for low-level embedding and
// tests. Driver callers never need it.
func (p *Proc) Stack() *Stack { return &p.stack }

// Err returns the latched fatal error, if any. Once a contract or
// invariant violation is latched every open run activation reports it.
func (p *Proc) Err() error { return p.fatal }

func (p *Proc) newExecution(body Thunk, handlers []*Handler, script trace.Journal) *execution {
	return &execution{
		id:       uuid.NewString(),
		body:     body,
		handlers: handlers,
		below:    p.stack.Snapshot(),
		script:   script,
	}
}

func (p *Proc) isOpen(e *execution) bool {
	for _, x := range p.execs {
		if x == e {
			return true
		}
	}
	return false
}

func (p *Proc) openIndex(e *execution) int {
	for i, x := range p.execs {
		if x == e {
			return i
		}
	}
	return -1
}

// scriptedTarget returns the innermost open execution that still has
// unconsumed script entries, meaning the proc is replaying a journal
// prefix on behalf of a resumed continuation.
func (p *Proc) scriptedTarget() (*execution, int) {
	for i := len(p.execs) - 1; i >= 0; i-- {
		if p.execs[i].cursor < len(p.execs[i].script) {
			return p.execs[i], i
		}
	}
	return nil, -1
}

// dispatchMark notes the open executions whose bodies are suspended by
// an in-flight operation dispatch: the activation owning the resolving
// frame and everything open above it when the handler body started.
// Operations performed inside the handler body are not part of those
// bodies, so their journal entries must not be recorded there.
type dispatchMark struct {
	start, end int
}

func (p *Proc) pushMark(ownerIdx int) {
	start := ownerIdx
	if start < 0 {
		start = len(p.execs)
	}
	p.marks = append(p.marks, dispatchMark{start: start, end: len(p.execs)})
}

func (p *Proc) popMark() {
	p.marks = p.marks[:len(p.marks)-1]
}

func (p *Proc) suspended(i int) bool {
	for _, m := range p.marks {
		if m.start <= i && i < m.end {
			return true
		}
	}
	return false
}

// record appends a consumed journal entry to the consuming execution and
// every execution opened inside it whose body extent contains the
// current point. Executions re-created during a replay rebuild their
// journals this way, so continuations captured inside the replayed
// region see the right prefix.
func (p *Proc) record(from int, ent trace.Entry) {
	for i := from; i < len(p.execs); i++ {
		if p.suspended(i) {
			continue
		}
		p.execs[i].journal = p.execs[i].journal.Append(ent)
	}
}

// fail latches a fatal error and aborts every open run activation on the
// proc by unwinding to the outermost one. Called with no activation open
// it just returns the latched error.
func (p *Proc) fail(err error) error {
	if p.fatal == nil {
		p.fatal = err
	}
	log.Error().Str("proc", p.id).Err(err).Msg("proc: fatal error latched")
	if len(p.execs) > 0 {
		panic(runAbort{exec: p.execs[0], err: p.fatal})
	}
	return p.fatal
}

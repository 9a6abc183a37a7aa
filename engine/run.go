package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/effrun-dev/effrun/effect"
)

// Runtime owns the effect registry and the dispatch policy. One Runtime
// serves any number of concurrent procs.
type Runtime struct {
	reg        *effect.Registry
	singleShot bool
}

// New builds a runtime over a registry. The registry is sealed on the
// first run activation.
func New(reg *effect.Registry, opts ...Option) *Runtime {
	rt := &Runtime{reg: reg}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Registry returns the runtime's effect registry.
func (rt *Runtime) Registry() *effect.Registry { return rt.reg }

// NewProc creates a fresh logical thread of control.
func (rt *Runtime) NewProc() *Proc {
	return &Proc{rt: rt, id: uuid.NewString()}
}

// Run evaluates body under the given handlers on a fresh proc.
func (rt *Runtime) Run(body Thunk, handlers ...*Handler) (Value, error) {
	return rt.NewProc().Run(body, handlers...)
}

// runAbort transfers control from an operation dispatch back to the run
// activation whose handler produced a result, discarding the suspended
// remainder of that activation's body. It is an internal control signal,
// confined to the driver; handler implementations must not recover it.
type runAbort struct {
	exec *execution
	val  Value
	err  error
}

// Run installs the handler frames, evaluates body, and drives the
// suspend/resume/return protocol to a final value. Handlers are pushed
// in the order given, so the last listed handler is the one nearest the
// body. Frames are popped in reverse order on every exit path.
func (p *Proc) Run(body Thunk, handlers ...*Handler) (Value, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	p.rt.reg.Seal()
	e := p.newExecution(body, handlers, nil)
	return p.runExec(e)
}

func (p *Proc) runExec(e *execution) (v Value, err error) {
	p.execs = append(p.execs, e)
	for _, h := range e.handlers {
		fh := p.stack.Push(h)
		fh.f.owner = e
		e.frames = append(e.frames, fh)
	}
	log.Trace().Str("proc", p.id).Str("exec", e.id).
		Int("handlers", len(e.handlers)).Int("script", len(e.script)).
		Msg("run: frames installed")
	defer p.closeExec(e, &err)

	v, err = p.evalBody(e)
	if p.fatal != nil {
		return nil, p.fatal
	}
	if err == nil && e.cursor < len(e.script) {
		return nil, p.latch(fmt.Errorf(
			"%w: body completed after %d of %d journal entries",
			ErrReplayDivergence, e.cursor, len(e.script)))
	}
	return v, err
}

// evalBody runs the body and intercepts runAbort signals addressed to
// this execution. Signals for an execution that is no longer open (a
// continuation resumed after its run block was torn down) land at the
// nearest live driver boundary.
func (p *Proc) evalBody(e *execution) (v Value, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ab, ok := r.(runAbort)
		if !ok {
			panic(r)
		}
		if ab.exec != e && p.isOpen(ab.exec) {
			panic(r)
		}
		if ab.exec != e {
			log.Warn().Str("proc", p.id).Str("exec", e.id).
				Str("target", ab.exec.id).
				Msg("run: absorbing abort for a closed activation")
		}
		v, err = ab.val, ab.err
	}()
	return e.body(p)
}

// closeExec pops the execution's frames in reverse push order and
// removes it from the open set. Runs on completion, on abort, and on
// error propagation through the run block alike.
func (p *Proc) closeExec(e *execution, errp *error) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if perr := p.stack.Pop(e.frames[i]); perr != nil && p.fatal == nil {
			p.fatal = perr
		}
	}
	if n := len(p.execs); n > 0 && p.execs[n-1] == e {
		p.execs = p.execs[:n-1]
	} else if p.fatal == nil {
		p.fatal = fmt.Errorf("%w: activation %s closed out of order", ErrFrameMismatch, e.id)
	}
	if p.fatal != nil && *errp == nil {
		*errp = p.fatal
	}
	log.Trace().Str("proc", p.id).Str("exec", e.id).Msg("run: frames torn down")
}

// latch records a fatal error without unwinding; used where the driver
// is already returning.
func (p *Proc) latch(err error) error {
	if p.fatal == nil {
		p.fatal = err
	}
	log.Error().Str("proc", p.id).Err(err).Msg("proc: fatal error latched")
	return p.fatal
}

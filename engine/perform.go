package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/effrun-dev/effrun/effect"
	"github.com/effrun-dev/effrun/trace"
)

// Perform invokes an effect operation. Elaborated code calls it in place
// of a bare effect-operation invocation; it returns the value the
// nearest handler eventually resumes with, or does not return normally
// when the handler aborts (the driver unwinds the discarded remainder).
//
// Failures it reports are fatal contract violations: unknown effect or
// operation, arity mismatch, or no handler on the current stack. They
// latch on the proc, so the enclosing Run reports them even if body code
// drops the returned error.
func (p *Proc) Perform(id effect.ID, op string, args ...Value) (Value, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	sig, err := p.rt.reg.LookupOperation(id, op)
	if err != nil {
		return nil, p.fail(err)
	}
	if len(args) != sig.Arity {
		return nil, p.fail(fmt.Errorf("%w: %q.%s takes %d arguments, got %d",
			ErrArityMismatch, id, op, sig.Arity, len(args)))
	}
	fp := trace.FingerprintOp(string(id), op, args)

	fh, found := p.stack.FindNearest(id)

	// A replayed prefix answers operations that resolved at or outside
	// the replaying activation; the handlers already ran in the
	// execution this journal was captured from. Operations resolving to
	// a frame opened inside the replaying activation dispatch live, so
	// nested handlers genuinely re-run.
	if se, seIdx := p.scriptedTarget(); se != nil && !(found && p.openIndex(fh.f.owner) > seIdx) {
		ent := se.script[se.cursor]
		if ent.Fingerprint != fp {
			return nil, p.fail(fmt.Errorf(
				"%w: replaying %q.%s (%s) but journal entry %d is %s.%s (%s)",
				ErrReplayDivergence, id, op, fp, se.cursor, ent.Effect, ent.Op, ent.Fingerprint))
		}
		se.cursor++
		p.record(p.openIndex(se), ent)
		log.Trace().Str("proc", p.id).Str("exec", se.id).
			Str("effect", string(id)).Str("op", op).Int("entry", se.cursor-1).
			Msg("perform: answered from journal")
		return ent.Value, nil
	}

	if !found {
		return nil, p.fail(fmt.Errorf("%w: %q.%s has no enclosing handler",
			ErrUnhandledEffect, id, op))
	}

	owner := fh.f.owner
	if owner == nil {
		return nil, p.fail(fmt.Errorf("%w: frame for %q was installed outside a run activation",
			ErrFrameMismatch, id))
	}
	impl := fh.f.handler.ops[op]
	k := &Continuation{
		id:         uuid.NewString(),
		p:          p,
		body:       owner.body,
		handlers:   owner.handlers,
		below:      owner.below,
		prefix:     owner.journal.Clone(),
		entry:      trace.Entry{Fingerprint: fp, Effect: string(id), Op: op},
		resumable:  sig.Resumable,
		singleShot: p.rt.singleShot,
	}
	log.Trace().Str("proc", p.id).Str("exec", owner.id).
		Str("effect", string(id)).Str("op", op).Str("continuation", k.id).
		Bool("resumable", sig.Resumable).
		Msg("perform: dispatching to nearest handler")

	// The handler body runs with its own frame, and everything above it,
	// off the stack; re-raising its own effect searches from the
	// next-nearest frame outward.
	res, herr := p.invokeImpl(fh, impl, args, k)

	// The implementation's result is the run block's result, whether it
	// resumed the continuation or discarded it. Unwind the suspended
	// remainder back to the owning activation.
	panic(runAbort{exec: owner, val: res, err: herr})
}

// invokeImpl runs a handler body with its frame, and everything above
// it, off the stack, and with the suspended activations marked so that
// operations performed by the body are not recorded into their journals.
func (p *Proc) invokeImpl(fh FrameHandle, impl OpFunc, args []Value, k *Continuation) (Value, error) {
	p.pushMark(p.openIndex(fh.f.owner))
	defer p.popMark()
	saved := p.stack.Snapshot()
	p.stack.Restore(p.stack.Below(fh))
	defer p.stack.Restore(saved)
	return impl(p, args, k)
}

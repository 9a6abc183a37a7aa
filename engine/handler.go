package engine

import (
	"fmt"

	"github.com/effrun-dev/effrun/effect"
)

// Value is what flows through effect operations and run results. The
// runtime never inspects values beyond logging them.
type Value = any

// Thunk is an elaborated run-block body.
type Thunk func(p *Proc) (Value, error)

// OpFunc implements one operation of an effect. It runs with the
// handler's own frame off the stack, so performing the same effect from
// inside an implementation resolves to the next-nearest handler. Its
// return value becomes the result of the run block that installed the
// handler; returning without calling k.Resume discards the suspended
// remainder.
type OpFunc func(p *Proc, args []Value, k *Continuation) (Value, error)

// Handler maps every operation of one effect to an implementation. The
// mapping is validated for totality at construction time, not at
// dispatch time.
type Handler struct {
	effect effect.ID
	decl   *effect.Decl
	ops    map[string]OpFunc
}

// NewHandler builds a handler for a declared effect. Every declared
// operation needs an implementation (ErrIncompleteHandler otherwise) and
// implementations for undeclared operations are rejected.
func NewHandler(reg *effect.Registry, id effect.ID, ops map[string]OpFunc) (*Handler, error) {
	decl, err := reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	for name, fn := range ops {
		if fn == nil {
			return nil, fmt.Errorf("%w: nil implementation for %q.%s", ErrIncompleteHandler, id, name)
		}
		if _, ok := decl.Op(name); !ok {
			return nil, fmt.Errorf("%w: %q.%s", effect.ErrUnknownOperation, id, name)
		}
	}
	for _, sig := range decl.Ops {
		if _, ok := ops[sig.Name]; !ok {
			return nil, fmt.Errorf("%w: %q.%s has no implementation", ErrIncompleteHandler, id, sig.Name)
		}
	}
	h := &Handler{effect: id, decl: decl, ops: make(map[string]OpFunc, len(ops))}
	for name, fn := range ops {
		h.ops[name] = fn
	}
	return h, nil
}

// Effect returns the effect this handler implements.
func (h *Handler) Effect() effect.ID { return h.effect }

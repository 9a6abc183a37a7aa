// Package starhost binds the effect runtime to Starlark, acting as a
// reference front end: programs written in Starlark declare their
// handlers as plain functions and raise effects with a predeclared
// perform builtin. Starlark functions re-execute deterministically,
// which is exactly what the engine's replay-based continuations need, so
// multi-shot handlers work unchanged.
package starhost

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/effrun-dev/effrun/effect"
	"github.com/effrun-dev/effrun/engine"
)

const procKey = "effrun.proc"

// Host runs Starlark effect programs against one runtime.
type Host struct {
	reg *effect.Registry
	rt  *engine.Runtime
}

func NewHost(reg *effect.Registry, rt *engine.Runtime) *Host {
	return &Host{reg: reg, rt: rt}
}

// Predeclared returns the builtins available to hosted programs:
//
//	perform(effect, op, *args)      raise an effect operation
//	run(body, handlers)             evaluate body() under handlers, where
//	                                handlers is a dict of the form
//	                                {"Effect": {"op": fn}} and each fn
//	                                receives the operation's arguments
//	                                followed by a resume callable
func (h *Host) Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"perform": starlark.NewBuiltin("perform", h.performBuiltin),
		"run":     starlark.NewBuiltin("run", h.runBuiltin),
	}
}

func procOf(thread *starlark.Thread) (*engine.Proc, error) {
	p, _ := thread.Local(procKey).(*engine.Proc)
	if p == nil {
		return nil, fmt.Errorf("starhost: %s called outside a hosted program", thread.Name)
	}
	return p, nil
}

func (h *Host) performBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("perform: unexpected keyword arguments")
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("perform: want (effect, op, *args)")
	}
	effName, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("perform: effect must be a string, got %s", args[0].Type())
	}
	opName, ok := starlark.AsString(args[1])
	if !ok {
		return nil, fmt.Errorf("perform: op must be a string, got %s", args[1].Type())
	}
	p, err := procOf(thread)
	if err != nil {
		return nil, err
	}
	opArgs := make([]engine.Value, 0, len(args)-2)
	for _, a := range args[2:] {
		ga, err := fromStarlark(a)
		if err != nil {
			return nil, err
		}
		opArgs = append(opArgs, ga)
	}
	res, err := p.Perform(effect.ID(effName), opName, opArgs...)
	if err != nil {
		return nil, err
	}
	return toStarlark(res)
}

func (h *Host) runBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var body starlark.Callable
	var handlerDict *starlark.Dict
	if err := starlark.UnpackPositionalArgs("run", args, kwargs, 2, &body, &handlerDict); err != nil {
		return nil, err
	}
	p, err := procOf(thread)
	if err != nil {
		return nil, err
	}
	handlers, err := h.buildHandlers(thread, handlerDict)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(func(p *engine.Proc) (engine.Value, error) {
		v, err := starlark.Call(thread, body, nil, nil)
		if err != nil {
			return nil, err
		}
		return fromStarlark(v)
	}, handlers...)
	if err != nil {
		return nil, err
	}
	return toStarlark(res)
}

// buildHandlers turns {"Effect": {"op": fn}} into engine handlers. Each
// operation function is called with the operation's arguments followed
// by a resume callable wrapping the continuation.
func (h *Host) buildHandlers(thread *starlark.Thread, d *starlark.Dict) ([]*engine.Handler, error) {
	var out []*engine.Handler
	for _, item := range d.Items() {
		effName, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("run: handler key %s is not an effect name", item[0])
		}
		opDict, ok := item[1].(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("run: handler for %q must be a dict of operations", effName)
		}
		ops := map[string]engine.OpFunc{}
		for _, opItem := range opDict.Items() {
			opName, ok := starlark.AsString(opItem[0])
			if !ok {
				return nil, fmt.Errorf("run: operation key %s is not a string", opItem[0])
			}
			fn, ok := opItem[1].(starlark.Callable)
			if !ok {
				return nil, fmt.Errorf("run: %q.%s implementation is not callable", effName, opName)
			}
			ops[opName] = h.opFunc(thread, fn)
		}
		handler, err := engine.NewHandler(h.reg, effect.ID(effName), ops)
		if err != nil {
			return nil, err
		}
		out = append(out, handler)
	}
	return out, nil
}

func (h *Host) opFunc(thread *starlark.Thread, fn starlark.Callable) engine.OpFunc {
	return func(p *engine.Proc, args []engine.Value, k *engine.Continuation) (engine.Value, error) {
		callArgs := make(starlark.Tuple, 0, len(args)+1)
		for _, a := range args {
			sa, err := toStarlark(a)
			if err != nil {
				return nil, err
			}
			callArgs = append(callArgs, sa)
		}
		callArgs = append(callArgs, resumeBuiltin(k))
		res, err := starlark.Call(thread, fn, callArgs, nil)
		if err != nil {
			return nil, err
		}
		return fromStarlark(res)
	}
}

func resumeBuiltin(k *engine.Continuation) *starlark.Builtin {
	return starlark.NewBuiltin("resume", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value = starlark.None
		if err := starlark.UnpackPositionalArgs("resume", args, kwargs, 0, &v); err != nil {
			return nil, err
		}
		gv, err := fromStarlark(v)
		if err != nil {
			return nil, err
		}
		res, err := k.Resume(gv)
		if err != nil {
			return nil, err
		}
		return toStarlark(res)
	})
}

// RunSource executes a Starlark program from src and calls its entry
// function on a fresh proc. src may be nil to read the file at filename,
// or a string/[]byte of source text.
func (h *Host) RunSource(filename string, src any, entry string) (engine.Value, error) {
	p := h.rt.NewProc()
	thread := &starlark.Thread{Name: "effrun"}
	thread.SetLocal(procKey, p)
	// Replay-based continuations re-enter the body function while it is
	// still active, which Starlark only permits with Recursion enabled.
	opts := &syntax.FileOptions{Recursion: true}
	globals, err := starlark.ExecFileOptions(opts, thread, filename, src, h.Predeclared())
	if err != nil {
		return nil, err
	}
	fn, ok := globals[entry].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("starhost: %s does not define an entry function %q", filename, entry)
	}
	res, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, err
	}
	return fromStarlark(res)
}

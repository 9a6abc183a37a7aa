package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// asBranches normalizes a resume result for handlers that collect the
// outcomes of several resumptions.
func asBranches(v Value) []Value {
	if s, ok := v.([]Value); ok {
		return s
	}
	return []Value{v}
}

func TestMultiShotResumeTwice(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	h := mustHandler(t, reg, "Choice", map[string]OpFunc{
		"pick": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			a, err := k.Resume(true)
			if err != nil {
				return nil, err
			}
			b, err := k.Resume(false)
			if err != nil {
				return nil, err
			}
			return []Value{a, b}, nil
		},
	})

	v, err := rt.Run(func(p *Proc) (Value, error) {
		picked, err := p.Perform("Choice", "pick")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("got-%v", picked), nil
	}, h)
	require.NoError(t, err)
	require.Equal(t, []Value{"got-true", "got-false"}, v)
}

// A body that picks twice under a handler that resumes each pick with
// both booleans enumerates all four paths through the body.
func TestMultiShotEnumeratesAllPaths(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	calls := 0
	h := mustHandler(t, reg, "Choice", map[string]OpFunc{
		"pick": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			calls++
			yes, err := k.Resume(true)
			if err != nil {
				return nil, err
			}
			no, err := k.Resume(false)
			if err != nil {
				return nil, err
			}
			return append(asBranches(yes), asBranches(no)...), nil
		},
	})

	v, err := rt.Run(func(p *Proc) (Value, error) {
		a, err := p.Perform("Choice", "pick")
		if err != nil {
			return nil, err
		}
		b, err := p.Perform("Choice", "pick")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v,%v", a, b), nil
	}, h)
	require.NoError(t, err)
	require.Equal(t, []Value{"true,true", "true,false", "false,true", "false,false"}, v)
	// One live dispatch per pick the body reaches: the first pick once,
	// the second pick once per branch of the first.
	require.Equal(t, 3, calls)
}

// Each resumption re-runs the remainder, so its side effects happen once
// per invocation. The suspended original remainder never runs.
func TestRemainderRunsOncePerResumption(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	h := mustHandler(t, reg, "Ask", map[string]OpFunc{
		"get": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			if _, err := k.Resume(1); err != nil {
				return nil, err
			}
			if _, err := k.Resume(2); err != nil {
				return nil, err
			}
			return "done", nil
		},
	})

	ran := 0
	v, err := rt.Run(func(p *Proc) (Value, error) {
		got, err := p.Perform("Ask", "get")
		if err != nil {
			return nil, err
		}
		ran++
		return got, nil
	}, h)
	require.NoError(t, err)
	require.Equal(t, "done", v)
	require.Equal(t, 2, ran)
}

// A continuation may outlive its run block. Resuming it later re-enters
// the remainder as a fresh activation and returns its result.
func TestResumeAfterRunReturns(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	var parked *Continuation
	h := mustHandler(t, reg, "Ask", map[string]OpFunc{
		"get": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			parked = k
			return "parked", nil
		},
	})

	p := rt.NewProc()
	v, err := p.Run(func(p *Proc) (Value, error) {
		got, err := p.Perform("Ask", "get")
		if err != nil {
			return nil, err
		}
		return got.(int) * 2, nil
	}, h)
	require.NoError(t, err)
	require.Equal(t, "parked", v)
	require.NotNil(t, parked)

	late, err := parked.Resume(42)
	require.NoError(t, err)
	require.Equal(t, 84, late)
	require.Equal(t, 0, p.Stack().Depth())
}

// A late-resumed remainder can dispatch to a handler whose run block has
// already closed. If that handler aborts, the abort has no live target;
// it is absorbed at the resumption boundary and becomes its result.
func TestLateResumeAbortFromClosedFrame(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	hEmit := mustHandler(t, reg, "Emit", map[string]OpFunc{
		"put": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			return fmt.Sprintf("emitted:%v", args[0]), nil
		},
	})
	var parked *Continuation
	hAsk := mustHandler(t, reg, "Ask", map[string]OpFunc{
		"get": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			parked = k
			return "parked", nil
		},
	})

	p := rt.NewProc()
	v, err := p.Run(func(p *Proc) (Value, error) {
		return p.Run(func(p *Proc) (Value, error) {
			got, err := p.Perform("Ask", "get")
			if err != nil {
				return nil, err
			}
			return p.Perform("Emit", "put", got)
		}, hAsk)
	}, hEmit)
	require.NoError(t, err)
	require.Equal(t, "parked", v)
	require.NotNil(t, parked)

	late, err := parked.Resume(9)
	require.NoError(t, err)
	require.Equal(t, "emitted:9", late)
	require.Equal(t, 0, p.Stack().Depth())
	require.NoError(t, p.Err())
}

func TestSingleShotRejectsSecondResume(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg, WithSingleShot())

	h := mustHandler(t, reg, "Choice", map[string]OpFunc{
		"pick": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			if _, err := k.Resume(true); err != nil {
				return nil, err
			}
			// Fatal: the violation unwinds the whole proc, so this
			// handler never returns normally.
			return k.Resume(false)
		},
	})

	p := rt.NewProc()
	_, err := p.Run(func(p *Proc) (Value, error) {
		return p.Perform("Choice", "pick")
	}, h)
	require.ErrorIs(t, err, ErrContinuationConsumed)
	require.ErrorIs(t, p.Err(), ErrContinuationConsumed)
}

func TestContinuationInvokedCount(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	var seen *Continuation
	h := mustHandler(t, reg, "Ask", map[string]OpFunc{
		"get": func(p *Proc, args []Value, k *Continuation) (Value, error) {
			seen = k
			if _, err := k.Resume("a"); err != nil {
				return nil, err
			}
			_, err := k.Resume("b")
			return nil, err
		},
	})

	_, err := rt.Run(func(p *Proc) (Value, error) {
		return p.Perform("Ask", "get")
	}, h)
	require.NoError(t, err)
	require.Equal(t, 2, seen.Invoked())
}

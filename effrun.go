// Package effrun is a runtime for user-defined algebraic effects with
// deep, dynamically scoped, resumable handlers, including multi-shot
// resumption.
//
// A front end declares effects in a Registry, elaborates code into
// bodies that call Proc.Perform, and supplies handler implementations.
// Run evaluates a body under a chain of handlers; the dispatch and
// resumption semantics live in the engine package, the static effect
// declarations in the effect package.
package effrun

import (
	"github.com/effrun-dev/effrun/effect"
	"github.com/effrun-dev/effrun/engine"
)

// Re-exported aliases so simple embedders only import this package.
type (
	Registry     = effect.Registry
	ID           = effect.ID
	OpSig        = effect.OpSig
	Value        = engine.Value
	Thunk        = engine.Thunk
	OpFunc       = engine.OpFunc
	Handler      = engine.Handler
	Continuation = engine.Continuation
	Runtime      = engine.Runtime
	Proc         = engine.Proc
	Option       = engine.Option
)

// NewRegistry creates an empty effect registry.
func NewRegistry() *Registry {
	return effect.NewRegistry()
}

// New builds a runtime over a registry.
func New(reg *Registry, opts ...Option) *Runtime {
	return engine.New(reg, opts...)
}

// NewHandler builds a handler for a declared effect, validating that
// every declared operation has an implementation.
func NewHandler(reg *Registry, id ID, ops map[string]OpFunc) (*Handler, error) {
	return engine.NewHandler(reg, id, ops)
}

// WithSingleShot restricts continuations to a single resumption.
func WithSingleShot() Option {
	return engine.WithSingleShot()
}

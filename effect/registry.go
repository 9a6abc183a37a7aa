// Package effect holds the static description of declared effects: their
// identity and the signatures of their operations. Declarations are made
// once, before any run activation references them, and the registry is
// sealed read-only from then on.
package effect

import (
	"errors"
	"fmt"
	"sync"
)

// ID names a declared effect. Dispatch compares IDs by identity only.
type ID string

// OpSig describes one operation of an effect.
type OpSig struct {
	Name      string
	Arity     int
	Resumable bool
}

// Decl is an immutable effect declaration.
type Decl struct {
	ID  ID
	Ops []OpSig
}

// Op returns the signature for name, if the declaration has it.
func (d *Decl) Op(name string) (OpSig, bool) {
	for _, op := range d.Ops {
		if op.Name == name {
			return op, true
		}
	}
	return OpSig{}, false
}

var (
	ErrRedeclared       = errors.New("effect already declared")
	ErrSealed           = errors.New("registry is sealed")
	ErrUnknownEffect    = errors.New("unknown effect")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrBadDecl          = errors.New("invalid effect declaration")
)

// Registry maps effect IDs to their declarations. Safe for concurrent
// reads once sealed; declarations and reads are serialized before that.
type Registry struct {
	mu     sync.RWMutex
	decls  map[ID]*Decl
	sealed bool
}

func NewRegistry() *Registry {
	return &Registry{decls: map[ID]*Decl{}}
}

// Declare registers an effect exactly once. It fails after Seal, on
// re-declaration, and on malformed declarations (no operations, duplicate
// or empty operation names, negative arity).
func (r *Registry) Declare(id ID, ops []OpSig) error {
	if id == "" {
		return fmt.Errorf("%w: empty effect id", ErrBadDecl)
	}
	if len(ops) == 0 {
		return fmt.Errorf("%w: effect %q has no operations", ErrBadDecl, id)
	}
	seen := map[string]bool{}
	for _, op := range ops {
		if op.Name == "" {
			return fmt.Errorf("%w: effect %q has an unnamed operation", ErrBadDecl, id)
		}
		if op.Arity < 0 {
			return fmt.Errorf("%w: operation %q.%s has negative arity", ErrBadDecl, id, op.Name)
		}
		if seen[op.Name] {
			return fmt.Errorf("%w: operation %q.%s declared twice", ErrBadDecl, id, op.Name)
		}
		seen[op.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot declare effect %q", ErrSealed, id)
	}
	if _, ok := r.decls[id]; ok {
		return fmt.Errorf("%w: %q", ErrRedeclared, id)
	}
	decl := &Decl{ID: id}
	decl.Ops = append(decl.Ops, ops...)
	r.decls[id] = decl
	return nil
}

// Seal makes the registry read-only. Idempotent; the driver seals the
// registry on its first run activation.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the declaration for id.
func (r *Registry) Lookup(id ID) (*Decl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decls[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	return d, nil
}

// LookupOperation returns the signature of one operation of a declared
// effect.
func (r *Registry) LookupOperation(id ID, name string) (OpSig, error) {
	d, err := r.Lookup(id)
	if err != nil {
		return OpSig{}, err
	}
	op, ok := d.Op(name)
	if !ok {
		return OpSig{}, fmt.Errorf("%w: %q.%s", ErrUnknownOperation, id, name)
	}
	return op, nil
}

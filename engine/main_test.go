package engine

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/effrun-dev/effrun/effect"
)

var (
	errTestBody    = errors.New("body failed")
	errTestHandler = errors.New("handler failed")
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

// newTestRegistry declares the effects the engine tests share.
func newTestRegistry(t *testing.T) *effect.Registry {
	t.Helper()
	reg := effect.NewRegistry()
	decls := []struct {
		id  effect.ID
		ops []effect.OpSig
	}{
		{"Config", []effect.OpSig{{Name: "getTimeout", Arity: 0, Resumable: true}}},
		{"Abort", []effect.OpSig{{Name: "fail", Arity: 1, Resumable: false}}},
		{"Ask", []effect.OpSig{{Name: "get", Arity: 0, Resumable: true}}},
		{"Emit", []effect.OpSig{{Name: "put", Arity: 1, Resumable: true}}},
		{"Choice", []effect.OpSig{{Name: "pick", Arity: 0, Resumable: true}}},
		{"Flip", []effect.OpSig{{Name: "coin", Arity: 1, Resumable: true}}},
	}
	for _, d := range decls {
		if err := reg.Declare(d.id, d.ops); err != nil {
			t.Fatalf("declare %s: %v", d.id, err)
		}
	}
	return reg
}

func mustHandler(t *testing.T, reg *effect.Registry, id effect.ID, ops map[string]OpFunc) *Handler {
	t.Helper()
	h, err := NewHandler(reg, id, ops)
	if err != nil {
		t.Fatalf("handler for %s: %v", id, err)
	}
	return h
}

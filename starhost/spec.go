package starhost

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/effrun-dev/effrun/effect"
)

// Spec is a TOML description of an effect program: which Starlark file
// to run, its entry function, and the effects the program may raise.
type Spec struct {
	Program ProgramSpec           `toml:",omitempty"`
	Effects map[string]EffectSpec `toml:",omitempty"`
}

type ProgramSpec struct {
	File       string `toml:",omitempty"`
	Entrypoint string `toml:",omitempty"`
}

type EffectSpec struct {
	Operations []OpSpec `toml:",omitempty"`
}

type OpSpec struct {
	Name      string `toml:",omitempty"`
	Arity     int    `toml:",omitempty"`
	Resumable bool   `toml:",omitempty"`
}

func parseSpec(f io.Reader) (*Spec, error) {
	var out Spec
	_, err := toml.NewDecoder(f).Decode(&out)
	if err != nil {
		return nil, err
	}
	if out.Program.Entrypoint == "" {
		out.Program.Entrypoint = "main"
	}
	return &out, nil
}

// LoadSpecFromFile reads a program spec. When the spec names no program
// file, the spec file's own name with a .star extension is used, resolved
// relative to the spec file's directory.
func LoadSpecFromFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := parseSpec(f)
	if err != nil {
		return nil, err
	}
	if s.Program.File == "" {
		base := filepath.Base(path)
		s.Program.File = strings.TrimSuffix(base, filepath.Ext(base)) + ".star"
	}
	if !filepath.IsAbs(s.Program.File) {
		s.Program.File = filepath.Join(filepath.Dir(path), s.Program.File)
	}
	return s, nil
}

// Declare registers every effect the spec names.
func (s *Spec) Declare(reg *effect.Registry) error {
	for name, e := range s.Effects {
		ops := make([]effect.OpSig, 0, len(e.Operations))
		for _, op := range e.Operations {
			ops = append(ops, effect.OpSig{Name: op.Name, Arity: op.Arity, Resumable: op.Resumable})
		}
		if err := reg.Declare(effect.ID(name), ops); err != nil {
			return err
		}
	}
	return nil
}

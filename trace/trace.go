// Package trace fingerprints effect operations and records journal
// entries. A fingerprint is a farm hash over the msgpack encoding of the
// operation's identity and arguments; the engine uses it to detect a
// replayed body diverging from its journal.
package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// Fingerprint identifies one performed operation (effect, op, arguments).
type Fingerprint uint64

func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// opPayload is the canonical encoding fed to the hash.
type opPayload struct {
	Effect string
	Op     string
	Args   []any
}

// FingerprintOp hashes an operation invocation. Arguments that msgpack
// cannot encode (functions, channels) degrade to a shape-only hash of the
// identity and argument count, so such operations still replay; they just
// get weaker divergence detection.
func FingerprintOp(effect, op string, args []any) Fingerprint {
	b, err := msgpack.Marshal(opPayload{Effect: effect, Op: op, Args: args})
	if err != nil {
		shape := fmt.Sprintf("%s\x00%s\x00%d", effect, op, len(args))
		return Fingerprint(farm.Hash64([]byte(shape)))
	}
	return Fingerprint(farm.Hash64(b))
}

// Entry is one journal record: an operation that was performed and the
// value its handler resumed with.
type Entry struct {
	Fingerprint Fingerprint
	Effect      string
	Op          string
	Value       any
}

func (e *Entry) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, e)
}

func (e *Entry) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, e)
}

// Journal is an ordered sequence of entries observed by one body
// execution, oldest first.
type Journal []Entry

// Append returns j extended with a new entry. The receiver is not
// mutated beyond the usual slice-append aliasing; callers that keep the
// original must Clone first.
func (j Journal) Append(e Entry) Journal {
	return append(j, e)
}

// Clone returns an independent copy. Continuations snapshot journals with
// this so later growth in one execution cannot leak into another.
func (j Journal) Clone() Journal {
	if len(j) == 0 {
		return nil
	}
	out := make(Journal, len(j))
	copy(out, j)
	return out
}

func (j Journal) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, j)
}

func (j *Journal) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, j)
}

// Summary renders a one-line-per-entry description for diagnostics.
func (j Journal) Summary() string {
	var b strings.Builder
	for i, e := range j {
		fmt.Fprintf(&b, "%3d %s %s.%s -> %v\n", i, e.Fingerprint, e.Effect, e.Op, e.Value)
	}
	return b.String()
}

package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := FingerprintOp("Config", "getTimeout", nil)
	b := FingerprintOp("Config", "getTimeout", nil)
	require.Equal(t, a, b)
	require.Len(t, a.String(), 16)
}

func TestFingerprintDistinguishesInvocations(t *testing.T) {
	base := FingerprintOp("Emit", "put", []any{"x"})
	require.NotEqual(t, base, FingerprintOp("Emit", "put", []any{"y"}))
	require.NotEqual(t, base, FingerprintOp("Emit", "drop", []any{"x"}))
	require.NotEqual(t, base, FingerprintOp("Log", "put", []any{"x"}))
	require.NotEqual(t, base, FingerprintOp("Emit", "put", nil))
}

// Unencodable arguments degrade to a shape hash keyed on identity and
// argument count, still stable across calls.
func TestFingerprintUnencodableArgs(t *testing.T) {
	fn := func() {}
	a := FingerprintOp("Cb", "invoke", []any{fn})
	b := FingerprintOp("Cb", "invoke", []any{fn})
	require.Equal(t, a, b)
	require.NotEqual(t, a, FingerprintOp("Cb", "invoke", []any{fn, fn}))
}

func TestEntryRoundtrip(t *testing.T) {
	in := Entry{
		Fingerprint: FingerprintOp("Ask", "get", nil),
		Effect:      "Ask",
		Op:          "get",
		Value:       "forty-two",
	}
	var buf bytes.Buffer
	require.NoError(t, in.Serialize(&buf))

	var out Entry
	require.NoError(t, out.Deserialize(&buf))
	require.Equal(t, in.Fingerprint, out.Fingerprint)
	require.Equal(t, in.Effect, out.Effect)
	require.Equal(t, in.Op, out.Op)
	require.Equal(t, "forty-two", out.Value)
}

func TestJournalRoundtrip(t *testing.T) {
	var j Journal
	j = j.Append(Entry{Fingerprint: 1, Effect: "Ask", Op: "get", Value: "a"})
	j = j.Append(Entry{Fingerprint: 2, Effect: "Emit", Op: "put", Value: "b"})

	var buf bytes.Buffer
	require.NoError(t, j.Serialize(&buf))

	var out Journal
	require.NoError(t, out.Deserialize(&buf))
	require.Len(t, out, 2)
	require.Equal(t, "Emit", out[1].Effect)
}

func TestJournalCloneIsIndependent(t *testing.T) {
	var j Journal
	j = j.Append(Entry{Fingerprint: 1, Effect: "Ask", Op: "get"})

	c := j.Clone()
	c = c.Append(Entry{Fingerprint: 2, Effect: "Emit", Op: "put"})
	j = j.Append(Entry{Fingerprint: 3, Effect: "Flip", Op: "coin"})

	require.Len(t, c, 2)
	require.Equal(t, "Emit", c[1].Effect)
	require.Equal(t, "Flip", j[1].Effect)

	require.Nil(t, Journal(nil).Clone())
}

func TestJournalSummary(t *testing.T) {
	var j Journal
	j = j.Append(Entry{Fingerprint: 7, Effect: "Ask", Op: "get", Value: 1})
	s := j.Summary()
	require.True(t, strings.Contains(s, "Ask.get"))
	require.True(t, strings.Contains(s, "-> 1"))
}

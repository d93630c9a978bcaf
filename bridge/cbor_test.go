package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Neumenon/rebuf/rebuf"
)

func encodeCBOR(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cborEncMode.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCaptureCBOR(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want string
	}{
		{
			name: "scalars",
			doc:  []any{int64(1), int64(-2), 3.5, true, nil, "text"},
			want: `[1 -2 3.5 true () "text"]`,
		},
		{
			name: "map_keys_sorted",
			doc:  map[string]any{"b": int64(2), "a": int64(1)},
			want: `{"a":1 "b":2}`,
		},
		{
			name: "bytes",
			doc:  map[string]any{"data": []byte{1, 2}},
			want: `{"data":b64"AQI="}`,
		},
		{
			name: "nested",
			doc: map[string]any{
				"users": []any{map[string]any{"admin": true, "name": "ada"}},
			},
			want: `{"users":[{"admin":true "name":"ada"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := CaptureCBOR(encodeCBOR(t, tt.doc))
			require.NoError(t, err)
			p := NewPrinter()
			require.NoError(t, buf.ReplayInto(p))
			require.Equal(t, tt.want, p.String())
		})
	}
}

func TestCaptureCBORBadInput(t *testing.T) {
	_, err := CaptureCBOR([]byte{0xff})
	require.Error(t, err)
}

func TestCBORSinkDeterministicRoundtrip(t *testing.T) {
	doc := map[string]any{
		"name":   "ada",
		"scores": []any{int64(1), 2.5},
		"active": true,
		"note":   nil,
	}
	data := encodeCBOR(t, doc)

	buf, err := CaptureCBOR(data)
	require.NoError(t, err)

	sink := &CBORSink{}
	require.NoError(t, buf.ReplayInto(sink))
	out, err := sink.Marshal()
	require.NoError(t, err)

	// Deterministic encoding both ways: the bytes survive the cycle.
	require.Equal(t, data, out)
}

func TestCBORSinkFromGoValue(t *testing.T) {
	type point struct {
		X uint8  `rebuf:"x"`
		Y *uint8 `rebuf:"y"`
	}
	buf, err := rebuf.CaptureValue(point{X: 9})
	require.NoError(t, err)

	sink := &CBORSink{}
	require.NoError(t, buf.ReplayInto(sink))
	out, err := sink.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cborDecMode.Unmarshal(out, &decoded))
	require.Equal(t, uint64(9), decoded["x"])
	require.Contains(t, decoded, "y")
	require.Nil(t, decoded["y"])
}

func TestCBORSinkVariants(t *testing.T) {
	buf := captureSteps(t,
		func(c *rebuf.Capture) error { return c.BeginTupleVariant("Op", 0, "Add", 2) },
		func(c *rebuf.Capture) error { return c.Int64(1) },
		func(c *rebuf.Capture) error { return c.Int64(2) },
		func(c *rebuf.Capture) error { return c.EndTupleVariant() },
	)

	sink := &CBORSink{}
	require.NoError(t, buf.ReplayInto(sink))
	out, err := sink.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cborDecMode.Unmarshal(out, &decoded))
	require.Equal(t, []any{uint64(1), uint64(2)}, decoded["Add"])
}

func TestCBORSinkNewtypeStruct(t *testing.T) {
	buf := captureSteps(t,
		func(c *rebuf.Capture) error { return c.NewtypeStruct("UserId") },
		func(c *rebuf.Capture) error { return c.Uint64(42) },
	)

	sink := &CBORSink{}
	require.NoError(t, buf.ReplayInto(sink))
	out, err := sink.Marshal()
	require.NoError(t, err)

	var decoded any
	require.NoError(t, cborDecMode.Unmarshal(out, &decoded))
	require.Equal(t, uint64(42), decoded)
}

// A document captured from YAML and the same document captured from
// CBOR replay into identical text: the buffer is the only artifact in
// between, and neither format leaks through it.
func TestCrossFormatCapture(t *testing.T) {
	yamlBuf, err := CaptureYAML(parseYAML(t, "a: 1\nb: [true, null]\n"))
	require.NoError(t, err)

	cborBuf, err := CaptureCBOR(encodeCBOR(t, map[string]any{
		"a": int64(1),
		"b": []any{true, nil},
	}))
	require.NoError(t, err)

	py, pc := NewPrinter(), NewPrinter()
	require.NoError(t, yamlBuf.ReplayInto(py))
	require.NoError(t, cborBuf.ReplayInto(pc))
	require.Equal(t, py.String(), pc.String())
	require.Equal(t, `{"a":1 "b":[true ()]}`, py.String())
}

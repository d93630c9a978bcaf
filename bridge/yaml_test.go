package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/rebuf/rebuf"
)

func parseYAML(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	return &node
}

func TestCaptureYAML(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "scalars",
			src:  "[1, -2, 3.5, true, null, text]",
			want: `[1 -2 3.5 true () "text"]`,
		},
		{
			name: "mapping_keeps_order",
			src:  "b: 2\na: 1\n",
			want: `{"b":2 "a":1}`,
		},
		{
			name: "nested",
			src:  "users:\n  - name: ada\n    admin: true\n",
			want: `{"users":[{"name":"ada" "admin":true}]}`,
		},
		{
			name: "binary",
			src:  "data: !!binary AQI=\n",
			want: `{"data":b64"AQI="}`,
		},
		{
			name: "big_unsigned",
			src:  "n: 18446744073709551615\n",
			want: `{"n":18446744073709551615}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := CaptureYAML(parseYAML(t, tt.src))
			require.NoError(t, err)
			p := NewPrinter()
			require.NoError(t, buf.ReplayInto(p))
			require.Equal(t, tt.want, p.String())
		})
	}
}

func TestCaptureYAMLAnchors(t *testing.T) {
	src := "base: &b [1, 2]\ncopy: *b\n"
	buf, err := CaptureYAML(parseYAML(t, src))
	require.NoError(t, err)
	p := NewPrinter()
	require.NoError(t, buf.ReplayInto(p))
	require.Equal(t, `{"base":[1 2] "copy":[1 2]}`, p.String())
}

func TestYAMLSinkRoundtrip(t *testing.T) {
	src := "name: ada\nscores: [1, 2.5]\nactive: true\nnote: null\n"
	buf, err := CaptureYAML(parseYAML(t, src))
	require.NoError(t, err)

	sink := &YAMLSink{}
	require.NoError(t, buf.ReplayInto(sink))
	node, err := sink.Node()
	require.NoError(t, err)

	// Capturing the rebuilt document replays identically.
	again, err := CaptureYAML(node)
	require.NoError(t, err)
	p1, p2 := NewPrinter(), NewPrinter()
	require.NoError(t, buf.ReplayInto(p1))
	require.NoError(t, again.ReplayInto(p2))
	require.Equal(t, p1.String(), p2.String())
}

func TestYAMLSinkFromGoValue(t *testing.T) {
	type point struct {
		X int32  `rebuf:"x"`
		Y *int32 `rebuf:"y"`
	}
	buf, err := rebuf.CaptureValue(point{X: 1})
	require.NoError(t, err)

	sink := &YAMLSink{}
	require.NoError(t, buf.ReplayInto(sink))
	node, err := sink.Node()
	require.NoError(t, err)

	out, err := yaml.Marshal(node)
	require.NoError(t, err)
	require.Equal(t, "x: 1\ny: null\n", string(out))
}

func TestYAMLSinkVariants(t *testing.T) {
	buf := captureSteps(t,
		func(c *rebuf.Capture) error { return c.BeginSeq(2) },
		func(c *rebuf.Capture) error { return c.UnitVariant("State", 0, "Idle") },
		func(c *rebuf.Capture) error { return c.NewtypeVariant("State", 1, "Count") },
		func(c *rebuf.Capture) error { return c.Int64(3) },
		func(c *rebuf.Capture) error { return c.EndSeq() },
	)

	sink := &YAMLSink{}
	require.NoError(t, buf.ReplayInto(sink))
	node, err := sink.Node()
	require.NoError(t, err)

	out, err := yaml.Marshal(node)
	require.NoError(t, err)
	require.Equal(t, "- Idle\n- Count: 3\n", string(out))
}

func TestYAMLSinkNewtypeStruct(t *testing.T) {
	buf := captureSteps(t,
		func(c *rebuf.Capture) error { return c.NewtypeStruct("Meters") },
		func(c *rebuf.Capture) error { return c.Float64(2.5) },
	)

	sink := &YAMLSink{}
	require.NoError(t, buf.ReplayInto(sink))
	node, err := sink.Node()
	require.NoError(t, err)

	out, err := yaml.Marshal(node)
	require.NoError(t, err)
	require.Equal(t, "2.5\n", string(out))
}

func captureSteps(t *testing.T, steps ...func(c *rebuf.Capture) error) *rebuf.Buffer {
	t.Helper()
	c := rebuf.NewCapture()
	for i, step := range steps {
		if err := step(c); err != nil {
			t.Fatalf("capture step %d: %v", i, err)
		}
	}
	buf, err := c.Finish()
	require.NoError(t, err)
	return buf
}

package rebuf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `rebuf:"city"`
	Zip  string `rebuf:"zip"`
}

type person struct {
	Name    string   `rebuf:"name"`
	Age     uint8    `rebuf:"age"`
	Email   *string  `rebuf:"email"`
	Home    address  `rebuf:"home"`
	Tags    []string `rebuf:"tags"`
	Scores  map[string]int64
	Blob    []byte
	private int
}

func TestDecodeRoundtrip(t *testing.T) {
	email := "ada@example.com"
	in := person{
		Name:   "Ada",
		Age:    36,
		Email:  &email,
		Home:   address{City: "London", Zip: "N1"},
		Tags:   []string{"math", "engines"},
		Scores: map[string]int64{"logic": 10, "tact": 7},
		Blob:   []byte{0xde, 0xad},
	}

	buf, err := CaptureValue(in)
	require.NoError(t, err)

	var out person
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Age, out.Age)
	require.NotNil(t, out.Email)
	assert.Equal(t, email, *out.Email)
	assert.Equal(t, in.Home, out.Home)
	assert.Equal(t, in.Tags, out.Tags)
	assert.Equal(t, in.Scores, out.Scores)
	assert.Equal(t, in.Blob, out.Blob)
	assert.Zero(t, out.private)
}

func TestDecodeNilPointer(t *testing.T) {
	buf, err := CaptureValue(person{Name: "no email"})
	require.NoError(t, err)

	var out person
	require.NoError(t, buf.Decode(&out))
	assert.Nil(t, out.Email)
}

func TestDecodeTargetValidation(t *testing.T) {
	buf, err := CaptureValue(int64(1))
	require.NoError(t, err)

	assert.Error(t, buf.Decode(nil))
	assert.Error(t, buf.Decode(42))
	var p *int64
	assert.Error(t, buf.Decode(p))
}

func TestDecodeIntegerWidths(t *testing.T) {
	t.Run("widening", func(t *testing.T) {
		buf, err := CaptureValue(int8(-5))
		require.NoError(t, err)
		var out int64
		require.NoError(t, buf.Decode(&out))
		assert.Equal(t, int64(-5), out)
	})

	t.Run("narrowing_in_range", func(t *testing.T) {
		buf, err := CaptureValue(int64(100))
		require.NoError(t, err)
		var out int8
		require.NoError(t, buf.Decode(&out))
		assert.Equal(t, int8(100), out)
	})

	t.Run("narrowing_overflow", func(t *testing.T) {
		buf, err := CaptureValue(int64(1000))
		require.NoError(t, err)
		var out int8
		assert.Error(t, buf.Decode(&out))
	})

	t.Run("unsigned_to_signed", func(t *testing.T) {
		buf, err := CaptureValue(uint16(300))
		require.NoError(t, err)
		var out int32
		require.NoError(t, buf.Decode(&out))
		assert.Equal(t, int32(300), out)
	})

	t.Run("negative_to_unsigned", func(t *testing.T) {
		buf, err := CaptureValue(int32(-1))
		require.NoError(t, err)
		var out uint32
		assert.Error(t, buf.Decode(&out))
	})

	t.Run("huge_unsigned_to_signed", func(t *testing.T) {
		buf, err := CaptureValue(uint64(math.MaxUint64))
		require.NoError(t, err)
		var out int64
		assert.Error(t, buf.Decode(&out))
	})
}

func TestDecodeArray(t *testing.T) {
	buf, err := CaptureValue([3]int16{1, 2, 3})
	require.NoError(t, err)

	var out [3]int16
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, [3]int16{1, 2, 3}, out)

	var short [2]int16
	assert.Error(t, buf.Decode(&short))
}

func TestDecodeSliceFromTuple(t *testing.T) {
	buf, err := CaptureValue([2]string{"a", "b"})
	require.NoError(t, err)

	var out []string
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestDecodeStructFromMap(t *testing.T) {
	buf, err := CaptureValue(map[string]string{"city": "Paris", "zip": "75"})
	require.NoError(t, err)

	var out address
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, address{City: "Paris", Zip: "75"}, out)
}

func TestDecodeUnknownFieldsSkipped(t *testing.T) {
	type wide struct {
		A int64  `rebuf:"a"`
		B string `rebuf:"b"`
		C []bool `rebuf:"c"`
	}
	type narrow struct {
		B string `rebuf:"b"`
	}

	buf, err := CaptureValue(wide{A: 1, B: "kept", C: []bool{true}})
	require.NoError(t, err)

	var out narrow
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, "kept", out.B)
}

func TestDecodeAny(t *testing.T) {
	buf := mustFinish(t, func(c *Capture) error {
		if err := c.BeginMap(2); err != nil {
			return err
		}
		if err := c.Str("a"); err != nil {
			return err
		}
		if err := c.Int64(1); err != nil {
			return err
		}
		if err := c.Str("b"); err != nil {
			return err
		}
		if err := c.BeginSeq(2); err != nil {
			return err
		}
		if err := c.Bool(true); err != nil {
			return err
		}
		if err := c.None(); err != nil {
			return err
		}
		if err := c.EndSeq(); err != nil {
			return err
		}
		return c.EndMap()
	})

	var out any
	require.NoError(t, buf.Decode(&out))
	assert.Equal(t, map[string]any{
		"a": int64(1),
		"b": []any{true, nil},
	}, out)
}

func TestDecodeNewtypeStructTransparent(t *testing.T) {
	buf := mustFinish(t, func(c *Capture) error {
		if err := c.NewtypeStruct("UserId"); err != nil {
			return err
		}
		return c.Uint64(42)
	})

	var id uint64
	require.NoError(t, buf.Decode(&id))
	assert.Equal(t, uint64(42), id)

	var generic any
	require.NoError(t, buf.Decode(&generic))
	assert.Equal(t, uint64(42), generic)
}

func TestDecodeAnyRejectsVariants(t *testing.T) {
	buf := mustFinish(t, func(c *Capture) error {
		return c.UnitVariant("State", 0, "Idle")
	})

	var out any
	assert.Error(t, buf.Decode(&out))
}

func TestDecodeBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	buf, err := CaptureValue(src)
	require.NoError(t, err)

	var out []byte
	require.NoError(t, buf.Decode(&out))
	require.Equal(t, src, out)
	out[0] = 9
	assert.Equal(t, byte(1), src[0], "decoded bytes must not alias the capture source")
}

func TestDecodeShapeMismatch(t *testing.T) {
	buf, err := CaptureValue("text")
	require.NoError(t, err)

	var out bool
	err = buf.Decode(&out)
	var mismatch *ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, KindBool, mismatch.Expected)
	assert.Equal(t, KindStr, mismatch.Found)
}

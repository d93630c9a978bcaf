package bridge

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/Neumenon/rebuf/rebuf"
)

// cborEncMode encodes with Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Two replays of one buffer always produce
// identical bytes.
var cborEncMode cbor.EncMode

// cborDecMode accepts standard CBOR with string map keys.
var cborDecMode cbor.DecMode

func init() {
	var err error

	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bridge: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		// Any-typed targets decode maps as map[string]any. CBOR allows
		// non-string keys, but the structured-data capture below sorts
		// by string key, so non-string keys are rejected up front.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("bridge: CBOR decoder initialization failed: " + err.Error())
	}
}

// CaptureCBOR records a CBOR document. Map entries are captured in
// sorted key order, so two encodings of the same logical document
// capture identically. Null maps to unit, matching the YAML producer.
func CaptureCBOR(data []byte, opts ...rebuf.CaptureOption) (*rebuf.Buffer, error) {
	var doc any
	if err := cborDecMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("bridge: bad cbor document: %w", err)
	}
	c := rebuf.NewCapture(opts...)
	if err := captureCBORValue(c, doc); err != nil {
		return nil, err
	}
	return c.Finish()
}

func captureCBORValue(c *rebuf.Capture, v any) error {
	switch v := v.(type) {
	case nil:
		return c.Unit()
	case bool:
		return c.Bool(v)
	case int64:
		return c.Int64(v)
	case uint64:
		return c.Uint64(v)
	case float64:
		return c.Float64(v)
	case float32:
		return c.Float32(v)
	case string:
		return c.Str(v)
	case []byte:
		return c.Bytes(v)
	case []any:
		if err := c.BeginSeq(len(v)); err != nil {
			return err
		}
		for _, elem := range v {
			if err := captureCBORValue(c, elem); err != nil {
				return err
			}
		}
		return c.EndSeq()
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := c.BeginMap(len(v)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := c.Str(k); err != nil {
				return err
			}
			if err := captureCBORValue(c, v[k]); err != nil {
				return err
			}
		}
		return c.EndMap()
	case cbor.Tag:
		return captureCBORValue(c, v.Content)
	default:
		return fmt.Errorf("bridge: unsupported cbor value %T", v)
	}
}

// CBORSink rebuilds a deterministic CBOR document from a replay. The
// mapping mirrors YAMLSink: unit and absent optionals become null,
// present optionals and struct names are transparent, enum variants
// use the single-entry-map convention.
//
// Call Marshal after the replay for the encoded bytes.
type CBORSink struct {
	root   any
	filled bool
	stack  []cborFrame
}

type cborFrame struct {
	seq     []any
	entries map[string]any
	key     *string // map frames: pending entry key
	single  bool    // one-value wrapper: pop once filled
	parent  func(any) error
}

// Marshal encodes the replayed document with Core Deterministic
// Encoding.
func (s *CBORSink) Marshal() ([]byte, error) {
	if !s.filled {
		return nil, fmt.Errorf("bridge: no value replayed")
	}
	if len(s.stack) > 0 {
		return nil, fmt.Errorf("bridge: %d containers left open", len(s.stack))
	}
	return cborEncMode.Marshal(s.root)
}

// add places a finished value in the current container, or at the
// root.
func (s *CBORSink) add(v any) error {
	if len(s.stack) == 0 {
		if s.filled {
			return fmt.Errorf("bridge: multiple root values")
		}
		s.root = v
		s.filled = true
		return nil
	}
	top := &s.stack[len(s.stack)-1]
	switch {
	case top.single:
		s.stack = s.stack[:len(s.stack)-1]
		return top.parent(v)
	case top.entries != nil:
		if top.key == nil {
			key, ok := v.(string)
			if !ok {
				return fmt.Errorf("bridge: cbor map key must be a string, got %T", v)
			}
			top.key = &key
			return nil
		}
		top.entries[*top.key] = v
		top.key = nil
		return nil
	default:
		top.seq = append(top.seq, v)
		return nil
	}
}

func (s *CBORSink) pushSeq() {
	s.stack = append(s.stack, cborFrame{seq: []any{}})
}

func (s *CBORSink) pushMap() {
	s.stack = append(s.stack, cborFrame{entries: map[string]any{}})
}

// pushSingle defers one wrapped value to deliver, handing the finished
// value to deliver when it arrives.
func (s *CBORSink) pushSingle(deliver func(any) error) {
	s.stack = append(s.stack, cborFrame{single: true, parent: deliver})
}

func (s *CBORSink) popSeq() error {
	if len(s.stack) == 0 {
		return fmt.Errorf("bridge: end without open container")
	}
	top := s.stack[len(s.stack)-1]
	if top.seq == nil || top.single {
		return fmt.Errorf("bridge: mismatched container end")
	}
	s.stack = s.stack[:len(s.stack)-1]
	return s.add(top.seq)
}

func (s *CBORSink) popMap() error {
	if len(s.stack) == 0 {
		return fmt.Errorf("bridge: end without open container")
	}
	top := s.stack[len(s.stack)-1]
	if top.entries == nil {
		return fmt.Errorf("bridge: mismatched container end")
	}
	if top.key != nil {
		return fmt.Errorf("bridge: map entry missing a value")
	}
	s.stack = s.stack[:len(s.stack)-1]
	return s.add(top.entries)
}

func (s *CBORSink) Unit() error           { return s.add(nil) }
func (s *CBORSink) Bool(v bool) error     { return s.add(v) }
func (s *CBORSink) Int8(v int8) error     { return s.add(int64(v)) }
func (s *CBORSink) Int16(v int16) error   { return s.add(int64(v)) }
func (s *CBORSink) Int32(v int32) error   { return s.add(int64(v)) }
func (s *CBORSink) Int64(v int64) error   { return s.add(v) }
func (s *CBORSink) Uint8(v uint8) error   { return s.add(uint64(v)) }
func (s *CBORSink) Uint16(v uint16) error { return s.add(uint64(v)) }
func (s *CBORSink) Uint32(v uint32) error { return s.add(uint64(v)) }
func (s *CBORSink) Uint64(v uint64) error { return s.add(v) }

func (s *CBORSink) Float32(v float32) error { return s.add(v) }
func (s *CBORSink) Float64(v float64) error { return s.add(v) }

func (s *CBORSink) Char(v rune) error  { return s.add(string(v)) }
func (s *CBORSink) Str(v string) error { return s.add(v) }

func (s *CBORSink) Bytes(v []byte) error {
	return s.add(append([]byte(nil), v...))
}

func (s *CBORSink) None() error { return s.add(nil) }
func (s *CBORSink) Some() error { return nil }

func (s *CBORSink) BeginSeq(n int) error { s.pushSeq(); return nil }
func (s *CBORSink) EndSeq() error        { return s.popSeq() }

func (s *CBORSink) BeginTuple(n int) error { s.pushSeq(); return nil }
func (s *CBORSink) EndTuple() error        { return s.popSeq() }

func (s *CBORSink) BeginMap(n int) error { s.pushMap(); return nil }
func (s *CBORSink) EndMap() error        { return s.popMap() }

func (s *CBORSink) BeginStruct(name string, n int) error { s.pushMap(); return nil }

func (s *CBORSink) Field(name string) error {
	if len(s.stack) == 0 {
		return fmt.Errorf("bridge: field outside a map")
	}
	top := &s.stack[len(s.stack)-1]
	if top.entries == nil || top.key != nil {
		return fmt.Errorf("bridge: field outside a map")
	}
	key := name
	top.key = &key
	return nil
}

func (s *CBORSink) EndStruct() error { return s.popMap() }

func (s *CBORSink) BeginTupleStruct(name string, n int) error { s.pushSeq(); return nil }
func (s *CBORSink) EndTupleStruct() error                     { return s.popSeq() }

func (s *CBORSink) UnitStruct(name string) error { return s.add(nil) }

// NewtypeStruct is transparent, mirroring YAMLSink.
func (s *CBORSink) NewtypeStruct(name string) error { return nil }

func (s *CBORSink) UnitVariant(enum string, index uint32, variant string) error {
	return s.add(variant)
}

func (s *CBORSink) NewtypeVariant(enum string, index uint32, variant string) error {
	s.pushSingle(func(v any) error {
		return s.add(map[string]any{variant: v})
	})
	return nil
}

func (s *CBORSink) BeginTupleVariant(enum string, index uint32, variant string, n int) error {
	s.pushSingle(func(v any) error {
		return s.add(map[string]any{variant: v})
	})
	s.pushSeq()
	return nil
}

func (s *CBORSink) EndTupleVariant() error { return s.popSeq() }

func (s *CBORSink) BeginStructVariant(enum string, index uint32, variant string, n int) error {
	s.pushSingle(func(v any) error {
		return s.add(map[string]any{variant: v})
	})
	s.pushMap()
	return nil
}

func (s *CBORSink) EndStructVariant() error { return s.popMap() }

var _ rebuf.Sink = (*CBORSink)(nil)

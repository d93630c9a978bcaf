package rebuf

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxDepth is the nesting limit applied when no WithMaxDepth
// option is given. It guards against stack overflow from pathological
// or cyclic-looking input.
const DefaultMaxDepth = 128

// CaptureOption configures a Capture.
type CaptureOption func(*captureConfig)

type captureConfig struct {
	maxDepth int
}

// WithMaxDepth sets the maximum container nesting depth. Capturing a
// value nested exactly n deep succeeds; one level beyond fails with
// ErrDepthExceeded.
func WithMaxDepth(n int) CaptureOption {
	return func(cfg *captureConfig) {
		cfg.maxDepth = n
	}
}

// Capture records the structural/scalar calls a producer makes into a
// Buffer. It implements Sink; a producer decomposes its value against
// the Sink protocol and then calls Finish to obtain the buffer.
//
// A Capture is single-use and not safe for concurrent use. The first
// error sticks: every later call returns it, and Finish fails.
type Capture struct {
	buf   Buffer
	cfg   captureConfig
	stack []capFrame
	root  int
	err   error
	done  bool
}

// capFrame tracks one open container or value prefix during capture.
type capFrame struct {
	kind      Kind
	open      int  // opener token index; -1 for prefix frames
	declared  int  // pre-declared count; -1 means backfill at end
	seen      int  // elements, half-entries (map), or fields (struct)
	wantField bool // struct frames: a Field call must come next
	filled    bool // prefix frames: the single wrapped value was seen
}

// NewCapture returns an empty Capture ready to record one value.
func NewCapture(opts ...CaptureOption) *Capture {
	cfg := captureConfig{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Capture{cfg: cfg}
}

// Finish verifies that exactly one complete value was recorded and
// returns the immutable Buffer. The Capture must not be used again.
func (c *Capture) Finish() (*Buffer, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.done {
		return nil, c.fail(errors.New("rebuf: capture already finished"))
	}
	if len(c.stack) > 0 {
		return nil, c.fail(fmt.Errorf("rebuf: finish with %d open containers", len(c.stack)))
	}
	if c.root == 0 {
		return nil, c.fail(errors.New("rebuf: capture holds no value"))
	}
	c.done = true
	return &c.buf, nil
}

// fail records err as the capture's sticky error.
func (c *Capture) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return err
}

func (c *Capture) pre() error {
	if c.err != nil {
		return c.err
	}
	if c.done {
		return c.fail(errors.New("rebuf: capture already finished"))
	}
	return nil
}

// beginGroup validates that a new value group may start at the current
// position and counts it toward the enclosing container.
func (c *Capture) beginGroup() error {
	if len(c.stack) == 0 {
		if c.root > 0 {
			return c.fail(errors.New("rebuf: multiple top-level values"))
		}
		c.root++
		return nil
	}
	top := &c.stack[len(c.stack)-1]
	switch top.kind {
	case KindSome, KindNewtypeStruct, KindNewtypeVariant:
		if top.filled {
			return c.fail(fmt.Errorf("rebuf: %s already holds a value", top.kind))
		}
		top.filled = true
	case KindStruct, KindStructVariant:
		if top.wantField {
			return c.fail(errors.New("rebuf: struct value without a field name"))
		}
		top.wantField = true
	case KindMap:
		if top.declared >= 0 && top.seen >= 2*top.declared {
			return c.fail(fmt.Errorf("rebuf: map entry exceeds declared count %d", top.declared))
		}
		top.seen++
	default: // seq, tuple, tuple struct, tuple variant
		if top.declared >= 0 && top.seen >= top.declared {
			return c.fail(fmt.Errorf("rebuf: %s element exceeds declared count %d", top.kind, top.declared))
		}
		top.seen++
	}
	return nil
}

// endGroup pops satisfied value prefixes (Some, NewtypeStruct,
// NewtypeVariant) after a complete value group has been recorded.
func (c *Capture) endGroup() {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if (top.kind == KindSome || top.kind == KindNewtypeStruct || top.kind == KindNewtypeVariant) && top.filled {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		break
	}
}

// scalar records one complete single-token value.
func (c *Capture) scalar(tok token) error {
	if err := c.pre(); err != nil {
		return err
	}
	if err := c.beginGroup(); err != nil {
		return err
	}
	c.buf.tokens = append(c.buf.tokens, tok)
	c.endGroup()
	return nil
}

// prefix records a one-value prefix token (Some, NewtypeStruct,
// NewtypeVariant) and opens its frame.
func (c *Capture) prefix(tok token) error {
	if err := c.pre(); err != nil {
		return err
	}
	if err := c.beginGroup(); err != nil {
		return err
	}
	c.buf.tokens = append(c.buf.tokens, tok)
	c.stack = append(c.stack, capFrame{kind: tok.kind, open: -1})
	if len(c.stack) > c.cfg.maxDepth {
		return c.fail(ErrDepthExceeded)
	}
	return nil
}

// begin records a container opener and pushes its frame. A negative
// declared count marks the opener for backfill at the matching end.
func (c *Capture) begin(tok token, declared int) error {
	if err := c.pre(); err != nil {
		return err
	}
	if err := c.beginGroup(); err != nil {
		return err
	}
	if declared < 0 {
		tok.n = unknownCount
	} else {
		// unknownCount is reserved as the backfill placeholder, so the
		// largest representable declared count is one below it.
		if uint64(declared) >= uint64(unknownCount) {
			return c.fail(fmt.Errorf("rebuf: declared count %d exceeds limit %d", declared, uint64(unknownCount)-1))
		}
		tok.n = uint32(declared)
	}
	open := len(c.buf.tokens)
	c.buf.tokens = append(c.buf.tokens, tok)
	c.stack = append(c.stack, capFrame{
		kind:      tok.kind,
		open:      open,
		declared:  declared,
		wantField: tok.kind == KindStruct || tok.kind == KindStructVariant,
	})
	if len(c.stack) > c.cfg.maxDepth {
		return c.fail(ErrDepthExceeded)
	}
	return nil
}

// end closes the innermost container, checking it matches kind and
// that the declared count (if any) was satisfied, or backfilling the
// opener's count otherwise.
func (c *Capture) end(kind Kind) error {
	if err := c.pre(); err != nil {
		return err
	}
	if len(c.stack) == 0 {
		return c.fail(ErrEndMismatch)
	}
	top := c.stack[len(c.stack)-1]
	if top.kind != kind {
		return c.fail(ErrEndMismatch)
	}
	if (kind == KindStruct || kind == KindStructVariant) && !top.wantField {
		return c.fail(errors.New("rebuf: field name without a value"))
	}
	entries := top.seen
	if kind == KindMap {
		if entries%2 != 0 {
			return c.fail(errors.New("rebuf: map entry missing a value"))
		}
		entries /= 2
	}
	if top.declared < 0 {
		c.buf.tokens[top.open].n = uint32(entries)
	} else if entries != top.declared {
		return c.fail(fmt.Errorf("rebuf: %s closed with %d of %d declared entries", kind, entries, top.declared))
	}
	c.stack = c.stack[:len(c.stack)-1]
	c.endGroup()
	return nil
}

// ============================================================
// Sink implementation: scalars
// ============================================================

func (c *Capture) Unit() error {
	return c.scalar(token{kind: KindUnit})
}

func (c *Capture) Bool(v bool) error {
	var num uint64
	if v {
		num = 1
	}
	return c.scalar(token{kind: KindBool, num: num})
}

func (c *Capture) Int8(v int8) error {
	return c.scalar(token{kind: KindInt8, num: uint64(int64(v))})
}

func (c *Capture) Int16(v int16) error {
	return c.scalar(token{kind: KindInt16, num: uint64(int64(v))})
}

func (c *Capture) Int32(v int32) error {
	return c.scalar(token{kind: KindInt32, num: uint64(int64(v))})
}

func (c *Capture) Int64(v int64) error {
	return c.scalar(token{kind: KindInt64, num: uint64(v)})
}

func (c *Capture) Uint8(v uint8) error {
	return c.scalar(token{kind: KindUint8, num: uint64(v)})
}

func (c *Capture) Uint16(v uint16) error {
	return c.scalar(token{kind: KindUint16, num: uint64(v)})
}

func (c *Capture) Uint32(v uint32) error {
	return c.scalar(token{kind: KindUint32, num: uint64(v)})
}

func (c *Capture) Uint64(v uint64) error {
	return c.scalar(token{kind: KindUint64, num: v})
}

func (c *Capture) Float32(v float32) error {
	return c.scalar(token{kind: KindFloat32, num: uint64(math.Float32bits(v))})
}

func (c *Capture) Float64(v float64) error {
	return c.scalar(token{kind: KindFloat64, num: math.Float64bits(v)})
}

func (c *Capture) Char(v rune) error {
	return c.scalar(token{kind: KindChar, num: uint64(uint32(v))})
}

// Str records a string by reference; the buffer borrows the string's
// backing memory for its lifetime.
func (c *Capture) Str(v string) error {
	return c.scalar(token{kind: KindStr, ref: c.buf.payload.addString(v)})
}

// OwnedStr records a private copy of v. Use when v was synthesized
// over transient memory during capture.
func (c *Capture) OwnedStr(v string) error {
	return c.scalar(token{kind: KindStr, ref: c.buf.payload.addStringCopy(v)})
}

// Bytes records a byte slice by reference. The caller must not mutate
// v while the buffer is live; use OwnedBytes when that cannot be
// guaranteed.
func (c *Capture) Bytes(v []byte) error {
	return c.scalar(token{kind: KindBytes, ref: c.buf.payload.addBytes(v)})
}

// OwnedBytes records a private copy of v in buffer-owned storage.
func (c *Capture) OwnedBytes(v []byte) error {
	return c.scalar(token{kind: KindBytes, ref: c.buf.payload.addBytesCopy(v)})
}

// ============================================================
// Sink implementation: optionals and containers
// ============================================================

func (c *Capture) None() error {
	return c.scalar(token{kind: KindNone})
}

func (c *Capture) Some() error {
	return c.prefix(token{kind: KindSome})
}

func (c *Capture) BeginSeq(n int) error {
	return c.begin(token{kind: KindSeq}, n)
}

func (c *Capture) EndSeq() error {
	return c.end(KindSeq)
}

func (c *Capture) BeginTuple(n int) error {
	return c.begin(token{kind: KindTuple}, n)
}

func (c *Capture) EndTuple() error {
	return c.end(KindTuple)
}

func (c *Capture) BeginMap(n int) error {
	return c.begin(token{kind: KindMap}, n)
}

func (c *Capture) EndMap() error {
	return c.end(KindMap)
}

func (c *Capture) BeginStruct(name string, n int) error {
	return c.begin(token{kind: KindStruct, ref: c.buf.payload.addString(name)}, n)
}

// Field records a field name inside an open struct or struct variant.
func (c *Capture) Field(name string) error {
	if err := c.pre(); err != nil {
		return err
	}
	if len(c.stack) == 0 {
		return c.fail(errors.New("rebuf: field name outside a struct"))
	}
	top := &c.stack[len(c.stack)-1]
	if top.kind != KindStruct && top.kind != KindStructVariant {
		return c.fail(errors.New("rebuf: field name outside a struct"))
	}
	if !top.wantField {
		return c.fail(errors.New("rebuf: field name where a value was expected"))
	}
	if top.declared >= 0 && top.seen >= top.declared {
		return c.fail(fmt.Errorf("rebuf: field exceeds declared count %d", top.declared))
	}
	top.seen++
	top.wantField = false
	c.buf.tokens = append(c.buf.tokens, token{kind: KindField, ref: c.buf.payload.addString(name)})
	return nil
}

func (c *Capture) EndStruct() error {
	return c.end(KindStruct)
}

func (c *Capture) BeginTupleStruct(name string, n int) error {
	return c.begin(token{kind: KindTupleStruct, ref: c.buf.payload.addString(name)}, n)
}

func (c *Capture) EndTupleStruct() error {
	return c.end(KindTupleStruct)
}

func (c *Capture) UnitStruct(name string) error {
	return c.scalar(token{kind: KindUnitStruct, ref: c.buf.payload.addString(name)})
}

func (c *Capture) NewtypeStruct(name string) error {
	return c.prefix(token{kind: KindNewtypeStruct, ref: c.buf.payload.addString(name)})
}

// ============================================================
// Sink implementation: enum variants
// ============================================================

func (c *Capture) UnitVariant(enum string, index uint32, variant string) error {
	return c.scalar(token{
		kind: KindUnitVariant,
		ref:  c.buf.payload.addString(enum),
		aux:  c.buf.payload.addString(variant),
		idx:  index,
	})
}

func (c *Capture) NewtypeVariant(enum string, index uint32, variant string) error {
	return c.prefix(token{
		kind: KindNewtypeVariant,
		ref:  c.buf.payload.addString(enum),
		aux:  c.buf.payload.addString(variant),
		idx:  index,
	})
}

func (c *Capture) BeginTupleVariant(enum string, index uint32, variant string, n int) error {
	return c.begin(token{
		kind: KindTupleVariant,
		ref:  c.buf.payload.addString(enum),
		aux:  c.buf.payload.addString(variant),
		idx:  index,
	}, n)
}

func (c *Capture) EndTupleVariant() error {
	return c.end(KindTupleVariant)
}

func (c *Capture) BeginStructVariant(enum string, index uint32, variant string, n int) error {
	return c.begin(token{
		kind: KindStructVariant,
		ref:  c.buf.payload.addString(enum),
		aux:  c.buf.payload.addString(variant),
		idx:  index,
	}, n)
}

func (c *Capture) EndStructVariant() error {
	return c.end(KindStructVariant)
}

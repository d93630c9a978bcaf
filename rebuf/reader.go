package rebuf

import (
	"fmt"
	"math"
)

// Reader replays a buffer in hinted mode: the consumer declares the
// shape it expects next, and the reader checks that expectation
// against the recorded token. A mismatch fails with
// ShapeMismatchError; the reader never coerces, and numeric values
// come back with their captured width and signedness.
//
// A Reader is single-use and not safe for concurrent use; take a fresh
// Reader per traversal. The first error sticks.
type Reader struct {
	buf   *Buffer
	cur   cursor
	stack []readFrame
	err   error
}

// readFrame mirrors one open container (or value prefix) during a
// hinted traversal.
type readFrame struct {
	kind      Kind
	remaining int  // child groups left: elements, half-entries, or fields
	wantField bool // struct frames: NextField must be called next
}

func (r *Reader) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return err
}

// lead validates that a value may be read at the current position and
// counts it toward the enclosing container.
func (r *Reader) lead() error {
	if r.err != nil {
		return r.err
	}
	if len(r.stack) == 0 {
		return nil
	}
	top := &r.stack[len(r.stack)-1]
	switch top.kind {
	case KindStruct, KindStructVariant:
		if top.wantField {
			return r.fail(fmt.Errorf("rebuf: field name must be read before its value"))
		}
		top.wantField = true
	default:
		if top.remaining == 0 {
			return r.fail(fmt.Errorf("rebuf: no values left in %s", top.kind))
		}
		top.remaining--
	}
	return nil
}

// settle pops exhausted value prefixes after a complete value group.
func (r *Reader) settle() {
	for len(r.stack) > 0 {
		top := &r.stack[len(r.stack)-1]
		if (top.kind == KindSome || top.kind == KindNewtypeStruct || top.kind == KindNewtypeVariant) && top.remaining == 0 {
			r.stack = r.stack[:len(r.stack)-1]
			continue
		}
		break
	}
}

// take consumes the next token, requiring its kind to match expected.
func (r *Reader) take(expected Kind) (token, error) {
	if err := r.lead(); err != nil {
		return token{}, err
	}
	tok, err := r.cur.next()
	if err != nil {
		return token{}, r.fail(err)
	}
	if tok.kind != expected {
		return token{}, r.fail(shapeMismatch(expected, tok.kind))
	}
	return tok, nil
}

// takeClass consumes the next token, requiring match to accept its
// kind. widest names the expectation in the mismatch error.
func (r *Reader) takeClass(widest Kind, match func(Kind) bool) (token, error) {
	if err := r.lead(); err != nil {
		return token{}, err
	}
	tok, err := r.cur.next()
	if err != nil {
		return token{}, r.fail(err)
	}
	if !match(tok.kind) {
		return token{}, r.fail(shapeMismatch(widest, tok.kind))
	}
	return tok, nil
}

// ============================================================
// Scalars
// ============================================================

func (r *Reader) Unit() error {
	_, err := r.take(KindUnit)
	if err != nil {
		return err
	}
	r.settle()
	return nil
}

func (r *Reader) Bool() (bool, error) {
	tok, err := r.take(KindBool)
	if err != nil {
		return false, err
	}
	r.settle()
	return tok.num != 0, nil
}

func (r *Reader) Int8() (int8, error) {
	tok, err := r.take(KindInt8)
	if err != nil {
		return 0, err
	}
	r.settle()
	return int8(int64(tok.num)), nil
}

func (r *Reader) Int16() (int16, error) {
	tok, err := r.take(KindInt16)
	if err != nil {
		return 0, err
	}
	r.settle()
	return int16(int64(tok.num)), nil
}

func (r *Reader) Int32() (int32, error) {
	tok, err := r.take(KindInt32)
	if err != nil {
		return 0, err
	}
	r.settle()
	return int32(int64(tok.num)), nil
}

func (r *Reader) Int64() (int64, error) {
	tok, err := r.take(KindInt64)
	if err != nil {
		return 0, err
	}
	r.settle()
	return int64(tok.num), nil
}

func (r *Reader) Uint8() (uint8, error) {
	tok, err := r.take(KindUint8)
	if err != nil {
		return 0, err
	}
	r.settle()
	return uint8(tok.num), nil
}

func (r *Reader) Uint16() (uint16, error) {
	tok, err := r.take(KindUint16)
	if err != nil {
		return 0, err
	}
	r.settle()
	return uint16(tok.num), nil
}

func (r *Reader) Uint32() (uint32, error) {
	tok, err := r.take(KindUint32)
	if err != nil {
		return 0, err
	}
	r.settle()
	return uint32(tok.num), nil
}

func (r *Reader) Uint64() (uint64, error) {
	tok, err := r.take(KindUint64)
	if err != nil {
		return 0, err
	}
	r.settle()
	return tok.num, nil
}

// Int accepts any signed integer token. The value is sign-extended to
// int64 and the captured width is reported alongside, so a consumer
// wanting a narrower type can apply its own range check.
func (r *Reader) Int() (int64, Kind, error) {
	tok, err := r.takeClass(KindInt64, Kind.isSigned)
	if err != nil {
		return 0, KindInvalid, err
	}
	r.settle()
	return int64(tok.num), tok.kind, nil
}

// Uint accepts any unsigned integer token, reporting the captured
// width alongside the value.
func (r *Reader) Uint() (uint64, Kind, error) {
	tok, err := r.takeClass(KindUint64, Kind.isUnsigned)
	if err != nil {
		return 0, KindInvalid, err
	}
	r.settle()
	return tok.num, tok.kind, nil
}

// Float accepts either float width. A float32 token converts to
// float64 exactly; the captured width is reported alongside.
func (r *Reader) Float() (float64, Kind, error) {
	tok, err := r.takeClass(KindFloat64, Kind.isFloat)
	if err != nil {
		return 0, KindInvalid, err
	}
	r.settle()
	if tok.kind == KindFloat32 {
		return float64(math.Float32frombits(uint32(tok.num))), tok.kind, nil
	}
	return math.Float64frombits(tok.num), tok.kind, nil
}

func (r *Reader) Float32() (float32, error) {
	tok, err := r.take(KindFloat32)
	if err != nil {
		return 0, err
	}
	r.settle()
	return math.Float32frombits(uint32(tok.num)), nil
}

func (r *Reader) Float64() (float64, error) {
	tok, err := r.take(KindFloat64)
	if err != nil {
		return 0, err
	}
	r.settle()
	return math.Float64frombits(tok.num), nil
}

func (r *Reader) Char() (rune, error) {
	tok, err := r.take(KindChar)
	if err != nil {
		return 0, err
	}
	r.settle()
	return rune(uint32(tok.num)), nil
}

// Str returns the recorded string. No copy is made: a borrowed entry
// comes back as the original string header.
func (r *Reader) Str() (string, error) {
	tok, err := r.take(KindStr)
	if err != nil {
		return "", err
	}
	r.settle()
	return r.buf.payload.str(tok.ref), nil
}

// Bytes returns the recorded byte content. A borrowed entry aliases
// the capture source; the caller must not mutate the slice.
func (r *Reader) Bytes() ([]byte, error) {
	tok, err := r.take(KindBytes)
	if err != nil {
		return nil, err
	}
	r.settle()
	return r.buf.payload.bytes(tok.ref), nil
}

// ============================================================
// Optionals and containers
// ============================================================

// Option consumes the next optional marker. It reports true when a
// wrapped value is present; the value must then be read next.
func (r *Reader) Option() (bool, error) {
	tok, err := r.takeClass(KindOption, func(k Kind) bool {
		return k == KindNone || k == KindSome
	})
	if err != nil {
		return false, err
	}
	if tok.kind == KindNone {
		r.settle()
		return false, nil
	}
	r.stack = append(r.stack, readFrame{kind: KindSome, remaining: 1})
	return true, nil
}

// BeginSeq enters a sequence, returning its element count.
func (r *Reader) BeginSeq() (int, error) {
	tok, err := r.take(KindSeq)
	if err != nil {
		return 0, err
	}
	r.stack = append(r.stack, readFrame{kind: KindSeq, remaining: int(tok.n)})
	return int(tok.n), nil
}

func (r *Reader) EndSeq() error {
	return r.endContainer(KindSeq)
}

// BeginTuple enters a tuple, returning its arity.
func (r *Reader) BeginTuple() (int, error) {
	tok, err := r.take(KindTuple)
	if err != nil {
		return 0, err
	}
	r.stack = append(r.stack, readFrame{kind: KindTuple, remaining: int(tok.n)})
	return int(tok.n), nil
}

func (r *Reader) EndTuple() error {
	return r.endContainer(KindTuple)
}

// BeginMap enters a map, returning its entry count. Entries are read
// as alternating key and value.
func (r *Reader) BeginMap() (int, error) {
	tok, err := r.take(KindMap)
	if err != nil {
		return 0, err
	}
	r.stack = append(r.stack, readFrame{kind: KindMap, remaining: 2 * int(tok.n)})
	return int(tok.n), nil
}

func (r *Reader) EndMap() error {
	return r.endContainer(KindMap)
}

// BeginStruct enters a struct, returning its recorded name and field
// count. Fields are read as NextField followed by the field's value.
func (r *Reader) BeginStruct() (string, int, error) {
	tok, err := r.take(KindStruct)
	if err != nil {
		return "", 0, err
	}
	r.stack = append(r.stack, readFrame{kind: KindStruct, remaining: int(tok.n), wantField: true})
	return r.buf.payload.str(tok.ref), int(tok.n), nil
}

// NextField returns the next field name of the open struct or struct
// variant.
func (r *Reader) NextField() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if len(r.stack) == 0 {
		return "", r.fail(fmt.Errorf("rebuf: field read outside a struct"))
	}
	top := &r.stack[len(r.stack)-1]
	if top.kind != KindStruct && top.kind != KindStructVariant {
		return "", r.fail(fmt.Errorf("rebuf: field read outside a struct"))
	}
	if !top.wantField {
		return "", r.fail(fmt.Errorf("rebuf: field value must be read before the next name"))
	}
	if top.remaining == 0 {
		return "", r.fail(fmt.Errorf("rebuf: no fields left"))
	}
	tok, err := r.cur.next()
	if err != nil {
		return "", r.fail(err)
	}
	if tok.kind != KindField {
		return "", r.fail(fmt.Errorf("rebuf: expected field token, found %s", tok.kind))
	}
	top.remaining--
	top.wantField = false
	return r.buf.payload.str(tok.ref), nil
}

func (r *Reader) EndStruct() error {
	return r.endContainer(KindStruct)
}

// BeginTupleStruct enters a tuple struct, returning its recorded name
// and arity.
func (r *Reader) BeginTupleStruct() (string, int, error) {
	tok, err := r.take(KindTupleStruct)
	if err != nil {
		return "", 0, err
	}
	r.stack = append(r.stack, readFrame{kind: KindTupleStruct, remaining: int(tok.n)})
	return r.buf.payload.str(tok.ref), int(tok.n), nil
}

func (r *Reader) EndTupleStruct() error {
	return r.endContainer(KindTupleStruct)
}

// UnitStruct consumes a unit struct token, returning its name.
func (r *Reader) UnitStruct() (string, error) {
	tok, err := r.take(KindUnitStruct)
	if err != nil {
		return "", err
	}
	r.settle()
	return r.buf.payload.str(tok.ref), nil
}

// NewtypeStruct consumes a newtype struct prefix, returning its name.
// The wrapped value must be read next.
func (r *Reader) NewtypeStruct() (string, error) {
	tok, err := r.take(KindNewtypeStruct)
	if err != nil {
		return "", err
	}
	r.stack = append(r.stack, readFrame{kind: KindNewtypeStruct, remaining: 1})
	return r.buf.payload.str(tok.ref), nil
}

// endContainer closes the innermost open container, skipping any
// values the consumer did not read.
func (r *Reader) endContainer(kind Kind) error {
	if r.err != nil {
		return r.err
	}
	if len(r.stack) == 0 {
		return r.fail(ErrEndMismatch)
	}
	top := r.stack[len(r.stack)-1]
	if top.kind != kind {
		return r.fail(ErrEndMismatch)
	}
	if err := r.skipRemainder(top); err != nil {
		return r.fail(err)
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.settle()
	return nil
}

// skipRemainder advances the cursor past a frame's unread values.
func (r *Reader) skipRemainder(top readFrame) error {
	switch top.kind {
	case KindStruct, KindStructVariant:
		if !top.wantField {
			// Field name was read, its value was not.
			if err := r.cur.skipGroup(); err != nil {
				return err
			}
		}
		for i := 0; i < top.remaining; i++ {
			tok, err := r.cur.next()
			if err != nil {
				return err
			}
			if tok.kind != KindField {
				return fmt.Errorf("rebuf: expected field token, found %s", tok.kind)
			}
			if err := r.cur.skipGroup(); err != nil {
				return err
			}
		}
	default:
		for i := 0; i < top.remaining; i++ {
			if err := r.cur.skipGroup(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================
// Enum variants
// ============================================================

// VariantShape classifies the payload form of a matched enum variant.
type VariantShape uint8

const (
	VariantUnit    VariantShape = iota // no payload
	VariantNewtype                     // one value follows
	VariantTuple                       // Len values follow, then EndVariant
	VariantStruct                      // Len fields follow, then EndVariant
)

// Variant describes a matched enum variant.
type Variant struct {
	Index int          // index into the consumer's variant set
	Name  string       // recorded variant name
	Shape VariantShape // payload form
	Len   int          // arity of tuple and struct variants
}

// ReadVariant matches the next enum token against the consumer's known
// variant set: by recorded index first, by recorded name second. A
// variant matching neither fails with UnknownVariantError.
func (r *Reader) ReadVariant(variants []string) (Variant, error) {
	tok, err := r.takeClass(KindVariant, Kind.isVariant)
	if err != nil {
		return Variant{}, err
	}
	name := r.buf.payload.str(tok.aux)
	index := -1
	if int(tok.idx) < len(variants) {
		index = int(tok.idx)
	} else {
		for i, v := range variants {
			if v == name {
				index = i
				break
			}
		}
	}
	if index < 0 {
		return Variant{}, r.fail(&UnknownVariantError{
			Enum:    r.buf.payload.str(tok.ref),
			Index:   tok.idx,
			Variant: name,
		})
	}
	v := Variant{Index: index, Name: name}
	switch tok.kind {
	case KindUnitVariant:
		v.Shape = VariantUnit
		r.settle()
	case KindNewtypeVariant:
		v.Shape = VariantNewtype
		r.stack = append(r.stack, readFrame{kind: KindNewtypeVariant, remaining: 1})
	case KindTupleVariant:
		v.Shape = VariantTuple
		v.Len = int(tok.n)
		r.stack = append(r.stack, readFrame{kind: KindTupleVariant, remaining: int(tok.n)})
	case KindStructVariant:
		v.Shape = VariantStruct
		v.Len = int(tok.n)
		r.stack = append(r.stack, readFrame{kind: KindStructVariant, remaining: int(tok.n), wantField: true})
	}
	return v, nil
}

// EndVariant closes an open tuple or struct variant, skipping unread
// values.
func (r *Reader) EndVariant() error {
	if r.err != nil {
		return r.err
	}
	if len(r.stack) == 0 {
		return r.fail(ErrEndMismatch)
	}
	top := r.stack[len(r.stack)-1]
	if top.kind != KindTupleVariant && top.kind != KindStructVariant {
		return r.fail(ErrEndMismatch)
	}
	if err := r.skipRemainder(top); err != nil {
		return r.fail(err)
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.settle()
	return nil
}

// ============================================================
// Escapes
// ============================================================

// Any hands the next value off in self-describing mode, replaying it
// into s. Lets a hinted consumer punt on a subtree it does not want to
// interpret.
func (r *Reader) Any(s Sink) error {
	if err := r.lead(); err != nil {
		return err
	}
	if err := replayValue(&r.cur, &r.buf.payload, s); err != nil {
		return r.fail(err)
	}
	r.settle()
	return nil
}

// Skip discards the next value, whatever its shape.
func (r *Reader) Skip() error {
	if err := r.lead(); err != nil {
		return err
	}
	if err := r.cur.skipGroup(); err != nil {
		return r.fail(err)
	}
	r.settle()
	return nil
}

package rebuf

import "fmt"

// Kind identifies one structural or scalar event in a buffer's token
// sequence. The set is closed: every value expressible in the
// structured-data model decomposes into these events.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Scalars
	KindUnit
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindChar

	// Payload-carrying scalars
	KindStr
	KindBytes

	// Optional
	KindNone
	KindSome // followed by the wrapped value's token group

	// Container openers; the declared count determines extent,
	// there are no explicit end tokens
	KindSeq
	KindTuple
	KindMap
	KindStruct
	KindField // field name inside a struct or struct variant
	KindTupleStruct
	KindUnitStruct
	KindNewtypeStruct // followed by the wrapped value's token group

	// Enum variants
	KindUnitVariant
	KindNewtypeVariant
	KindTupleVariant
	KindStructVariant
)

// Expectation-only kinds. These never appear in a token sequence; they
// name aggregate expectations in ShapeMismatchError (an optional is
// either None or Some, a variant is any of the four variant kinds).
const (
	KindOption  Kind = 0xFE
	KindVariant Kind = 0xFF
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindChar:
		return "char"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindNone:
		return "none"
	case KindSome:
		return "some"
	case KindSeq:
		return "seq"
	case KindTuple:
		return "tuple"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	case KindField:
		return "field"
	case KindTupleStruct:
		return "tuple struct"
	case KindUnitStruct:
		return "unit struct"
	case KindNewtypeStruct:
		return "newtype struct"
	case KindUnitVariant:
		return "unit variant"
	case KindNewtypeVariant:
		return "newtype variant"
	case KindTupleVariant:
		return "tuple variant"
	case KindStructVariant:
		return "struct variant"
	case KindOption:
		return "option"
	case KindVariant:
		return "variant"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// token is one fixed-size record in a buffer's token sequence. Names
// and text/byte content live in the payload store; a token carries only
// references, scalar bits, and counts.
type token struct {
	kind Kind
	num  uint64     // scalar bits: bool, integers, float bits, char rune
	ref  payloadRef // str/bytes content, or struct/enum/field name
	aux  payloadRef // variant name for enum tokens
	n    uint32     // declared element/entry/field count
	idx  uint32     // enum variant index
}

// unknownCount is the opener placeholder backfilled at the matching
// end call when the producer did not pre-declare a count.
const unknownCount = ^uint32(0)

// isSigned reports whether k is a signed integer kind.
func (k Kind) isSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// isUnsigned reports whether k is an unsigned integer kind.
func (k Kind) isUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// isFloat reports whether k is a floating point kind.
func (k Kind) isFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// isVariant reports whether k is an enum variant kind.
func (k Kind) isVariant() bool {
	return k >= KindUnitVariant && k <= KindStructVariant
}

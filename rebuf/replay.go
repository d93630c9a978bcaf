package rebuf

import (
	"fmt"
	"math"
)

// replayValue reads one complete value group from cur and issues the
// structurally equivalent Sink calls, recursing through nested
// containers. Numeric values keep their captured width and signedness;
// no coercion happens here. Errors from s are returned unchanged.
func replayValue(cur *cursor, p *payloadStore, s Sink) error {
	tok, err := cur.next()
	if err != nil {
		return err
	}
	switch tok.kind {
	case KindUnit:
		return s.Unit()
	case KindBool:
		return s.Bool(tok.num != 0)
	case KindInt8:
		return s.Int8(int8(int64(tok.num)))
	case KindInt16:
		return s.Int16(int16(int64(tok.num)))
	case KindInt32:
		return s.Int32(int32(int64(tok.num)))
	case KindInt64:
		return s.Int64(int64(tok.num))
	case KindUint8:
		return s.Uint8(uint8(tok.num))
	case KindUint16:
		return s.Uint16(uint16(tok.num))
	case KindUint32:
		return s.Uint32(uint32(tok.num))
	case KindUint64:
		return s.Uint64(tok.num)
	case KindFloat32:
		return s.Float32(math.Float32frombits(uint32(tok.num)))
	case KindFloat64:
		return s.Float64(math.Float64frombits(tok.num))
	case KindChar:
		return s.Char(rune(uint32(tok.num)))
	case KindStr:
		return s.Str(p.str(tok.ref))
	case KindBytes:
		return s.Bytes(p.bytes(tok.ref))

	case KindNone:
		return s.None()
	case KindSome:
		if err := s.Some(); err != nil {
			return err
		}
		return replayValue(cur, p, s)

	case KindSeq:
		if err := s.BeginSeq(int(tok.n)); err != nil {
			return err
		}
		for i := uint32(0); i < tok.n; i++ {
			if err := replayValue(cur, p, s); err != nil {
				return err
			}
		}
		return s.EndSeq()
	case KindTuple:
		if err := s.BeginTuple(int(tok.n)); err != nil {
			return err
		}
		for i := uint32(0); i < tok.n; i++ {
			if err := replayValue(cur, p, s); err != nil {
				return err
			}
		}
		return s.EndTuple()
	case KindMap:
		if err := s.BeginMap(int(tok.n)); err != nil {
			return err
		}
		for i := uint32(0); i < tok.n; i++ {
			if err := replayValue(cur, p, s); err != nil { // key
				return err
			}
			if err := replayValue(cur, p, s); err != nil { // value
				return err
			}
		}
		return s.EndMap()
	case KindStruct:
		if err := s.BeginStruct(p.str(tok.ref), int(tok.n)); err != nil {
			return err
		}
		if err := replayFields(cur, p, s, tok.n); err != nil {
			return err
		}
		return s.EndStruct()
	case KindTupleStruct:
		if err := s.BeginTupleStruct(p.str(tok.ref), int(tok.n)); err != nil {
			return err
		}
		for i := uint32(0); i < tok.n; i++ {
			if err := replayValue(cur, p, s); err != nil {
				return err
			}
		}
		return s.EndTupleStruct()
	case KindUnitStruct:
		return s.UnitStruct(p.str(tok.ref))
	case KindNewtypeStruct:
		if err := s.NewtypeStruct(p.str(tok.ref)); err != nil {
			return err
		}
		return replayValue(cur, p, s)

	case KindUnitVariant:
		return s.UnitVariant(p.str(tok.ref), tok.idx, p.str(tok.aux))
	case KindNewtypeVariant:
		if err := s.NewtypeVariant(p.str(tok.ref), tok.idx, p.str(tok.aux)); err != nil {
			return err
		}
		return replayValue(cur, p, s)
	case KindTupleVariant:
		if err := s.BeginTupleVariant(p.str(tok.ref), tok.idx, p.str(tok.aux), int(tok.n)); err != nil {
			return err
		}
		for i := uint32(0); i < tok.n; i++ {
			if err := replayValue(cur, p, s); err != nil {
				return err
			}
		}
		return s.EndTupleVariant()
	case KindStructVariant:
		if err := s.BeginStructVariant(p.str(tok.ref), tok.idx, p.str(tok.aux), int(tok.n)); err != nil {
			return err
		}
		if err := replayFields(cur, p, s, tok.n); err != nil {
			return err
		}
		return s.EndStructVariant()

	default:
		return fmt.Errorf("rebuf: unexpected %s token during replay", tok.kind)
	}
}

// replayFields replays n field-name/value pairs of a struct or struct
// variant body.
func replayFields(cur *cursor, p *payloadStore, s Sink, n uint32) error {
	for i := uint32(0); i < n; i++ {
		f, err := cur.next()
		if err != nil {
			return err
		}
		if f.kind != KindField {
			return fmt.Errorf("rebuf: expected field token, found %s", f.kind)
		}
		if err := s.Field(p.str(f.ref)); err != nil {
			return err
		}
		if err := replayValue(cur, p, s); err != nil {
			return err
		}
	}
	return nil
}

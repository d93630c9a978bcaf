package rebuf

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Decode replays the buffer into a Go value through the hinted Reader,
// applying the inverse of the Capture mapping. out must be a non-nil
// pointer. The decoder is an ordinary consumer: it widens or narrows
// integers itself, with range checks, but never converts across
// families (a string token never becomes a number). Enum variant
// tokens have no Go target and fail; consumers with a variant set use
// Reader.ReadVariant instead.
func (b *Buffer) Decode(out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("rebuf: decode target must be a non-nil pointer")
	}
	r := b.Reader()
	if err := decodeReflect(r, rv.Elem()); err != nil {
		return err
	}
	return r.cur.expectEnd()
}

// peekKind exposes the next token's tag to the decoder. Internal only:
// the buffer stays opaque to callers.
func (r *Reader) peekKind() (Kind, error) {
	tok, err := r.cur.peek()
	if err != nil {
		return KindInvalid, err
	}
	return tok.kind, nil
}

func decodeReflect(r *Reader, rv reflect.Value) error {
	if err := unwrapNewtype(r); err != nil {
		return err
	}
	switch rv.Kind() {
	case reflect.Bool:
		v, err := r.Bool()
		if err != nil {
			return err
		}
		rv.SetBool(v)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := decodeSigned(r)
		if err != nil {
			return err
		}
		if rv.OverflowInt(v) {
			return fmt.Errorf("rebuf: value %d does not fit %s", v, rv.Type())
		}
		rv.SetInt(v)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, err := decodeUnsigned(r)
		if err != nil {
			return err
		}
		if rv.OverflowUint(v) {
			return fmt.Errorf("rebuf: value %d does not fit %s", v, rv.Type())
		}
		rv.SetUint(v)
		return nil

	case reflect.Float32, reflect.Float64:
		v, _, err := r.Float()
		if err != nil {
			return err
		}
		rv.SetFloat(v)
		return nil

	case reflect.String:
		v, err := r.Str()
		if err != nil {
			return err
		}
		rv.SetString(v)
		return nil

	case reflect.Slice:
		return decodeSlice(r, rv)

	case reflect.Array:
		return decodeArray(r, rv)

	case reflect.Map:
		return decodeMap(r, rv)

	case reflect.Struct:
		return decodeStruct(r, rv)

	case reflect.Pointer:
		return decodePointer(r, rv)

	case reflect.Interface:
		if rv.NumMethod() != 0 {
			return fmt.Errorf("rebuf: cannot decode into non-empty interface %s", rv.Type())
		}
		v, err := decodeAny(r)
		if err != nil {
			return err
		}
		if v == nil {
			rv.Set(reflect.Zero(rv.Type()))
		} else {
			rv.Set(reflect.ValueOf(v))
		}
		return nil

	default:
		return fmt.Errorf("rebuf: cannot decode into %s", rv.Type())
	}
}

// unwrapNewtype peels newtype struct prefixes so a wrapped value
// decodes as the value itself. Peek errors are left for the next read
// to surface.
func unwrapNewtype(r *Reader) error {
	for {
		k, err := r.peekKind()
		if err != nil || k != KindNewtypeStruct {
			return nil
		}
		if _, err := r.NewtypeStruct(); err != nil {
			return err
		}
	}
}

// decodeSigned accepts any integer token and returns it as int64,
// range-checked.
func decodeSigned(r *Reader) (int64, error) {
	k, err := r.peekKind()
	if err != nil {
		return 0, err
	}
	if k.isUnsigned() {
		u, _, err := r.Uint()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("rebuf: value %d overflows int64", u)
		}
		return int64(u), nil
	}
	v, _, err := r.Int()
	return v, err
}

// decodeUnsigned accepts any integer token and returns it as uint64,
// rejecting negatives.
func decodeUnsigned(r *Reader) (uint64, error) {
	k, err := r.peekKind()
	if err != nil {
		return 0, err
	}
	if k.isSigned() {
		v, _, err := r.Int()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("rebuf: negative value %d for unsigned target", v)
		}
		return uint64(v), nil
	}
	u, _, err := r.Uint()
	return u, err
}

func decodeSlice(r *Reader, rv reflect.Value) error {
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		b, err := r.Bytes()
		if err != nil {
			return err
		}
		rv.SetBytes(append([]byte(nil), b...))
		return nil
	}
	n, err := beginElems(r)
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(rv.Type(), n, n)
	for i := 0; i < n; i++ {
		if err := decodeReflect(r, out.Index(i)); err != nil {
			return err
		}
	}
	rv.Set(out)
	return endElems(r)
}

func decodeArray(r *Reader, rv reflect.Value) error {
	n, err := beginElems(r)
	if err != nil {
		return err
	}
	if n != rv.Len() {
		return fmt.Errorf("rebuf: cannot decode %d elements into %s", n, rv.Type())
	}
	for i := 0; i < n; i++ {
		if err := decodeReflect(r, rv.Index(i)); err != nil {
			return err
		}
	}
	return endElems(r)
}

// beginElems enters the next element container, accepting either a
// sequence or a tuple (Go arrays capture as tuples).
func beginElems(r *Reader) (int, error) {
	k, err := r.peekKind()
	if err != nil {
		return 0, err
	}
	if k == KindTuple {
		return r.BeginTuple()
	}
	return r.BeginSeq()
}

func endElems(r *Reader) error {
	// The matching end call depends on which opener beginElems took.
	if len(r.stack) > 0 && r.stack[len(r.stack)-1].kind == KindTuple {
		return r.EndTuple()
	}
	return r.EndSeq()
}

func decodeMap(r *Reader, rv reflect.Value) error {
	n, err := r.BeginMap()
	if err != nil {
		return err
	}
	out := reflect.MakeMapWithSize(rv.Type(), n)
	keyType := rv.Type().Key()
	elemType := rv.Type().Elem()
	for i := 0; i < n; i++ {
		key := reflect.New(keyType).Elem()
		if err := decodeReflect(r, key); err != nil {
			return err
		}
		val := reflect.New(elemType).Elem()
		if err := decodeReflect(r, val); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	rv.Set(out)
	return r.EndMap()
}

func decodeStruct(r *Reader, rv reflect.Value) error {
	fields := structFields(rv.Type())
	byName := make(map[string]int, len(fields))
	for _, f := range fields {
		byName[f.name] = f.index
	}

	k, err := r.peekKind()
	if err != nil {
		return err
	}
	if k == KindMap {
		// Captured maps decode into structs by key.
		n, err := r.BeginMap()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			name, err := r.Str()
			if err != nil {
				return err
			}
			if idx, ok := byName[name]; ok {
				if err := decodeReflect(r, rv.Field(idx)); err != nil {
					return err
				}
			} else if err := r.Skip(); err != nil {
				return err
			}
		}
		return r.EndMap()
	}

	_, n, err := r.BeginStruct()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := r.NextField()
		if err != nil {
			return err
		}
		if idx, ok := byName[name]; ok {
			if err := decodeReflect(r, rv.Field(idx)); err != nil {
				return err
			}
		} else if err := r.Skip(); err != nil {
			return err
		}
	}
	return r.EndStruct()
}

func decodePointer(r *Reader, rv reflect.Value) error {
	k, err := r.peekKind()
	if err != nil {
		return err
	}
	switch k {
	case KindNone, KindSome:
		present, err := r.Option()
		if err != nil {
			return err
		}
		if !present {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
	}
	elem := reflect.New(rv.Type().Elem())
	if err := decodeReflect(r, elem.Elem()); err != nil {
		return err
	}
	rv.Set(elem)
	return nil
}

// decodeAny reconstructs the next value as a generic Go value: nil,
// bool, int64, uint64, float64, rune, string, []byte, []any, or
// map[string]any. Map and struct keys must be strings in this mode.
func decodeAny(r *Reader) (any, error) {
	k, err := r.peekKind()
	if err != nil {
		return nil, err
	}
	switch {
	case k == KindUnit:
		return nil, r.Unit()
	case k == KindBool:
		return r.Bool()
	case k.isSigned():
		v, _, err := r.Int()
		return v, err
	case k.isUnsigned():
		v, _, err := r.Uint()
		return v, err
	case k.isFloat():
		v, _, err := r.Float()
		return v, err
	case k == KindChar:
		return r.Char()
	case k == KindStr:
		return r.Str()
	case k == KindBytes:
		b, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case k == KindNone, k == KindSome:
		present, err := r.Option()
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		return decodeAny(r)
	case k == KindSeq, k == KindTuple, k == KindTupleStruct:
		return decodeAnyElems(r, k)
	case k == KindMap:
		n, err := r.BeginMap()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			key, err := r.Str()
			if err != nil {
				return nil, err
			}
			val, err := decodeAny(r)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, r.EndMap()
	case k == KindStruct:
		_, n, err := r.BeginStruct()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			name, err := r.NextField()
			if err != nil {
				return nil, err
			}
			val, err := decodeAny(r)
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
		return out, r.EndStruct()
	case k == KindUnitStruct:
		_, err := r.UnitStruct()
		return nil, err
	case k == KindNewtypeStruct:
		if _, err := r.NewtypeStruct(); err != nil {
			return nil, err
		}
		return decodeAny(r)
	default:
		return nil, fmt.Errorf("rebuf: cannot decode %s into interface value", k)
	}
}

func decodeAnyElems(r *Reader, k Kind) (any, error) {
	var (
		n   int
		err error
		end func() error
	)
	switch k {
	case KindTuple:
		n, err = r.BeginTuple()
		end = r.EndTuple
	case KindTupleStruct:
		_, n, err = r.BeginTupleStruct()
		end = r.EndTupleStruct
	default:
		n, err = r.BeginSeq()
		end = r.EndSeq
	}
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		if out[i], err = decodeAny(r); err != nil {
			return nil, err
		}
	}
	return out, end()
}

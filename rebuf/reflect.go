package rebuf

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// captureValue decomposes an arbitrary Go value against c. The
// mapping into the structured-data model:
//
//	bool                 → bool
//	int8/16/32, int(64)  → signed integer of that width
//	uint8/16/32, uint(64)→ unsigned integer of that width
//	float32/64           → float of that width
//	string               → str (borrowed)
//	[]byte               → bytes (borrowed)
//	slice                → sequence
//	array                → tuple
//	map                  → map (keys sorted for determinism)
//	struct               → struct (exported fields, `rebuf` tag honored)
//	nil pointer, nil any → absent optional
//	non-nil pointer      → present optional wrapping the element
func captureValue(c *Capture, v any) error {
	if v == nil {
		return c.None()
	}
	return captureReflect(c, reflect.ValueOf(v))
}

func captureReflect(c *Capture, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		return c.Bool(rv.Bool())
	case reflect.Int8:
		return c.Int8(int8(rv.Int()))
	case reflect.Int16:
		return c.Int16(int16(rv.Int()))
	case reflect.Int32:
		return c.Int32(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		return c.Int64(rv.Int())
	case reflect.Uint8:
		return c.Uint8(uint8(rv.Uint()))
	case reflect.Uint16:
		return c.Uint16(uint16(rv.Uint()))
	case reflect.Uint32:
		return c.Uint32(uint32(rv.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return c.Uint64(rv.Uint())
	case reflect.Float32:
		return c.Float32(float32(rv.Float()))
	case reflect.Float64:
		return c.Float64(rv.Float())
	case reflect.String:
		return c.Str(rv.String())

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return c.Bytes(rv.Bytes())
		}
		if err := c.BeginSeq(rv.Len()); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := captureReflect(c, rv.Index(i)); err != nil {
				return err
			}
		}
		return c.EndSeq()

	case reflect.Array:
		if err := c.BeginTuple(rv.Len()); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := captureReflect(c, rv.Index(i)); err != nil {
				return err
			}
		}
		return c.EndTuple()

	case reflect.Map:
		if err := c.BeginMap(rv.Len()); err != nil {
			return err
		}
		for _, key := range sortedMapKeys(rv) {
			if err := captureReflect(c, key); err != nil {
				return err
			}
			if err := captureReflect(c, rv.MapIndex(key)); err != nil {
				return err
			}
		}
		return c.EndMap()

	case reflect.Struct:
		fields := structFields(rv.Type())
		if err := c.BeginStruct(rv.Type().Name(), len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := c.Field(f.name); err != nil {
				return err
			}
			if err := captureReflect(c, rv.Field(f.index)); err != nil {
				return err
			}
		}
		return c.EndStruct()

	case reflect.Pointer:
		if rv.IsNil() {
			return c.None()
		}
		if err := c.Some(); err != nil {
			return err
		}
		return captureReflect(c, rv.Elem())

	case reflect.Interface:
		if rv.IsNil() {
			return c.None()
		}
		return captureReflect(c, rv.Elem())

	default:
		return fmt.Errorf("rebuf: cannot capture %s value", rv.Kind())
	}
}

// sortedMapKeys returns rv's keys in a deterministic order when the
// key type supports one; other key types keep iteration order.
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	switch rv.Type().Key().Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	case reflect.Float32, reflect.Float64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Float() < keys[j].Float() })
	}
	return keys
}

type structField struct {
	name  string
	index int
}

// structFields lists t's exported fields in declaration order. A
// `rebuf:"name"` tag renames a field; `rebuf:"-"` skips it.
func structFields(t reflect.Type) []structField {
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("rebuf"); ok {
			if idx := strings.IndexByte(tag, ','); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, structField{name: name, index: i})
	}
	return fields
}

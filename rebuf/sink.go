package rebuf

// Sink is the consumer side of the structured-data protocol: one entry
// point per scalar kind, a begin/end pair per container kind, and the
// four enum variant forms. A producer decomposing a value calls these
// in document order; *Capture implements Sink to record the calls, and
// Buffer.ReplayInto drives any Sink with the recorded calls.
//
// Container contents follow their begin call as complete values:
// sequence and tuple elements one after another, map entries as
// alternating key and value, struct fields as a Field call followed by
// the field's value. Some, NewtypeStruct, and NewtypeVariant are
// prefixes, each followed by exactly one value.
//
// Begin calls take the element/entry/field count when the producer
// knows it up front; a negative count means unknown, and the recorder
// backfills it at the matching end call.
//
// Any error returned by a Sink aborts the traversal and is propagated
// to the caller unchanged.
type Sink interface {
	Unit() error
	Bool(v bool) error
	Int8(v int8) error
	Int16(v int16) error
	Int32(v int32) error
	Int64(v int64) error
	Uint8(v uint8) error
	Uint16(v uint16) error
	Uint32(v uint32) error
	Uint64(v uint64) error
	Float32(v float32) error
	Float64(v float64) error
	Char(v rune) error
	Str(v string) error
	Bytes(v []byte) error

	None() error
	Some() error

	BeginSeq(n int) error
	EndSeq() error
	BeginTuple(n int) error
	EndTuple() error
	BeginMap(n int) error
	EndMap() error
	BeginStruct(name string, n int) error
	Field(name string) error
	EndStruct() error
	BeginTupleStruct(name string, n int) error
	EndTupleStruct() error
	UnitStruct(name string) error
	NewtypeStruct(name string) error

	UnitVariant(enum string, index uint32, variant string) error
	NewtypeVariant(enum string, index uint32, variant string) error
	BeginTupleVariant(enum string, index uint32, variant string, n int) error
	EndTupleVariant() error
	BeginStructVariant(enum string, index uint32, variant string, n int) error
	EndStructVariant() error
}

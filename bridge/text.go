// Package bridge connects capture/replay buffers to concrete document
// formats. Each adapter is an ordinary producer or consumer of the
// core protocol; the buffer stays the only artifact between any two of
// them.
package bridge

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/Neumenon/rebuf/rebuf"
)

// Printer renders any replayed value as canonical debug text, one line
// regardless of nesting. The notation is format-neutral: maps as
// {k:v k:v}, sequences as [a b], tuples as (a b), structs as
// Name{f:v}, optionals as some(v)/none, enum variants as Enum::Var
// with their payload form. Scalar formatting is canonical so that two
// captures of the same logical value always print byte-identically.
//
// Printer implements Sink and never returns an error. Use a fresh
// Printer per value.
type Printer struct {
	sb    strings.Builder
	stack []printFrame
}

type printFrame struct {
	kind rebuf.Kind
	n    int
}

// NewPrinter returns an empty Printer.
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the text rendered so far.
func (p *Printer) String() string {
	return p.sb.String()
}

// pre writes the separator a new value needs in the current container.
func (p *Printer) pre() {
	if len(p.stack) == 0 {
		return
	}
	top := &p.stack[len(p.stack)-1]
	switch top.kind {
	case rebuf.KindMap:
		switch {
		case top.n == 0:
		case top.n%2 == 1:
			p.sb.WriteByte(':')
		default:
			p.sb.WriteByte(' ')
		}
		top.n++
	case rebuf.KindStruct, rebuf.KindStructVariant:
		// Field wrote the separator and the name already.
	case rebuf.KindSome, rebuf.KindNewtypeStruct, rebuf.KindNewtypeVariant:
		// Single wrapped value, no separator.
	default:
		if top.n > 0 {
			p.sb.WriteByte(' ')
		}
		top.n++
	}
}

// post closes satisfied one-value wrappers after a complete value.
func (p *Printer) post() {
	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		if top.kind != rebuf.KindSome && top.kind != rebuf.KindNewtypeStruct && top.kind != rebuf.KindNewtypeVariant {
			break
		}
		p.sb.WriteByte(')')
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *Printer) scalar(text string) error {
	p.pre()
	p.sb.WriteString(text)
	p.post()
	return nil
}

func (p *Printer) open(kind rebuf.Kind, text string) error {
	p.pre()
	p.sb.WriteString(text)
	p.stack = append(p.stack, printFrame{kind: kind})
	return nil
}

func (p *Printer) close(text string) error {
	p.sb.WriteString(text)
	p.stack = p.stack[:len(p.stack)-1]
	p.post()
	return nil
}

// formatFloat renders f in the shortest form that round-trips, always
// with a decimal point so floats stay distinguishable from integers.
func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (p *Printer) Unit() error { return p.scalar("()") }

func (p *Printer) Bool(v bool) error {
	if v {
		return p.scalar("true")
	}
	return p.scalar("false")
}

func (p *Printer) Int8(v int8) error   { return p.scalar(strconv.FormatInt(int64(v), 10)) }
func (p *Printer) Int16(v int16) error { return p.scalar(strconv.FormatInt(int64(v), 10)) }
func (p *Printer) Int32(v int32) error { return p.scalar(strconv.FormatInt(int64(v), 10)) }
func (p *Printer) Int64(v int64) error { return p.scalar(strconv.FormatInt(v, 10)) }

func (p *Printer) Uint8(v uint8) error   { return p.scalar(strconv.FormatUint(uint64(v), 10)) }
func (p *Printer) Uint16(v uint16) error { return p.scalar(strconv.FormatUint(uint64(v), 10)) }
func (p *Printer) Uint32(v uint32) error { return p.scalar(strconv.FormatUint(uint64(v), 10)) }
func (p *Printer) Uint64(v uint64) error { return p.scalar(strconv.FormatUint(v, 10)) }

func (p *Printer) Float32(v float32) error { return p.scalar(formatFloat(float64(v), 32)) }
func (p *Printer) Float64(v float64) error { return p.scalar(formatFloat(v, 64)) }

func (p *Printer) Char(v rune) error  { return p.scalar(strconv.QuoteRune(v)) }
func (p *Printer) Str(v string) error { return p.scalar(strconv.Quote(v)) }

func (p *Printer) Bytes(v []byte) error {
	return p.scalar("b64\"" + base64.StdEncoding.EncodeToString(v) + "\"")
}

func (p *Printer) None() error { return p.scalar("none") }

func (p *Printer) Some() error {
	return p.open(rebuf.KindSome, "some(")
}

func (p *Printer) BeginSeq(n int) error { return p.open(rebuf.KindSeq, "[") }
func (p *Printer) EndSeq() error        { return p.close("]") }

func (p *Printer) BeginTuple(n int) error { return p.open(rebuf.KindTuple, "(") }
func (p *Printer) EndTuple() error        { return p.close(")") }

func (p *Printer) BeginMap(n int) error { return p.open(rebuf.KindMap, "{") }
func (p *Printer) EndMap() error        { return p.close("}") }

func (p *Printer) BeginStruct(name string, n int) error {
	return p.open(rebuf.KindStruct, name+"{")
}

func (p *Printer) Field(name string) error {
	top := &p.stack[len(p.stack)-1]
	if top.n > 0 {
		p.sb.WriteByte(' ')
	}
	top.n++
	p.sb.WriteString(name)
	p.sb.WriteByte(':')
	return nil
}

func (p *Printer) EndStruct() error { return p.close("}") }

func (p *Printer) BeginTupleStruct(name string, n int) error {
	return p.open(rebuf.KindTupleStruct, name+"(")
}

func (p *Printer) EndTupleStruct() error { return p.close(")") }

func (p *Printer) UnitStruct(name string) error { return p.scalar(name) }

func (p *Printer) NewtypeStruct(name string) error {
	return p.open(rebuf.KindNewtypeStruct, name+"(")
}

func (p *Printer) UnitVariant(enum string, index uint32, variant string) error {
	return p.scalar(enum + "::" + variant)
}

func (p *Printer) NewtypeVariant(enum string, index uint32, variant string) error {
	return p.open(rebuf.KindNewtypeVariant, enum+"::"+variant+"(")
}

func (p *Printer) BeginTupleVariant(enum string, index uint32, variant string, n int) error {
	return p.open(rebuf.KindTupleVariant, enum+"::"+variant+"(")
}

func (p *Printer) EndTupleVariant() error { return p.close(")") }

func (p *Printer) BeginStructVariant(enum string, index uint32, variant string, n int) error {
	return p.open(rebuf.KindStructVariant, enum+"::"+variant+"{")
}

func (p *Printer) EndStructVariant() error { return p.close("}") }

var _ rebuf.Sink = (*Printer)(nil)

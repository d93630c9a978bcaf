package bridge

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/rebuf/rebuf"
)

// CaptureYAML records a parsed YAML document. Mappings keep their
// document order; scalar strings are borrowed from the node values.
// Null maps to unit so that a document and its equivalent from another
// format capture identically.
func CaptureYAML(node *yaml.Node, opts ...rebuf.CaptureOption) (*rebuf.Buffer, error) {
	c := rebuf.NewCapture(opts...)
	if err := captureYAMLNode(c, node); err != nil {
		return nil, err
	}
	return c.Finish()
}

func captureYAMLNode(c *rebuf.Capture, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return fmt.Errorf("bridge: document with %d root nodes", len(node.Content))
		}
		return captureYAMLNode(c, node.Content[0])

	case yaml.AliasNode:
		return captureYAMLNode(c, node.Alias)

	case yaml.ScalarNode:
		return captureYAMLScalar(c, node)

	case yaml.SequenceNode:
		if err := c.BeginSeq(len(node.Content)); err != nil {
			return err
		}
		for _, child := range node.Content {
			if err := captureYAMLNode(c, child); err != nil {
				return err
			}
		}
		return c.EndSeq()

	case yaml.MappingNode:
		if err := c.BeginMap(len(node.Content) / 2); err != nil {
			return err
		}
		for _, child := range node.Content {
			if err := captureYAMLNode(c, child); err != nil {
				return err
			}
		}
		return c.EndMap()

	default:
		return fmt.Errorf("bridge: unsupported yaml node kind %d", node.Kind)
	}
}

func captureYAMLScalar(c *rebuf.Capture, node *yaml.Node) error {
	switch node.Tag {
	case "!!null":
		return c.Unit()
	case "!!bool":
		v, err := strconv.ParseBool(node.Value)
		if err != nil {
			return fmt.Errorf("bridge: bad yaml bool %q: %w", node.Value, err)
		}
		return c.Bool(v)
	case "!!int":
		if v, err := strconv.ParseInt(node.Value, 0, 64); err == nil {
			return c.Int64(v)
		}
		v, err := strconv.ParseUint(node.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("bridge: bad yaml int %q: %w", node.Value, err)
		}
		return c.Uint64(v)
	case "!!float":
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("bridge: bad yaml float %q: %w", node.Value, err)
		}
		return c.Float64(v)
	case "!!binary":
		raw, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return fmt.Errorf("bridge: bad yaml binary: %w", err)
		}
		return c.OwnedBytes(raw)
	default:
		// !!str, !!timestamp, and custom tags keep their text form.
		return c.Str(node.Value)
	}
}

// YAMLSink rebuilds a YAML document from a replay. Unit and absent
// optionals become null; a present optional is transparent, as are
// struct names. Enum variants follow the single-entry-mapping
// convention: Var for a unit variant, {Var: payload} otherwise.
//
// Call Node after the replay for the finished document.
type YAMLSink struct {
	root  *yaml.Node
	stack []yamlFrame
}

type yamlFrame struct {
	node   *yaml.Node
	single bool // one-value wrapper: pop once filled
}

// Node returns the completed document node. It fails when the replay
// did not deliver exactly one complete value.
func (y *YAMLSink) Node() (*yaml.Node, error) {
	if y.root == nil {
		return nil, fmt.Errorf("bridge: no value replayed")
	}
	if len(y.stack) > 0 {
		return nil, fmt.Errorf("bridge: %d containers left open", len(y.stack))
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{y.root}}, nil
}

// add places a finished node in the current container, or at the root.
func (y *YAMLSink) add(n *yaml.Node) error {
	if len(y.stack) == 0 {
		if y.root != nil {
			return fmt.Errorf("bridge: multiple root values")
		}
		y.root = n
		return nil
	}
	top := y.stack[len(y.stack)-1]
	top.node.Content = append(top.node.Content, n)
	if top.single {
		y.stack = y.stack[:len(y.stack)-1]
	}
	return nil
}

func (y *YAMLSink) push(n *yaml.Node, single bool) error {
	y.stack = append(y.stack, yamlFrame{node: n, single: single})
	return nil
}

func (y *YAMLSink) pop(kind yaml.Kind) error {
	if len(y.stack) == 0 {
		return fmt.Errorf("bridge: end without open container")
	}
	top := y.stack[len(y.stack)-1]
	if top.node.Kind != kind || top.single {
		return fmt.Errorf("bridge: mismatched container end")
	}
	y.stack = y.stack[:len(y.stack)-1]
	return y.add(top.node)
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func (y *YAMLSink) Unit() error { return y.add(yamlScalar("!!null", "null")) }

func (y *YAMLSink) Bool(v bool) error {
	return y.add(yamlScalar("!!bool", strconv.FormatBool(v)))
}

func (y *YAMLSink) Int8(v int8) error   { return y.Int64(int64(v)) }
func (y *YAMLSink) Int16(v int16) error { return y.Int64(int64(v)) }
func (y *YAMLSink) Int32(v int32) error { return y.Int64(int64(v)) }

func (y *YAMLSink) Int64(v int64) error {
	return y.add(yamlScalar("!!int", strconv.FormatInt(v, 10)))
}

func (y *YAMLSink) Uint8(v uint8) error   { return y.Uint64(uint64(v)) }
func (y *YAMLSink) Uint16(v uint16) error { return y.Uint64(uint64(v)) }
func (y *YAMLSink) Uint32(v uint32) error { return y.Uint64(uint64(v)) }

func (y *YAMLSink) Uint64(v uint64) error {
	return y.add(yamlScalar("!!int", strconv.FormatUint(v, 10)))
}

func (y *YAMLSink) Float32(v float32) error {
	return y.add(yamlScalar("!!float", strconv.FormatFloat(float64(v), 'g', -1, 32)))
}

func (y *YAMLSink) Float64(v float64) error {
	return y.add(yamlScalar("!!float", strconv.FormatFloat(v, 'g', -1, 64)))
}

func (y *YAMLSink) Char(v rune) error  { return y.Str(string(v)) }
func (y *YAMLSink) Str(v string) error { return y.add(yamlScalar("!!str", v)) }

func (y *YAMLSink) Bytes(v []byte) error {
	return y.add(yamlScalar("!!binary", base64.StdEncoding.EncodeToString(v)))
}

func (y *YAMLSink) None() error { return y.add(yamlScalar("!!null", "null")) }

// Some is transparent: the wrapped value stands for the optional.
func (y *YAMLSink) Some() error { return nil }

func (y *YAMLSink) BeginSeq(n int) error {
	return y.push(&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}, false)
}

func (y *YAMLSink) EndSeq() error { return y.pop(yaml.SequenceNode) }

func (y *YAMLSink) BeginTuple(n int) error { return y.BeginSeq(n) }
func (y *YAMLSink) EndTuple() error        { return y.EndSeq() }

func (y *YAMLSink) BeginMap(n int) error {
	return y.push(&yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, false)
}

func (y *YAMLSink) EndMap() error { return y.pop(yaml.MappingNode) }

func (y *YAMLSink) BeginStruct(name string, n int) error { return y.BeginMap(n) }

func (y *YAMLSink) Field(name string) error {
	if len(y.stack) == 0 || y.stack[len(y.stack)-1].node.Kind != yaml.MappingNode {
		return fmt.Errorf("bridge: field outside a mapping")
	}
	top := y.stack[len(y.stack)-1]
	top.node.Content = append(top.node.Content, yamlScalar("!!str", name))
	return nil
}

func (y *YAMLSink) EndStruct() error { return y.EndMap() }

func (y *YAMLSink) BeginTupleStruct(name string, n int) error { return y.BeginSeq(n) }
func (y *YAMLSink) EndTupleStruct() error                     { return y.EndSeq() }

func (y *YAMLSink) UnitStruct(name string) error { return y.Unit() }

// NewtypeStruct is transparent: the wrapped value stands for the
// struct, matching the YAML convention for single-value wrappers.
func (y *YAMLSink) NewtypeStruct(name string) error { return nil }

func (y *YAMLSink) UnitVariant(enum string, index uint32, variant string) error {
	return y.add(yamlScalar("!!str", variant))
}

// variantWrapper opens the {Variant: ...} single-entry mapping and
// leaves the payload's destination on the stack.
func (y *YAMLSink) variantWrapper(variant string) *yaml.Node {
	wrapper := &yaml.Node{
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
		Content: []*yaml.Node{yamlScalar("!!str", variant)},
	}
	return wrapper
}

func (y *YAMLSink) NewtypeVariant(enum string, index uint32, variant string) error {
	wrapper := y.variantWrapper(variant)
	if err := y.add(wrapper); err != nil {
		return err
	}
	return y.push(wrapper, true)
}

func (y *YAMLSink) BeginTupleVariant(enum string, index uint32, variant string, n int) error {
	wrapper := y.variantWrapper(variant)
	payload := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	wrapper.Content = append(wrapper.Content, payload)
	if err := y.add(wrapper); err != nil {
		return err
	}
	return y.push(payload, false)
}

func (y *YAMLSink) EndTupleVariant() error { return y.popVariantPayload(yaml.SequenceNode) }

func (y *YAMLSink) BeginStructVariant(enum string, index uint32, variant string, n int) error {
	wrapper := y.variantWrapper(variant)
	payload := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	wrapper.Content = append(wrapper.Content, payload)
	if err := y.add(wrapper); err != nil {
		return err
	}
	return y.push(payload, false)
}

func (y *YAMLSink) EndStructVariant() error { return y.popVariantPayload(yaml.MappingNode) }

// popVariantPayload closes a tuple or struct variant payload. The
// payload node is already wired into its wrapper, so the frame is
// simply dropped.
func (y *YAMLSink) popVariantPayload(kind yaml.Kind) error {
	if len(y.stack) == 0 {
		return fmt.Errorf("bridge: end without open container")
	}
	top := y.stack[len(y.stack)-1]
	if top.node.Kind != kind {
		return fmt.Errorf("bridge: mismatched container end")
	}
	y.stack = y.stack[:len(y.stack)-1]
	return nil
}

var _ rebuf.Sink = (*YAMLSink)(nil)

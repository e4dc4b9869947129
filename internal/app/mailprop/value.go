// Package mailprop maps metadata keys extracted from a document header to
// validated mutations on a mail item. Values are decoded once at the YAML
// boundary into a closed union of shapes; every setter then matches against
// that union instead of probing arbitrary types at apply time.
package mailprop

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the shapes a metadata value can take.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindList
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindList:
		return "list of strings"
	case KindTime:
		return "timestamp"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one decoded metadata value.
type Value struct {
	kind Kind
	str  string
	b    bool
	i    int
	list []string
	t    time.Time
}

func String(s string) Value      { return Value{kind: KindString, str: s} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int) Value            { return Value{kind: KindInt, i: i} }
func List(items ...string) Value { return Value{kind: KindList, list: items} }
func Time(t time.Time) Value     { return Value{kind: KindTime, t: t} }

func (v Value) Kind() Kind         { return v.kind }
func (v Value) Str() string        { return v.str }
func (v Value) BoolVal() bool      { return v.b }
func (v Value) IntVal() int        { return v.i }
func (v Value) ListVal() []string  { return v.list }
func (v Value) TimeVal() time.Time { return v.t }

// Raw returns the value in its native Go representation, for raw best-effort
// field assignment.
func (v Value) Raw() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindList:
		return v.list
	case KindTime:
		return v.t
	default:
		return v.str
	}
}

// yaml.v3 resolves plain scalars that look like timestamps to !!timestamp,
// but leaves the text as written. These are the layouts it recognizes.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2 15:4:5",
	"2006-1-2",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decodeValue converts one YAML node into a Value. Scalar tags outside the
// union decay to strings so the raw fallback can still assign them; nested
// mappings have no mail-property meaning and are rejected.
func decodeValue(name string, node *yaml.Node) (Value, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!bool":
			b, err := strconv.ParseBool(strings.ToLower(node.Value))
			if err != nil {
				return Value{}, &DecodeError{Err: fmt.Errorf("property %q: invalid boolean %q", name, node.Value)}
			}
			return Bool(b), nil
		case "!!int":
			i, err := strconv.Atoi(node.Value)
			if err != nil {
				return Value{}, &DecodeError{Err: fmt.Errorf("property %q: invalid integer %q", name, node.Value)}
			}
			return Int(i), nil
		case "!!timestamp":
			if t, ok := parseTimestamp(node.Value); ok {
				return Time(t), nil
			}
			return String(node.Value), nil
		default:
			return String(node.Value), nil
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, child := range node.Content {
			if child.Kind != yaml.ScalarNode {
				return Value{}, &DecodeError{Err: fmt.Errorf("property %q: list entries must be scalars", name)}
			}
			items = append(items, child.Value)
		}
		return List(items...), nil
	default:
		return Value{}, &DecodeError{Err: fmt.Errorf("property %q: unsupported nested value", name)}
	}
}

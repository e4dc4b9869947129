package mailprop

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one metadata key with its decoded value.
type Entry struct {
	Name  string
	Value Value
}

// Block is the ordered metadata mapping extracted from a document header.
// Keys are case-sensitive; application order follows document order.
type Block struct {
	entries []Entry
}

func (b Block) Len() int         { return len(b.entries) }
func (b Block) Entries() []Entry { return b.entries }

// Get returns the value for a key, reporting whether it is present.
func (b Block) Get(name string) (Value, bool) {
	for _, e := range b.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// DecodeBlock decodes header text into a metadata block. Empty text, or text
// that decodes to YAML null, yields an empty block. Malformed YAML or a
// non-mapping document is a DecodeError.
func DecodeBlock(text string) (Block, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return Block{}, &DecodeError{Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Block{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Block{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return Block{}, &DecodeError{Err: fmt.Errorf("metadata block must be a mapping, got %s", root.Tag)}
	}

	var b Block
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		val, err := decodeValue(key.Value, root.Content[i+1])
		if err != nil {
			return Block{}, err
		}
		b.entries = append(b.entries, Entry{Name: key.Value, Value: val})
	}
	return b, nil
}

// BlockFromMap builds a metadata block from an explicit mapping, used when a
// caller overrides the extracted headers. Keys are applied in sorted order
// for determinism. Values outside the metadata union are a ValueError.
func BlockFromMap(m map[string]any) (Block, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b Block
	for _, k := range keys {
		v, err := valueFromAny(k, m[k])
		if err != nil {
			return Block{}, err
		}
		b.entries = append(b.entries, Entry{Name: k, Value: v})
	}
	return b, nil
}

func valueFromAny(name string, raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int64:
		return Int(int(v)), nil
	case time.Time:
		return Time(v), nil
	case []string:
		return List(v...), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return Value{}, &ValueError{Msg: fmt.Sprintf("header override %q: list entries must be strings, got %T", name, item)}
			}
			items = append(items, s)
		}
		return List(items...), nil
	default:
		return Value{}, &ValueError{Msg: fmt.Sprintf("header override %q: unsupported value type %T", name, raw)}
	}
}

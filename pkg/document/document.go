// Package document decodes indexer JSON and on-chain CBOR into ordered ipld node trees
// and provides the depth-first scans used to pick profile fields and media payloads out of them.
//
// Map iteration follows encoding order, so "first match" is stable for a given payload.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	ipldjson "github.com/ipld/go-ipld-prime/codec/json"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/node/basicnode"
)

// DefaultExtension is used when no file name carries a dotted suffix.
const DefaultExtension = "png"

// ErrEmpty is returned when decoding an empty buffer.
var ErrEmpty = errors.New("empty document")

// DecodeJSON parses a JSON document into an ordered node tree.
func DecodeJSON(data []byte) (datamodel.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := ipldjson.Decode(nb, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return nb.Build(), nil
}

// DecodeCBOR parses a CBOR envelope into an ordered node tree.
func DecodeCBOR(data []byte) (datamodel.Node, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := dagcbor.Decode(nb, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode cbor: %w", err)
	}
	return nb.Build(), nil
}

// EncodeJSON serializes a node tree back to JSON, preserving key order.
func EncodeJSON(n datamodel.Node) ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := ipldjson.Encode(n, &buf); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Lookup walks a path of map keys (string) and list indices (int).
// It returns nil as soon as a segment is missing or the shape does not match.
func Lookup(n datamodel.Node, path ...any) datamodel.Node {
	for _, seg := range path {
		if n == nil || n.IsAbsent() || n.IsNull() {
			return nil
		}
		var (
			next datamodel.Node
			err  error
		)
		switch s := seg.(type) {
		case string:
			if n.Kind() != datamodel.Kind_Map {
				return nil
			}
			next, err = n.LookupByString(s)
		case int:
			if n.Kind() != datamodel.Kind_List {
				return nil
			}
			next, err = n.LookupByIndex(int64(s))
		default:
			return nil
		}
		if err != nil {
			return nil
		}
		n = next
	}
	if n == nil || n.IsAbsent() {
		return nil
	}
	return n
}

// String returns the node's value when it is a non-empty string.
func String(n datamodel.Node) (string, bool) {
	if n == nil || n.Kind() != datamodel.Kind_String {
		return "", false
	}
	s, err := n.AsString()
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Int returns the node's value when it is an integer.
func Int(n datamodel.Node) (int64, bool) {
	if n == nil || n.Kind() != datamodel.Kind_Int {
		return 0, false
	}
	i, err := n.AsInt()
	if err != nil {
		return 0, false
	}
	return i, true
}

// Bool returns the node's value when it is a boolean.
func Bool(n datamodel.Node) (bool, bool) {
	if n == nil || n.Kind() != datamodel.Kind_Bool {
		return false, false
	}
	b, err := n.AsBool()
	if err != nil {
		return false, false
	}
	return b, true
}

// Scalar renders strings, integers, floats and booleans as text.
func Scalar(n datamodel.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case datamodel.Kind_String:
		return String(n)
	case datamodel.Kind_Int:
		i, ok := Int(n)
		return strconv.FormatInt(i, 10), ok
	case datamodel.Kind_Float:
		f, err := n.AsFloat()
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case datamodel.Kind_Bool:
		b, ok := Bool(n)
		return strconv.FormatBool(b), ok
	}
	return "", false
}

// Entries visits the children of a map or list in order.
// List children are keyed by their decimal index. Iteration stops when fn returns false.
func Entries(n datamodel.Node, fn func(key string, v datamodel.Node) bool) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case datamodel.Kind_Map:
		it := n.MapIterator()
		for it != nil && !it.Done() {
			k, v, err := it.Next()
			if err != nil {
				return
			}
			ks, err := k.AsString()
			if err != nil {
				continue
			}
			if !fn(ks, v) {
				return
			}
		}
	case datamodel.Kind_List:
		it := n.ListIterator()
		for it != nil && !it.Done() {
			i, v, err := it.Next()
			if err != nil {
				return
			}
			if !fn(strconv.FormatInt(i, 10), v) {
				return
			}
		}
	}
}

func isContainer(n datamodel.Node) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	return k == datamodel.Kind_Map || k == datamodel.Kind_List
}

// FindWithKey returns the first map, depth-first, that directly contains key.
func FindWithKey(n datamodel.Node, key string) datamodel.Node {
	if !isContainer(n) {
		return nil
	}
	if n.Kind() == datamodel.Kind_Map {
		if v, err := n.LookupByString(key); err == nil && v != nil && !v.IsAbsent() {
			return n
		}
	}
	var found datamodel.Node
	Entries(n, func(_ string, v datamodel.Node) bool {
		found = FindWithKey(v, key)
		return found == nil
	})
	return found
}

// ExtensionOf returns the last dotted suffix of name, or DefaultExtension.
func ExtensionOf(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[len(parts)-1] != "" {
		return parts[len(parts)-1]
	}
	return DefaultExtension
}

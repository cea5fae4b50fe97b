package document

import (
	"github.com/ipld/go-ipld-prime/datamodel"
)

// HexMarker is the reserved key the indexer uses for hex-encoded binary fields.
const HexMarker = "$b"

// ContentTypeKey carries an optional MIME type next to a binary payload.
const ContentTypeKey = "$ct"

// HexBlob is a hex-encoded binary field found in an indexer document.
type HexBlob struct {
	Name      string
	Extension string
	Hex       string
}

// Payload is a raw byte field found in a decoded CBOR envelope.
type Payload struct {
	Name        string
	Extension   string
	ContentType string
	Data        []byte
}

// FindHex returns the first HexMarker value, depth-first.
// The marker's value may be the hex string itself or a map holding the marker again.
// The enclosing key name supplies the file extension.
func FindHex(n datamodel.Node) *HexBlob {
	return findHex(n, "")
}

func findHex(n datamodel.Node, parentKey string) *HexBlob {
	if !isContainer(n) {
		return nil
	}
	var found *HexBlob
	Entries(n, func(key string, v datamodel.Node) bool {
		if key == HexMarker {
			hex, ok := String(v)
			if !ok {
				hex, ok = String(Lookup(v, HexMarker))
			}
			if ok {
				found = &HexBlob{Name: parentKey, Extension: ExtensionOf(parentKey), Hex: hex}
				return false
			}
			return true
		}
		found = findHex(v, key)
		return found == nil
	})
	return found
}

// FindBytes returns the first non-empty byte value, depth-first.
// The payload is named after its enclosing key, or its own key at the top level.
func FindBytes(n datamodel.Node) *Payload {
	return findBytes(n, "", "")
}

func findBytes(n datamodel.Node, parentKey, contentType string) *Payload {
	if !isContainer(n) {
		return nil
	}
	if ct, ok := String(Lookup(n, ContentTypeKey)); ok {
		contentType = ct
	}
	var found *Payload
	Entries(n, func(key string, v datamodel.Node) bool {
		switch v.Kind() {
		case datamodel.Kind_Bytes:
			data, err := v.AsBytes()
			if err != nil || len(data) == 0 {
				return true
			}
			name := parentKey
			if name == "" {
				name = key
			}
			found = &Payload{
				Name:        name,
				Extension:   ExtensionOf(name),
				ContentType: contentType,
				Data:        data,
			}
			return false
		case datamodel.Kind_Map, datamodel.Kind_List:
			found = findBytes(v, key, contentType)
			return found == nil
		}
		return true
	})
	return found
}

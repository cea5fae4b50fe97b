// Package urn parses colon-delimited media references such as atom:btc:dat:<id>/image.png.
package urn

import "strings"

// Known segment values.
const (
	PrefixAtom = "atom"
	PrefixOrd  = "ord"

	ProtocolBTC    = "btc"
	ProtocolETH    = "eth"
	ProtocolSolana = "solana"

	TypeID  = "id"
	TypeDat = "dat"
)

// Kind classifies a reference by (protocol, prefix, type).
type Kind int

const (
	KindUnknown Kind = iota
	KindBtcAtom
	KindBtcOrd
	KindEth
	KindSolana
)

func (k Kind) String() string {
	switch k {
	case KindBtcAtom:
		return "btc-atom"
	case KindBtcOrd:
		return "btc-ord"
	case KindEth:
		return "eth"
	case KindSolana:
		return "solana"
	default:
		return "unknown"
	}
}

// URN is a decoded media reference. The zero value means "not a recognized URN".
type URN struct {
	Prefix   string
	Protocol string
	Type     string
	ID       string
}

// Parse decodes line. Repeated segments are dropped anywhere in the line (first
// occurrence kept) before splitting; fewer than four remaining segments yields the zero URN.
// The id is everything after the third segment, cut at the first '/'.
func Parse(line string) URN {
	parts := strings.Split(line, ":")
	seen := make(map[string]struct{}, len(parts))
	kept := parts[:0:0]
	for _, p := range parts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		kept = append(kept, p)
	}

	if len(kept) < 4 {
		return URN{}
	}

	id := strings.Join(kept[3:], ":")
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}

	return URN{
		Prefix:   kept[0],
		Protocol: kept[1],
		Type:     kept[2],
		ID:       id,
	}
}

// Valid reports whether the reference parsed into four fields.
func (u URN) Valid() bool {
	return u != URN{}
}

// Kind returns the dispatch class of the reference.
func (u URN) Kind() Kind {
	switch u.Protocol {
	case ProtocolBTC:
		switch u.Prefix {
		case PrefixAtom:
			if u.Type == TypeID || u.Type == TypeDat {
				return KindBtcAtom
			}
		case PrefixOrd:
			return KindBtcOrd
		}
		return KindUnknown
	case ProtocolETH:
		return KindEth
	case ProtocolSolana:
		return KindSolana
	}
	return KindUnknown
}

// String renders the reference back into prefix:protocol:type:id form.
func (u URN) String() string {
	if !u.Valid() {
		return ""
	}
	return u.Prefix + ":" + u.Protocol + ":" + u.Type + ":" + u.ID
}

// Package realm resolves Atomicals realm names into profile documents.
//
// Resolution is a linear pipeline: realm name to atomical id, id to profile id, profile id
// to profile document, then profile media to public URLs. Every stage degrades to nulls
// instead of failing; the response always carries the full meta shape.
package realm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ActionUpdate forces a fresh resolution and an in-place update of the stored record.
const ActionUpdate = "update"

// ErrInvalidName is returned when a realm name cannot be normalized.
var ErrInvalidName = errors.New("invalid realm name")

// Stage is the last pipeline stage reached.
type Stage int

const (
	StageStart Stage = iota
	StageIDResolved
	StageProfileIDResolved
	StageProfileResolved
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIDResolved:
		return "id_resolved"
	case StageProfileIDResolved:
		return "profile_id_resolved"
	case StageProfileResolved:
		return "profile_resolved"
	case StageDone:
		return "done"
	default:
		return "start"
	}
}

// Meta is the resolved realm metadata. The first eight fields are always present
// and null when unresolved; the rest are omitted when empty.
type Meta struct {
	V          *string `json:"v"`
	ID         *string `json:"id"`
	CID        *string `json:"cid"`
	PID        *string `json:"pid"`
	PO         *string `json:"po"`
	Image      *string `json:"image"`
	Banner     *string `json:"banner"`
	Background *string `json:"background"`

	Number         *int64 `json:"number,omitempty"`
	Mint           string `json:"mint,omitempty"`
	Owner          string `json:"owner,omitempty"`
	ImageData      string `json:"imageData,omitempty"`
	ImageHash      string `json:"imageHash,omitempty"`
	BannerData     string `json:"bannerData,omitempty"`
	BannerHash     string `json:"bannerHash,omitempty"`
	BackgroundData string `json:"backgroundData,omitempty"`
	BackgroundHash string `json:"backgroundHash,omitempty"`
}

// Response is the document returned for a realm lookup.
type Response struct {
	Meta    Meta            `json:"meta"`
	Profile json.RawMessage `json:"profile" swaggertype:"object"`
}

// Normalize URL-decodes, trims, lower-cases and punycode-encodes a realm name.
func Normalize(raw string) (string, error) {
	s, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrInvalidName
	}
	ascii, err := idna.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return ascii, nil
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

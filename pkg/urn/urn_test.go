package urn

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want URN
	}{
		{
			name: "repeated type segment is collapsed",
			line: "atom:btc:dat:dat:abc123/x.png",
			want: URN{Prefix: "atom", Protocol: "btc", Type: "dat", ID: "abc123"},
		},
		{
			name: "plain id reference",
			line: "atom:btc:id:8f3ei0",
			want: URN{Prefix: "atom", Protocol: "btc", Type: "id", ID: "8f3ei0"},
		},
		{
			name: "id keeps remaining colons",
			line: "ord:btc:content:abc:def/img.webp",
			want: URN{Prefix: "ord", Protocol: "btc", Type: "content", ID: "abc:def"},
		},
		{
			name: "non-adjacent duplicate is dropped",
			line: "atom:btc:dat:x:btc:y",
			want: URN{Prefix: "atom", Protocol: "btc", Type: "dat", ID: "x:y"},
		},
		{
			name: "too few segments",
			line: "a:b:c",
			want: URN{},
		},
		{
			name: "too few after dedup",
			line: "a:a:b:b:c",
			want: URN{},
		},
		{
			name: "plain url",
			line: "https://example.com/a.png",
			want: URN{},
		},
		{
			name: "empty",
			line: "",
			want: URN{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
			if got.Valid() != (tt.want != URN{}) {
				t.Errorf("Valid() = %v for %+v", got.Valid(), got)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{"atom:btc:id:abc", KindBtcAtom},
		{"atom:btc:dat:abc", KindBtcAtom},
		{"atom:btc:mod:abc", KindUnknown},
		{"ord:btc:content:abc", KindBtcOrd},
		{"xyz:btc:dat:abc", KindUnknown},
		{"atom:eth:dat:abc", KindEth},
		{"atom:solana:dat:abc", KindSolana},
		{"atom:doge:dat:abc", KindUnknown},
		{"a:b", KindUnknown},
	}
	for _, tt := range tests {
		if got := Parse(tt.line).Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := Parse("atom:btc:dat:abc/x.png").String(); got != "atom:btc:dat:abc" {
		t.Errorf("unexpected string %q", got)
	}
	if got := Parse("nope").String(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// defaultKeyHex is the key of the virtual link preceding the first link.
const defaultKeyHex = "00000000"

// HexString is an immutable byte string held as lowercase hex text.
//
// Values built with HexFromBytes are valid by construction. Text coming from
// outside (JSON, flags) goes through ParseHex, which rejects anything that
// is not lowercase, even-length hex.
type HexString struct {
	s string
}

// HexFromBytes encodes b.
func HexFromBytes(b []byte) HexString {
	return HexString{s: hex.EncodeToString(b)}
}

// ParseHex validates s and wraps it.
func ParseHex(s string) (HexString, error) {
	if s == "" {
		return HexString{}, errors.New("hex string is empty")
	}
	if len(s)%2 != 0 {
		return HexString{}, fmt.Errorf("hex string %q has odd length", s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return HexString{}, fmt.Errorf("hex string %q: invalid character %q at offset %d", s, c, i)
		}
	}
	return HexString{s: s}, nil
}

// MustParseHex is like ParseHex but panics on error.
// Use only in tests or with constant input.
func MustParseHex(s string) HexString {
	h, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// DefaultKey returns the key of the virtual first link.
func DefaultKey() HexString {
	return HexString{s: defaultKeyHex}
}

// Bytes decodes the hex text.
func (h HexString) Bytes() []byte {
	b, err := hex.DecodeString(h.s)
	if err != nil {
		// Unreachable: every HexString is validated on construction.
		panic(fmt.Sprintf("chain: corrupt HexString %q: %v", h.s, err))
	}
	return b
}

// String returns the hex text.
func (h HexString) String() string {
	return h.s
}

// IsZero reports whether h is the zero value (no key at all).
func (h HexString) IsZero() bool {
	return h.s == ""
}

// MarshalText implements encoding.TextMarshaler.
func (h HexString) MarshalText() ([]byte, error) {
	if h.IsZero() {
		return nil, errors.New("marshal empty hex string")
	}
	return []byte(h.s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Invalid hex is an error,
// never coerced.
func (h *HexString) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

package modea

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/roach88/dit/internal/chain"
	"golang.org/x/crypto/sha3"
)

// Default starting values.
const (
	DefaultVersion uint64 = 1_01_00
	DefaultHP      int64  = 100
)

// HeaderHP overrides the starting hp.
const HeaderHP = "hp"

// StateA is the mode A snapshot.
type StateA struct {
	Version uint64 `json:"version"`
	HP      int64  `json:"hp"`
}

// DefaultState implements chain.State.
func (StateA) DefaultState() StateA {
	return StateA{Version: DefaultVersion, HP: DefaultHP}
}

// ReadHeaderLine implements chain.State.
func (s StateA) ReadHeaderLine(line chain.HeaderLine) (StateA, error) {
	switch line.Key {
	case HeaderHP:
		hp, err := strconv.ParseInt(line.Value, 10, 64)
		if err != nil {
			return s, fmt.Errorf("header %s: %w", HeaderHP, err)
		}
		s.HP = hp
		return s, nil
	default:
		return s, fmt.Errorf("unknown header %q", line.Key)
	}
}

var rootHash = sync.OnceValue(func() chain.HexString {
	b, err := json.Marshal(StateA{}.DefaultState())
	if err != nil {
		panic(err)
	}
	sum := sha3.Sum224(b)
	return chain.HexFromBytes(sum[:])
})

// RootHash implements chain.State. Every mode A history shares the root of
// the default state.
func (StateA) RootHash() chain.HexString {
	return rootHash()
}

// Mode implements chain.State.
func (StateA) Mode() chain.Mode {
	return chain.ModeA
}

// VersionString renders the packed version (major*10000 + minor*100 + patch)
// as dotted text.
func (s StateA) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", s.Version/10000, s.Version/100%100, s.Version%100)
}

// HeaderLines returns the header lines that make s the initial state of a
// log. Only hp can be set from a header.
func (s StateA) HeaderLines() []chain.HeaderLine {
	if s.HP == DefaultHP {
		return nil
	}
	return []chain.HeaderLine{{Key: HeaderHP, Value: strconv.FormatInt(s.HP, 10)}}
}

var _ chain.HeaderWriter = StateA{}

// Book is a mode A book.
type Book = chain.Book[ActionA, StateA]

// NewBook returns an empty mode A book.
func NewBook() *Book {
	return chain.NewBook[ActionA, StateA]()
}

package chain

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dit/internal/testutil"
)

// counterState and counterAction are a minimal domain for exercising the
// chain machinery without any real mode.
type counterState struct {
	Total int `json:"total"`
}

func (counterState) DefaultState() counterState { return counterState{} }

func (s counterState) ReadHeaderLine(h HeaderLine) (counterState, error) {
	if h.Key != "start" {
		return s, fmt.Errorf("unknown header %q", h.Key)
	}
	n, err := strconv.Atoi(h.Value)
	if err != nil {
		return s, err
	}
	s.Total = n
	return s, nil
}

func (s counterState) HeaderLines() []HeaderLine {
	if s.Total == 0 {
		return nil
	}
	return []HeaderLine{{Key: "start", Value: strconv.Itoa(s.Total)}}
}

func (counterState) RootHash() HexString { return MustParseHex("c0ffee") }

func (counterState) Mode() Mode { return "T" }

type counterAction struct {
	Type string `json:"type"`
	N    int    `json:"n,omitempty"`
	Note string `json:"note,omitempty"`
}

func (counterAction) DefaultAction() counterAction { return counterAction{Type: "noop"} }

func (a counterAction) BitCost(counterState) int {
	if a.Type == "heavy" {
		return 12
	}
	return 2
}

func (a counterAction) Applicable(_ Ledger[counterAction], s counterState) bool {
	return a.Type != "add" || s.Total+a.N >= 0
}

func (a counterAction) Apply(p PendingLedger[counterAction], s counterState) (counterState, error) {
	switch a.Type {
	case "noop", "heavy":
		return s, nil
	case "add":
		if a.N == 0 {
			return s, fmt.Errorf("%w: zero add", ErrBadAction)
		}
		s.Total += a.N
		return s, nil
	case "seq":
		if p.Position() != a.N || p.Key.IsZero() {
			return s, fmt.Errorf("%w: seq %d at position %d", ErrBadAction, a.N, p.Position())
		}
		return s, nil
	default:
		return s, fmt.Errorf("%w: unknown type %q", ErrBadAction, a.Type)
	}
}

type testBook = Book[counterAction, counterState]

func add(n int) counterAction { return counterAction{Type: "add", N: n} }

// mine mines each action onto book in order.
func mine(t *testing.T, book *testBook, actions ...counterAction) {
	t.Helper()
	src := testutil.NewSeededSource(42)
	for _, a := range actions {
		msg, _, err := NextMessage(context.Background(), book.Last(), a, book.State(), src)
		require.NoError(t, err)
		require.NoError(t, book.ApplyMessage(msg))
	}
}

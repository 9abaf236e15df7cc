package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/dit/internal/chain"
)

// Link is a chain link as stored in the mirror.
type Link struct {
	Seq        int64
	Key        string
	ActionType string
	Action     string // canonical action JSON, byte-identical to the log
	BitCost    int
}

// LinksFromBook encodes a book's links for import. Bit costs are computed
// against the state each link was mined at.
func LinksFromBook[A chain.Action[A, S], S chain.State[S]](book *chain.Book[A, S]) ([]Link, error) {
	ledger := book.Ledger()
	state := book.InitialState()
	links := make([]Link, 0, ledger.Len())

	for i, msg := range ledger.All() {
		action, err := chain.EncodeAction(msg.Action)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		links = append(links, Link{
			Seq:        int64(i),
			Key:        msg.Key.String(),
			ActionType: actionType(action),
			Action:     string(action),
			BitCost:    msg.Action.BitCost(state),
		})

		state, err = msg.Action.Apply(ledger.Prefix(i).Pending(msg.Key), state)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
	}
	return links, nil
}

// LedgerFromLinks decodes stored links back into a ledger. Links must be in
// seq order without gaps.
func LedgerFromLinks[A any](links []Link) (chain.Ledger[A], error) {
	msgs := make([]chain.Message[A], 0, len(links))
	for i, l := range links {
		if l.Seq != int64(i) {
			return chain.Ledger[A]{}, fmt.Errorf("link seq %d at position %d", l.Seq, i)
		}
		key, err := chain.ParseHex(l.Key)
		if err != nil {
			return chain.Ledger[A]{}, fmt.Errorf("link %d: %w", l.Seq, err)
		}
		var action A
		if err := json.Unmarshal([]byte(l.Action), &action); err != nil {
			return chain.Ledger[A]{}, fmt.Errorf("link %d: unmarshal action: %w", l.Seq, err)
		}
		msgs = append(msgs, chain.Message[A]{Key: key, Action: action})
	}
	return chain.NewLedger(msgs...), nil
}

// actionType extracts the "type" tag of an action, or "" if it has none.
func actionType(action []byte) string {
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(action, &tagged); err != nil {
		return ""
	}
	return tagged.Type
}

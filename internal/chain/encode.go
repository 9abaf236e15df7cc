package chain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// EncodeAction produces the canonical serialization of an action.
//
// The same bytes are hashed during mining and validation and written to the
// log, so the encoding must be stable:
//   - encoding/json field order (struct declaration order)
//   - no HTML escaping (<, >, & are kept literal)
//   - NFC-normalized text
func EncodeAction(action any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}

	// json.Encoder adds a trailing newline
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return norm.NFC.Bytes(out), nil
}

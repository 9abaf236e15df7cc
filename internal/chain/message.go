package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/dit/internal/work"
)

// Message is one link of the chain: an action and the key that admits it.
type Message[A any] struct {
	Key    HexString `json:"key"`
	Action A         `json:"action"`
}

// DefaultMessage is the virtual link that precedes the first real link.
func DefaultMessage[A Defaulter[A]]() Message[A] {
	return Message[A]{Key: DefaultKey(), Action: DefaultAction[A]()}
}

// String renders the message as its log line, or a placeholder when the
// action does not encode.
func (m Message[A]) String() string {
	b, err := EncodeMessage(m)
	if err != nil {
		return fmt.Sprintf("{key:%s action:<%v>}", m.Key, err)
	}
	return string(b)
}

// wireMessage carries the pre-encoded action so the written action bytes are
// exactly the hashed bytes.
type wireMessage struct {
	Key    HexString       `json:"key"`
	Action json.RawMessage `json:"action"`
}

// EncodeMessage produces one log line without the trailing newline.
func EncodeMessage[A any](m Message[A]) ([]byte, error) {
	action, err := EncodeAction(m.Action)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wireMessage{Key: m.Key, Action: action}); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// DecodeMessage parses one log line. Unknown fields and missing keys are
// errors.
func DecodeMessage[A any](line []byte) (Message[A], error) {
	var raw wireMessage
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Message[A]{}, err
	}
	if dec.More() {
		return Message[A]{}, errors.New("trailing data after message")
	}
	if raw.Key.IsZero() {
		return Message[A]{}, errors.New("missing key")
	}
	if len(raw.Action) == 0 {
		return Message[A]{}, errors.New("missing action")
	}

	var action A
	adec := json.NewDecoder(bytes.NewReader(raw.Action))
	adec.DisallowUnknownFields()
	if err := adec.Decode(&action); err != nil {
		return Message[A]{}, fmt.Errorf("action: %w", err)
	}
	return Message[A]{Key: raw.Key, Action: action}, nil
}

// Accepts reports whether next is a valid successor of prev at state: the
// digest of prev's key, next's encoded action and next's nonce must share
// BitCost trailing bits with prev's key.
func Accepts[A Action[A, S], S any](prev, next Message[A], state S) bool {
	payload, err := EncodeAction(next.Action)
	if err != nil {
		return false
	}
	return work.Verify(prev.Key.Bytes(), payload, next.Key.Bytes(), next.Action.BitCost(state))
}

// NextMessage mines a successor of prev carrying action. It blocks until a
// nonce is found, ctx is done, or the search options bound it.
func NextMessage[A Action[A, S], S any](
	ctx context.Context,
	prev Message[A],
	action A,
	state S,
	src work.Source,
	opts ...work.SearchOption,
) (Message[A], work.Result, error) {
	payload, err := EncodeAction(action)
	if err != nil {
		return Message[A]{}, work.Result{}, err
	}
	res, err := work.Search(ctx, prev.Key.Bytes(), payload, action.BitCost(state), src, opts...)
	if err != nil {
		return Message[A]{}, res, err
	}
	return Message[A]{Key: HexFromBytes(res.Nonce[:]), Action: action}, res, nil
}

package modea

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/dit/internal/chain"
)

// ActionType tags each ActionA variant on the wire.
type ActionType string

// Action types.
const (
	TypeNoOp                 ActionType = "noop"
	TypeMarker               ActionType = "marker"
	TypeUpdateVersion        ActionType = "updateversion"
	TypeAttemptSeekEncounter ActionType = "attemptseekencounter"
	TypeAttemptLearnSpell    ActionType = "attemptlearnspell"
	TypeCastSpell            ActionType = "castspell"
)

// Bit costs per action type.
const (
	CostUpdateVersion = 1
	CostSeekEncounter = 5
	CostCastSpell     = 8
	CostDefault       = 5
)

// Spell names a spell.
type Spell string

// Known spells.
const (
	FireBall  Spell = "FireBall"
	IceDagger Spell = "IceDagger"
)

// Spells lists every known spell.
var Spells = []Spell{FireBall, IceDagger}

// ParseSpell validates a spell name.
func ParseSpell(s string) (Spell, error) {
	for _, sp := range Spells {
		if string(sp) == s {
			return sp, nil
		}
	}
	return "", fmt.Errorf("unknown spell %q", s)
}

// ActionA is a mode A transition. Only the fields of its Type are
// meaningful; the rest stay zero.
type ActionA struct {
	Type    ActionType
	Content string
	Version uint64
	Spell   Spell
}

// NoOp returns the default action.
func NoOp() ActionA { return ActionA{Type: TypeNoOp} }

// Marker returns an action recording free text.
func Marker(content string) ActionA { return ActionA{Type: TypeMarker, Content: content} }

// UpdateVersion returns an action moving the state to version.
func UpdateVersion(version uint64) ActionA {
	return ActionA{Type: TypeUpdateVersion, Version: version}
}

// SeekEncounter returns an encounter attempt.
func SeekEncounter() ActionA { return ActionA{Type: TypeAttemptSeekEncounter} }

// LearnSpell returns an attempt to learn spell.
func LearnSpell(spell Spell) ActionA { return ActionA{Type: TypeAttemptLearnSpell, Spell: spell} }

// CastSpell returns a cast of spell.
func CastSpell(spell Spell) ActionA { return ActionA{Type: TypeCastSpell, Spell: spell} }

// DefaultAction implements chain.Defaulter.
func (ActionA) DefaultAction() ActionA {
	return NoOp()
}

// BitCost implements chain.Action.
func (a ActionA) BitCost(StateA) int {
	switch a.Type {
	case TypeUpdateVersion:
		return CostUpdateVersion
	case TypeAttemptSeekEncounter:
		return CostSeekEncounter
	case TypeCastSpell:
		return CostCastSpell
	default:
		return CostDefault
	}
}

// Applicable implements chain.Action. Version downgrades are rejected here,
// before any mining.
func (a ActionA) Applicable(_ chain.Ledger[ActionA], state StateA) bool {
	switch a.Type {
	case TypeNoOp, TypeAttemptSeekEncounter:
		return true
	case TypeMarker:
		return a.Content != ""
	case TypeUpdateVersion:
		return a.Version >= state.Version
	case TypeAttemptLearnSpell, TypeCastSpell:
		_, err := ParseSpell(string(a.Spell))
		return err == nil
	default:
		return false
	}
}

// Apply implements chain.Action.
func (a ActionA) Apply(_ chain.PendingLedger[ActionA], state StateA) (StateA, error) {
	switch a.Type {
	case TypeUpdateVersion:
		if a.Version < state.Version {
			return state, fmt.Errorf("%w: cannot downgrade from version %d to %d", chain.ErrBadAction, state.Version, a.Version)
		}
		state.Version = a.Version
		return state, nil
	case TypeNoOp, TypeMarker, TypeAttemptSeekEncounter, TypeAttemptLearnSpell, TypeCastSpell:
		return state, nil
	default:
		return state, fmt.Errorf("%w: unknown action type %q", chain.ErrBadAction, a.Type)
	}
}

func (a ActionA) String() string {
	b, err := a.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", a.Type, err)
	}
	return string(b)
}

// Wire shapes, one per variant. Field order is the serialization order.
type (
	wireType struct {
		Type ActionType `json:"type"`
	}
	wireMarker struct {
		Type    ActionType `json:"type"`
		Content string     `json:"content"`
	}
	wireVersion struct {
		Type    ActionType `json:"type"`
		Version uint64     `json:"version"`
	}
	wireSpell struct {
		Type  ActionType `json:"type"`
		Spell Spell      `json:"spell"`
	}
)

// MarshalJSON writes the variant's wire shape.
func (a ActionA) MarshalJSON() ([]byte, error) {
	var v any
	switch a.Type {
	case TypeNoOp, TypeAttemptSeekEncounter:
		v = wireType{Type: a.Type}
	case TypeMarker:
		v = wireMarker{Type: a.Type, Content: a.Content}
	case TypeUpdateVersion:
		v = wireVersion{Type: a.Type, Version: a.Version}
	case TypeAttemptLearnSpell, TypeCastSpell:
		v = wireSpell{Type: a.Type, Spell: a.Spell}
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// UnmarshalJSON reads a variant strictly: unknown types, unknown fields and
// missing required fields are errors.
func (a *ActionA) UnmarshalJSON(data []byte) error {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case TypeNoOp, TypeAttemptSeekEncounter:
		var w wireType
		if err := decodeStrict(data, &w); err != nil {
			return err
		}
		*a = ActionA{Type: w.Type}
	case TypeMarker:
		var w struct {
			Type    ActionType `json:"type"`
			Content *string    `json:"content"`
		}
		if err := decodeStrict(data, &w); err != nil {
			return err
		}
		if w.Content == nil {
			return fmt.Errorf("%s: missing content", head.Type)
		}
		*a = Marker(*w.Content)
	case TypeUpdateVersion:
		var w struct {
			Type    ActionType `json:"type"`
			Version *uint64    `json:"version"`
		}
		if err := decodeStrict(data, &w); err != nil {
			return err
		}
		if w.Version == nil {
			return fmt.Errorf("%s: missing version", head.Type)
		}
		*a = UpdateVersion(*w.Version)
	case TypeAttemptLearnSpell, TypeCastSpell:
		var w struct {
			Type  ActionType `json:"type"`
			Spell *string    `json:"spell"`
		}
		if err := decodeStrict(data, &w); err != nil {
			return err
		}
		if w.Spell == nil {
			return fmt.Errorf("%s: missing spell", head.Type)
		}
		spell, err := ParseSpell(*w.Spell)
		if err != nil {
			return err
		}
		*a = ActionA{Type: head.Type, Spell: spell}
	case "":
		return fmt.Errorf("action has no type")
	default:
		return fmt.Errorf("unknown action type %q", head.Type)
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

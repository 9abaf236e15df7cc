package chain

// Mode identifies which action/state schema a log was written against.
type Mode string

// Known modes.
const (
	ModeA Mode = "A"
	ModeB Mode = "B"
)

// State is the contract for a domain's replayed snapshot.
//
// Methods are called on values; DefaultState is called on the zero value of
// S and must not depend on its fields.
type State[S any] interface {
	// DefaultState returns the canonical state every replay starts from.
	DefaultState() S

	// ReadHeaderLine folds one domain header line into the state. Header
	// lines this package understands itself (format version, mode) are not
	// passed on.
	ReadHeaderLine(line HeaderLine) (S, error)

	// RootHash identifies the history this state belongs to.
	RootHash() HexString

	// Mode reports the schema tag of this state type.
	Mode() Mode
}

// Defaulter supplies the canonical default action (the no-op transition).
type Defaulter[A any] interface {
	DefaultAction() A
}

// Action is the contract for a domain's state transitions.
//
// Actions must be JSON-serializable: the serialized form is both what is
// stored and what is hashed. Apply must be deterministic.
type Action[A, S any] interface {
	Defaulter[A]

	// BitCost is the number of trailing bits a link's digest must share with
	// its predecessor's key for this action to be admitted at state.
	BitCost(state S) int

	// Applicable is a cheap legality check run before any mining.
	Applicable(ledger Ledger[A], state S) bool

	// Apply produces the next state. The pending ledger carries the key of
	// the link this action is about to become part of. Apply may fail even
	// when Applicable returned true; failures should wrap ErrBadAction.
	Apply(ledger PendingLedger[A], state S) (S, error)
}

// defaultState returns the canonical default of S.
func defaultState[S State[S]]() S {
	var zero S
	return zero.DefaultState()
}

// DefaultState returns the canonical default of S.
func DefaultState[S State[S]]() S {
	return defaultState[S]()
}

// DefaultAction returns the canonical default of A.
func DefaultAction[A Defaulter[A]]() A {
	var zero A
	return zero.DefaultAction()
}

// ModeOf returns the mode of state type S.
func ModeOf[S State[S]]() Mode {
	return defaultState[S]().Mode()
}

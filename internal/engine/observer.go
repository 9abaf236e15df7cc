package engine

import "github.com/roach88/dit/internal/chain"

// Progress is one periodic report from a running search.
type Progress struct {
	RunID    string
	Attempts uint64
	Digest   chain.HexString
}

// Observer receives the events of a Run. Calls happen on the goroutine that
// called Run, in-line with the search.
type Observer interface {
	// OnAttempt is called every period attempts.
	OnAttempt(p Progress)

	// OnSuccess is called with the key of the committed link.
	OnSuccess(key chain.HexString)

	// OnFailure is called when the action was not applicable, the search
	// stopped, or Apply failed.
	OnFailure(err error)
}

// Hooks adapts plain functions to Observer. Nil fields are skipped.
type Hooks struct {
	Attempt func(Progress)
	Success func(chain.HexString)
	Failure func(error)
}

var _ Observer = Hooks{}

func (h Hooks) OnAttempt(p Progress) {
	if h.Attempt != nil {
		h.Attempt(p)
	}
}

func (h Hooks) OnSuccess(key chain.HexString) {
	if h.Success != nil {
		h.Success(key)
	}
}

func (h Hooks) OnFailure(err error) {
	if h.Failure != nil {
		h.Failure(err)
	}
}

// Observers fans events out to each observer in order.
type Observers []Observer

func (os Observers) OnAttempt(p Progress) {
	for _, o := range os {
		o.OnAttempt(p)
	}
}

func (os Observers) OnSuccess(key chain.HexString) {
	for _, o := range os {
		o.OnSuccess(key)
	}
}

func (os Observers) OnFailure(err error) {
	for _, o := range os {
		o.OnFailure(err)
	}
}

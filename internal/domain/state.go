package domain

import "fmt"

// TransferState is a state of the retry controller
type TransferState string

const (
	StateIdle     TransferState = "idle"
	StateProbing  TransferState = "probing"
	StateWriting  TransferState = "writing"
	StateRetrying TransferState = "retrying"
	StateDone     TransferState = "done"
	StateFatal    TransferState = "fatal"
)

var transitions = map[TransferState][]TransferState{
	StateIdle:     {StateProbing},
	StateProbing:  {StateWriting, StateDone, StateRetrying, StateFatal},
	StateWriting:  {StateDone, StateRetrying, StateFatal},
	StateRetrying: {StateProbing, StateFatal},
}

// IsTerminal returns true for Done and Fatal
func (s TransferState) IsTerminal() bool {
	return s == StateDone || s == StateFatal
}

// CanTransition reports whether from -> to is a legal controller move
func CanTransition(from, to TransferState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a move and returns the new state
func Transition(from, to TransferState) (TransferState, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return to, nil
}

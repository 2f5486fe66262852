package state

import (
	"dispatcher/bizerror"
	"dispatcher/domain"
)

type StateMachineTraits interface {
	AvailableTransitions(fromState domain.OrderStatus, toState domain.OrderStatus) []Transition
	CheckTransition(fromState domain.OrderStatus, toState domain.OrderStatus) error
}

// stateless object, just used for state computing
type StateMachine struct {
	States      []State      `json:"states"`
	Transitions []Transition `json:"transitions"`
}

type Category uint

const (
	InBacklog Category = iota
	InProcess
	Done
)

type State struct {
	Name     domain.OrderStatus `json:"name"`
	Category Category           `json:"category"`
}

type Transition struct {
	Name string `json:"name"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

func NewStateMachine(states []State, transitions []Transition) *StateMachine {
	return &StateMachine{States: states, Transitions: transitions}
}

// AvailableTransitions filters the transition table, an empty state matches any.
func (sm *StateMachine) AvailableTransitions(fromState domain.OrderStatus, toState domain.OrderStatus) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (fromState == "" || fromState == transition.From.Name) && (toState == "" || toState == transition.To.Name) {
			r = append(r, transition)
		}
	}
	return r
}

func (sm *StateMachine) FindState(name domain.OrderStatus) (State, bool) {
	for _, s := range sm.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// CheckTransition only rejects leaving delivered and same-state requests, the transition table is advisory.
func (sm *StateMachine) CheckTransition(fromState domain.OrderStatus, toState domain.OrderStatus) error {
	if !toState.Valid() {
		return &bizerror.ErrBadParam{Cause: bizerror.ErrUnknownStatus}
	}
	if fromState == domain.StatusDelivered {
		return bizerror.ErrAlreadyTerminal
	}
	if fromState == toState {
		return bizerror.ErrRedundantTransition
	}
	return nil
}

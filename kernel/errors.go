// Package kernel implements the synchronous reactive kernel: a single
// threaded scheduler over a dynamic graph of resumable reactors connected by
// link and await edges.
package kernel

import (
	"errors"
	"fmt"
)

// ErrKilled is delivered to any reactor awaiting a reactor that was killed.
// It is distinguishable from a normal ReactorFailure by errors.Is.
var ErrKilled = errors.New("kernel: reactor killed")

// ErrChainNonTermination is returned by Engine.Fire when a propagation chain
// exceeds the configured activation watchdog (WithMaxActivations) without
// draining. It guards against reactor bodies that spin without suspending.
var ErrChainNonTermination = errors.New("kernel: chain exceeded max activation bound")

// InvalidTransitionError is returned when an operation targets a reactor
// that cannot legally accept it — most commonly a dead reactor being
// awaited, linked, spawned, or killed.
type InvalidTransitionError struct {
	ReactorID ReactorID
	From      ReactorState
	Op        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("kernel: invalid transition: reactor %d is %s, cannot %s", e.ReactorID, e.From, e.Op)
}

// ReactorFailure wraps the error a reactor body returned. It is the value
// delivered to every reactor awaiting the failed reactor; link-edge
// dependents are never triggered on failure.
type ReactorFailure struct {
	ReactorID ReactorID
	Cause     error
}

func (e *ReactorFailure) Error() string {
	return fmt.Sprintf("kernel: reactor %d failed: %v", e.ReactorID, e.Cause)
}

func (e *ReactorFailure) Unwrap() error { return e.Cause }

// UnknownEvent is not an error condition: a step or post naming an event no
// edge matches is silently ignored. The type only names the case; the
// Engine neither returns it as an error value nor reports it to the Emitter.
type UnknownEvent struct {
	Name string
}

func (e UnknownEvent) String() string {
	return fmt.Sprintf("kernel: unknown event %q", e.Name)
}

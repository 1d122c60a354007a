// Package driver provides the application-level surface over one kernel
// engine: start an application from a root reactor, step it forward with
// external events one at a time, or loop it to completion.
package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/crudbug/reactorkernel/kernel"
)

// AppID identifies one running application instance.
type AppID string

// AppState is the coarse lifecycle an application is in, independent of the
// fine-grained state of any individual reactor inside it.
type AppState uint8

const (
	// AppStarting means Bootstrap has not yet returned.
	AppStarting AppState = iota
	// AppReady means the application has drained its current chain and is
	// waiting for the next external event.
	AppReady
	// AppTerminated means the root reactor has reached dead.
	AppTerminated
)

func (s AppState) String() string {
	switch s {
	case AppStarting:
		return "starting"
	case AppReady:
		return "ready"
	case AppTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

var ErrUnknownApp = errors.New("driver: unknown app id")

type app struct {
	engine *kernel.Engine
	rootID kernel.ReactorID
	state  AppState
}

// Driver owns a set of independently running applications, each backed by
// its own kernel.Engine. It is the process-level front end a CLI or server
// sits on top of.
type Driver struct {
	mu   sync.Mutex
	apps map[AppID]*app
}

// New returns an empty driver.
func New() *Driver {
	return &Driver{apps: make(map[AppID]*app)}
}

// Start creates a new application rooted at root, runs it to its first
// quiescent point, and returns its id. opts configure the underlying
// engine (emitter, metrics, activation watchdog) exactly as kernel.NewEngine
// does.
func (d *Driver) Start(root kernel.Body, opts ...kernel.Option) (AppID, error) {
	eng, err := kernel.NewEngine(opts...)
	if err != nil {
		return "", fmt.Errorf("driver: start: %w", err)
	}
	rootID := eng.Create(root)
	a := &app{engine: eng, rootID: rootID, state: AppStarting}

	id := AppID(uuid.NewString())
	d.mu.Lock()
	d.apps[id] = a
	d.mu.Unlock()

	if err := eng.Bootstrap(rootID); err != nil {
		return id, fmt.Errorf("driver: bootstrap: %w", err)
	}
	a.state = d.stateAfterChain(a)
	return id, nil
}

// Step fires eventName against id's engine and drains the resulting chain,
// returning the application's state afterward. Firing an event against a
// terminated application is a no-op that returns AppTerminated.
func (d *Driver) Step(id AppID, eventName string, payload any) (AppState, error) {
	d.mu.Lock()
	a, ok := d.apps[id]
	d.mu.Unlock()
	if !ok {
		return AppTerminated, ErrUnknownApp
	}
	if a.state == AppTerminated {
		return AppTerminated, nil
	}
	if err := a.engine.Fire(eventName, payload); err != nil {
		return a.state, fmt.Errorf("driver: step: %w", err)
	}
	a.state = d.stateAfterChain(a)
	return a.state, nil
}

// State reports id's current application state without driving anything.
func (d *Driver) State(id AppID) (AppState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.apps[id]
	if !ok {
		return AppTerminated, ErrUnknownApp
	}
	return a.state, nil
}

// Value returns the root reactor's terminal value once it has returned. It
// is nil while the root is still alive, and stays nil if the root was
// killed or failed.
func (d *Driver) Value(id AppID) (any, error) {
	d.mu.Lock()
	a, ok := d.apps[id]
	d.mu.Unlock()
	if !ok {
		return nil, ErrUnknownApp
	}
	return a.engine.CurrentValue(a.rootID), nil
}

// NextEventFunc produces the next external event to feed a looping
// application, given its current state. Returning ok=false stops the loop
// without waiting for termination.
type NextEventFunc func(state AppState) (name string, payload any, ok bool)

// Loop starts root and repeatedly steps it with events produced by next
// until either the application terminates or next declines to produce
// another event, returning the root reactor's terminal value. Loop is
// definitionally Start followed by a Step loop: nothing here drains a chain
// any differently than calling Start and Step directly would.
func (d *Driver) Loop(root kernel.Body, next NextEventFunc, opts ...kernel.Option) (any, error) {
	id, err := d.Start(root, opts...)
	if err != nil {
		return nil, err
	}
	state, err := d.State(id)
	if err != nil {
		return nil, err
	}
	for state != AppTerminated {
		name, payload, ok := next(state)
		if !ok {
			break
		}
		state, err = d.Step(id, name, payload)
		if err != nil {
			return nil, err
		}
	}
	return d.Value(id)
}

func (d *Driver) stateAfterChain(a *app) AppState {
	if !a.engine.Alive(a.rootID) {
		return AppTerminated
	}
	return AppReady
}

package kernel

import "fmt"

// ReactorID is a stable numeric identity for a reactor. Reactors never
// reference each other by pointer — only by id — so that cyclic reference
// graphs never form a Go-level cycle and killing a reactor is a simple id
// invalidation in the registry.
type ReactorID uint64

// ReactorState is one of the five states a reactor can be in. A reactor is
// in exactly one state at a time; "running" is exclusive across the whole
// kernel, since the engine is single-threaded.
type ReactorState uint8

const (
	StateReady ReactorState = iota
	StateRunning
	StateSuspended
	StateZombie
	StateDead
)

func (s ReactorState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateZombie:
		return "zombie"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates the reactor state machine. kill is handled
// separately by Engine.kill (ending in Registry.Destroy) since "* -> dead"
// is not a normal
// mark() transition: it must be allowed from every state including running
// (deferred) and must short-circuit the usual checks.
var legalTransitions = map[ReactorState]map[ReactorState]bool{
	StateReady:     {StateRunning: true},
	StateRunning:   {StateSuspended: true, StateZombie: true},
	StateSuspended: {StateRunning: true},
	StateZombie:    {StateDead: true},
}

// Suspension records why a suspended reactor is paused: the condition it is
// waiting on and the await edge standing in for its resumption.
type Suspension struct {
	Source      SourceKey
	Filter      Predicate
	AwaitEdgeID EdgeID
	carrier     *carrier
}

// Outcome is how a reactor's termination is classified, carried alongside
// its value when it is reported to awaiters or link-edge dependents.
type Outcome uint8

const (
	OutcomeReturned Outcome = iota
	OutcomeFailed
	OutcomeKilled

	// outcomeInvalidTransition is an internal resume outcome, never passed
	// to terminate: it delivers an *InvalidTransitionError to a body that
	// just awaited a source that can never fire, such as a reactor that is
	// already dead.
	outcomeInvalidTransition
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReturned:
		return "returned"
	case OutcomeFailed:
		return "failed"
	case OutcomeKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Reactor is a resumable unit of computation: identity, body, state, most
// recent terminal value, and (while suspended) its saved continuation.
type Reactor struct {
	ID           ReactorID
	body         Body
	state        ReactorState
	currentValue any
	lastOutcome  Outcome
	suspension   *Suspension

	// killRequested is set by a self-kill while the body is still running;
	// the body unwinds at its next suspension/return point rather than
	// being forcibly interrupted (Go has no preemptive coroutine cancel).
	killRequested bool

	// lineage is the set of open call() groups this activation of the
	// reactor belongs to; see callgroup.go.
	lineage map[callGroupID]struct{}
}

// Registry owns reactor storage and enforces the state machine.
type Registry struct {
	reactors map[ReactorID]*Reactor
	nextID   ReactorID
	alive    int
}

// NewRegistry allocates an empty reactor registry.
func NewRegistry() *Registry {
	return &Registry{reactors: make(map[ReactorID]*Reactor)}
}

// Create allocates a reactor in state ready and returns it. It is not
// scheduled; the engine schedules it later through spawn, call, or a link
// edge firing.
func (r *Registry) Create(body Body) *Reactor {
	r.nextID++
	rc := &Reactor{
		ID:      r.nextID,
		body:    body,
		state:   StateReady,
		lineage: make(map[callGroupID]struct{}),
	}
	r.reactors[rc.ID] = rc
	r.alive++
	return rc
}

// Lookup returns the reactor for id, or nil if it was never created. A
// destroyed reactor is still returned, in state dead.
func (r *Registry) Lookup(id ReactorID) *Reactor {
	return r.reactors[id]
}

// Mark enforces the legal-transition table, returning *InvalidTransitionError
// for any attempted transition the state machine does not allow.
func (r *Registry) Mark(id ReactorID, newState ReactorState) error {
	rc := r.reactors[id]
	if rc == nil || rc.state == StateDead {
		return &InvalidTransitionError{ReactorID: id, From: StateDead, Op: "mark " + newState.String()}
	}
	if !legalTransitions[rc.state][newState] {
		return &InvalidTransitionError{ReactorID: id, From: rc.state, Op: "mark " + newState.String()}
	}
	rc.state = newState
	return nil
}

// Destroy sets id to dead and releases its continuation storage. The
// reactor record itself is kept (not deleted from the map) so its last
// terminal value remains readable via CurrentValue after death; Lookup
// callers that care must check Exists or the returned state. Destroy does
// not touch the dependency graph; callers must also call
// Graph.RemoveAllForReactor to satisfy the "no edge references a dead
// reactor" invariant.
func (r *Registry) Destroy(id ReactorID) {
	rc := r.reactors[id]
	if rc == nil || rc.state == StateDead {
		return
	}
	rc.state = StateDead
	rc.suspension = nil
	r.alive--
}

// Exists reports whether id currently names a live (non-dead) reactor.
func (r *Registry) Exists(id ReactorID) bool {
	rc := r.reactors[id]
	return rc != nil && rc.state != StateDead
}

// AliveCount returns the number of reactors currently not dead.
func (r *Registry) AliveCount() int {
	return r.alive
}

func (s *Suspension) String() string {
	return fmt.Sprintf("awaiting %s", s.Source)
}

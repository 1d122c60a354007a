package kernel

import (
	"fmt"
	"time"

	"github.com/crudbug/reactorkernel/kernel/emit"
)

// Engine is the single-threaded propagation engine: it owns the
// reactor registry, the dependency graph, and the activation work queue,
// and is the only thing that ever runs a reactor body. Nothing in this
// package spawns a goroutine except continuation.go's per-reactor body
// goroutines, and the engine never lets two of those run concurrently.
type Engine struct {
	registry *Registry
	graph    *Graph
	queue    *workQueue

	emitter emit.Emitter
	metrics *Metrics

	maxActivations int

	callGroups      map[callGroupID]*callGroup
	nextCallGroupID callGroupID

	chainSeq      uint64
	chainStart    time.Time
	chainActivity int
}

// NewEngine constructs an idle engine with no reactors. Apply options to
// attach an emitter, metrics collector, or activation watchdog.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{emitter: emit.NewNullEmitter()}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("kernel: applying option: %w", err)
		}
	}
	return &Engine{
		registry:       NewRegistry(),
		graph:          NewGraph(),
		queue:          newWorkQueue(),
		emitter:        cfg.emitter,
		metrics:        cfg.metrics,
		maxActivations: cfg.maxActivations,
		callGroups:     make(map[callGroupID]*callGroup),
	}, nil
}

// create allocates a fresh, unscheduled reactor.
func (e *Engine) create(body Body) ReactorID {
	rc := e.registry.Create(body)
	e.metrics.setReactorsAlive(e.registry.AliveCount())
	return rc.ID
}

// spawn enqueues id for its first activation, inheriting lineage from
// whatever reactor (if any) caused the spawn.
func (e *Engine) spawn(id ReactorID, lineage map[callGroupID]struct{}) error {
	rc := e.registry.Lookup(id)
	if rc == nil || rc.state != StateReady {
		return &InvalidTransitionError{ReactorID: id, From: stateOf(rc), Op: "spawn"}
	}
	e.enqueue(activation{
		kind:      activationStart,
		reactorID: id,
		orderKey:  computeOrderKey(ReactorSource(id), 0),
		lineage:   lineage,
	})
	return nil
}

// enqueue pushes act onto the work queue, reserving call-group membership
// for fresh activationStart entries up front; see reserveLineage.
func (e *Engine) enqueue(act activation) {
	if act.kind == activationStart {
		e.reserveLineage(act.lineage)
	}
	e.queue.push(act)
}

// call spawns r, tags it with a fresh call group, and suspends the caller
// until that group's pending count (every reactor transitively activated
// as part of r's sub-chain) drains to zero.
func (e *Engine) call(caller *Ctx, r ReactorID) (any, error) {
	rc := e.registry.Lookup(r)
	if rc == nil || rc.state != StateReady {
		return nil, &InvalidTransitionError{ReactorID: r, From: stateOf(rc), Op: "call"}
	}
	grp := e.newCallGroup(r)
	lineage := unionLineage(caller.lineageOf(), grp.id)
	e.enqueue(activation{
		kind:      activationStart,
		reactorID: r,
		orderKey:  computeOrderKey(ReactorSource(r), 0),
		lineage:   lineage,
	})
	return caller.Await(callGroupSource(grp.id), nil)
}

// link adds a permanent link edge. dst must already be a live reactor.
func (e *Engine) link(src SourceKey, dst ReactorID, filter Predicate, owner ReactorID) (EdgeID, error) {
	target := e.registry.Lookup(dst)
	if target == nil || target.state == StateDead {
		return 0, &InvalidTransitionError{ReactorID: dst, From: stateOf(target), Op: "link"}
	}
	edge := e.graph.AddLink(src, dst, filter, owner)
	return edge.ID, nil
}

func (e *Engine) unlink(src SourceKey, dst ReactorID) {
	e.graph.RemoveLink(src, dst)
}

// post fires a named event within the current chain.
func (e *Engine) post(name string, payload any, lineage map[callGroupID]struct{}) error {
	e.fireSource(EventSource(name), payload, OutcomeReturned, false, lineage)
	return nil
}

func (e *Engine) currentValue(id ReactorID) any {
	rc := e.registry.Lookup(id)
	if rc == nil {
		return nil
	}
	return rc.currentValue
}

// Create allocates a fresh, unscheduled reactor. It is the entry point an
// application driver uses to build a root reactor before calling Bootstrap.
func (e *Engine) Create(body Body) ReactorID { return e.create(body) }

// CurrentValue returns id's most recently produced terminal value, or nil
// if it has never returned one. Safe to call after id has died.
func (e *Engine) CurrentValue(id ReactorID) any { return e.currentValue(id) }

// Alive reports whether id is in any state other than dead.
func (e *Engine) Alive(id ReactorID) bool { return e.registry.Exists(id) }

// kill transitions target toward dead. A target that is ready, suspended,
// or zombie dies immediately; a target that is currently running (only
// possible for a self-kill, since the engine is single-threaded and
// nothing else can be running concurrently) is flagged and unwinds at its
// next suspension or return point.
func (e *Engine) kill(by, target ReactorID) error {
	rc := e.registry.Lookup(target)
	if rc == nil || rc.state == StateDead {
		return &InvalidTransitionError{ReactorID: target, From: StateDead, Op: "kill"}
	}
	if rc.state == StateRunning {
		rc.killRequested = true
		return nil
	}
	if rc.state == StateSuspended {
		e.graph.RemoveAwait(rc.suspension.AwaitEdgeID)
		e.drainUntilTerminal(rc)
		return nil
	}
	// StateReady or StateZombie: terminate directly without ever running.
	e.terminate(rc, OutcomeKilled, nil)
	return nil
}

// fireSource enqueues an activation for every edge currently fanning out
// from src, applying each edge's filter. onlyAwait restricts fan-out to
// await edges, used for failure/kill termination and the internal
// call-group completion source, so that link edges never key off them.
func (e *Engine) fireSource(src SourceKey, value any, outcome Outcome, onlyAwait bool, lineage map[callGroupID]struct{}) {
	edges := e.graph.Fanout(src)
	for i, edge := range edges {
		if onlyAwait && edge.Kind != EdgeAwait {
			continue
		}
		if edge.Filter != nil && !edge.Filter(value) {
			continue
		}
		act := activation{
			reactorID: edge.Target,
			value:     value,
			outcome:   outcome,
			orderKey:  computeOrderKey(src, i),
			lineage:   lineage,
		}
		if edge.Kind == EdgeAwait {
			act.kind = activationResume
			e.graph.RemoveAwait(edge.ID)
		} else {
			act.kind = activationStart
		}
		e.enqueue(act)
	}
}

// terminate moves rc to zombie then dead, releasing its edges, settling its
// call-group lineage, and firing its reactor-source fan-out. A failed or
// killed reactor never triggers its link-edge dependents, only reactors
// awaiting it directly.
func (e *Engine) terminate(rc *Reactor, outcome Outcome, value any) {
	if rc.state != StateZombie {
		_ = e.registry.Mark(rc.ID, StateZombie)
	}
	rc.lastOutcome = outcome
	if outcome == OutcomeReturned {
		rc.currentValue = value
	}

	// Dependents are enqueued while rc is still a zombie and its outgoing
	// edges still exist; only afterwards does it die and lose its edges.
	// Downstream activations inherit rc's own lineage, so a call()'s pending
	// count keeps tracking the chain as it cascades across link edges, not
	// just the direct spawn/call tree.
	switch outcome {
	case OutcomeReturned:
		e.fireSource(ReactorSource(rc.ID), value, outcome, false, rc.lineage)
	case OutcomeFailed:
		e.fireSource(ReactorSource(rc.ID), &ReactorFailure{ReactorID: rc.ID, Cause: asError(rc.ID, value)}, outcome, true, rc.lineage)
	case OutcomeKilled:
		e.fireSource(ReactorSource(rc.ID), nil, outcome, true, rc.lineage)
	}
	e.graph.RemoveAllForReactor(rc.ID)
	e.registry.Destroy(rc.ID)

	e.emit(rc.ID, "terminate", map[string]interface{}{"outcome": outcome.String()})
	e.metrics.countTermination(outcome)
	e.metrics.setReactorsAlive(e.registry.AliveCount())

	e.settleLineage(rc, outcome, value)
}

// handleBodyEvent interprets what a just-started or just-resumed body
// goroutine reported: it either suspended (register its await edge, unless
// the awaited source is already a dead reactor) or terminated (returned,
// failed, or was killed at its own next yield).
func (e *Engine) handleBodyEvent(rc *Reactor, ev bodyEvent) {
	switch ev.kind {
	case bodyYielded:
		if rc.killRequested {
			rc.suspension = &Suspension{carrier: rc.suspension.carrier}
			e.drainUntilTerminal(rc)
			return
		}
		if src := ev.await.source; src.Kind == SourceReactorID && !e.registry.Exists(src.ReactorID) {
			// The source can never fire again: registering the edge would
			// leave it dangling and suspend rc forever. Resume the body
			// immediately instead of ever marking rc suspended.
			c := rc.suspension.carrier
			next := c.resume(resumeMsg{
				outcome: outcomeInvalidTransition,
				value:   &InvalidTransitionError{ReactorID: src.ReactorID, From: StateDead, Op: "await"},
			})
			e.handleBodyEvent(rc, next)
			return
		}
		_ = e.registry.Mark(rc.ID, StateSuspended)
		edge := e.graph.AddAwait(ev.await.source, rc.ID, ev.await.filter, rc.ID)
		rc.suspension = &Suspension{Source: ev.await.source, Filter: ev.await.filter, AwaitEdgeID: edge.ID, carrier: rc.suspension.carrier}
		e.emit(rc.ID, "suspend", map[string]interface{}{"source": ev.await.source.String()})
	case bodyReturned:
		outcome := OutcomeReturned
		if rc.killRequested {
			outcome = OutcomeKilled
		}
		e.terminate(rc, outcome, ev.value)
	case bodyFailed:
		outcome := OutcomeFailed
		if rc.killRequested {
			outcome = OutcomeKilled
		}
		e.terminate(rc, outcome, ev.err)
	}
}

// drainUntilTerminal repeatedly resumes a suspended reactor with a Killed
// outcome until its body actually returns or fails, rather than suspending
// again. A body is free to catch the Killed error from Await and perform
// one more round of cleanup before unwinding; this keeps feeding it Killed
// on every subsequent suspension until it stops. The reactor always
// terminates as OutcomeKilled here regardless of what value or error the
// body's own return statement carried, since the kill was the engine's
// decision, not the body's.
func (e *Engine) drainUntilTerminal(rc *Reactor) {
	c := rc.suspension.carrier
	for {
		ev := c.resume(resumeMsg{outcome: OutcomeKilled})
		if ev.kind == bodyYielded {
			rc.suspension = &Suspension{carrier: c}
			continue
		}
		e.terminate(rc, OutcomeKilled, nil)
		return
	}
}

// process runs one activation to its next suspension or termination. This
// is the only place a reactor body goroutine is ever started or resumed,
// which is what keeps exactly one body active at a time.
func (e *Engine) process(act activation) {
	rc := e.registry.Lookup(act.reactorID)
	if rc == nil || rc.state == StateDead {
		if act.kind == activationStart {
			e.releaseLineage(act.lineage)
		}
		return
	}
	e.metrics.countActivation()
	e.chainActivity++

	switch act.kind {
	case activationStart:
		if rc.state != StateReady {
			e.releaseLineage(act.lineage)
			return
		}
		e.admitLineage(rc, act.lineage)
		_ = e.registry.Mark(rc.ID, StateRunning)
		ctx := &Ctx{eng: e, self: rc.ID}
		e.emit(rc.ID, "start", nil)
		carrier, ev := start(rc.body, ctx)
		rc.suspension = &Suspension{carrier: carrier}
		e.handleBodyEvent(rc, ev)

	case activationResume:
		if rc.state != StateSuspended {
			return
		}
		e.graph.RemoveAwait(rc.suspension.AwaitEdgeID)
		_ = e.registry.Mark(rc.ID, StateRunning)
		e.emit(rc.ID, "resume", nil)
		if rc.killRequested {
			e.drainUntilTerminal(rc)
			return
		}
		ev := rc.suspension.carrier.resume(resumeMsg{value: act.value, outcome: act.outcome})
		e.handleBodyEvent(rc, ev)
	}
}

// drain runs the work queue to quiescence: the engine's definition of a
// full propagation chain. It stops when the queue empties, or, if a
// watchdog is configured, when the chain exceeds its activation bound.
func (e *Engine) drain() error {
	for {
		act, ok := e.queue.pop()
		if !ok {
			return nil
		}
		if e.maxActivations > 0 && e.chainActivity >= e.maxActivations {
			return ErrChainNonTermination
		}
		e.metrics.setQueueDepth(e.queue.len())
		e.process(act)
	}
}

// Fire injects an external named event and runs the resulting propagation
// chain to completion. The engine does nothing between chains: every chain
// drains fully before the next external stimulus is accepted.
func (e *Engine) Fire(eventName string, payload any) error {
	e.chainSeq++
	e.chainActivity = 0
	e.chainStart = time.Now()
	e.emit(0, "chain_start", map[string]interface{}{"event": eventName})
	e.fireSource(EventSource(eventName), payload, OutcomeReturned, false, nil)
	err := e.drain()
	e.metrics.observeChain(e.chainStart)
	e.emit(0, "chain_end", nil)
	return err
}

// Bootstrap schedules rootID's first activation and drains the chain it
// starts, bringing an application's entry reactor to life before any
// external event arrives.
func (e *Engine) Bootstrap(rootID ReactorID) error {
	if err := e.spawn(rootID, nil); err != nil {
		return err
	}
	e.chainSeq++
	e.chainActivity = 0
	e.chainStart = time.Now()
	e.emit(0, "chain_start", nil)
	err := e.drain()
	e.metrics.observeChain(e.chainStart)
	e.emit(0, "chain_end", nil)
	return err
}

func (e *Engine) emit(id ReactorID, msg string, meta map[string]interface{}) {
	if e.emitter == nil {
		return
	}
	reactorID := ""
	if id != 0 {
		reactorID = fmt.Sprintf("%d", id)
	}
	e.emitter.Emit(emit.Event{
		ChainID:    fmt.Sprintf("%d", e.chainSeq),
		Activation: e.chainActivity,
		ReactorID:  reactorID,
		Msg:        msg,
		Meta:       meta,
	})
}

func stateOf(rc *Reactor) ReactorState {
	if rc == nil {
		return StateDead
	}
	return rc.state
}

// asError extracts the original error a failed reactor's body returned;
// bodyFailed always stores its error in a typed field, but terminate
// receives outcome payloads boxed as `any` so they can share a path with
// the returned-value case.
func asError(id ReactorID, value any) error {
	if err, ok := value.(error); ok {
		return err
	}
	return fmt.Errorf("kernel: reactor %d failed with non-error value %v", id, value)
}

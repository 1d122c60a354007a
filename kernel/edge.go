package kernel

import "fmt"

// Predicate is an opaque, pure test applied to a fired value before an edge
// is allowed to traverse. It receives the same value regardless of whether
// the edge's source is a reactor (terminal value) or an event (payload).
type Predicate func(value any) bool

// SourceKind distinguishes the two things an edge (or an await) can key off.
type SourceKind uint8

const (
	// SourceReactorID keys an edge off a reactor's termination.
	SourceReactorID SourceKind = iota
	// SourceEvent keys an edge off a named external or posted string event.
	SourceEvent
	// sourceCallGroup keys an edge off the internal completion signal
	// call() synthesizes to track a transitive sub-chain; see callgroup.go.
	// It is not part of the public kernel API surface.
	sourceCallGroup
)

// SourceKey is the tagged variant {ReactorID(u64), Event(Name)}: the
// dependency graph is a mapping from this variant to a set of outgoing
// edges.
type SourceKey struct {
	Kind      SourceKind
	ReactorID ReactorID
	Event     string
	groupID   callGroupID
}

// ReactorSource builds a SourceKey keyed off a reactor's termination.
func ReactorSource(id ReactorID) SourceKey { return SourceKey{Kind: SourceReactorID, ReactorID: id} }

// EventSource builds a SourceKey keyed off a named string event.
func EventSource(name string) SourceKey { return SourceKey{Kind: SourceEvent, Event: name} }

func callGroupSource(id callGroupID) SourceKey { return SourceKey{Kind: sourceCallGroup, groupID: id} }

func (s SourceKey) String() string {
	switch s.Kind {
	case SourceEvent:
		return "event:" + s.Event
	case sourceCallGroup:
		return fmt.Sprintf("callgroup:%d", s.groupID)
	default:
		return fmt.Sprintf("reactor:%d", s.ReactorID)
	}
}

// mapKey returns a comparable value suitable for use as a Go map key.
func (s SourceKey) mapKey() SourceKey { return s }

// EdgeKind distinguishes permanent link edges from temporary await edges.
type EdgeKind uint8

const (
	// EdgeLink is a permanent, user-controlled edge: it persists until
	// explicitly unlinked or its owning reactor dies.
	EdgeLink EdgeKind = iota
	// EdgeAwait is a temporary edge created by a running reactor's await
	// call. It is removed the instant its source fires.
	EdgeAwait
)

func (k EdgeKind) String() string {
	if k == EdgeAwait {
		return "await"
	}
	return "link"
}

// EdgeID is a stable handle to an edge, returned by the graph so callers can
// later remove it (Unlink, RemoveAwait) without re-deriving (src, dst).
type EdgeID uint64

// Edge is a directed dependency: when Source fires (and Filter, if set,
// admits the fired value), Target activates.
//
// Target is always a reactor id. For a link edge this means "start or
// resume the target the normal way". For an await edge it means "resume
// the suspended target with the fired value": the edge's target is simply
// the suspended reactor itself, since the registry already holds its saved
// continuation.
type Edge struct {
	ID     EdgeID
	Source SourceKey
	Target ReactorID
	Kind   EdgeKind
	Filter Predicate

	// Owner is the reactor that created this edge via link/await, used to
	// release edges when their creator dies even if the edge's own source
	// or target is a different reactor (e.g. link(eventName, other)).
	// Owner is the zero ReactorID for edges created outside any reactor
	// body (by the driver, wiring up the root application).
	Owner ReactorID
}

// Graph is the dependency graph: a mapping from source key to the set of
// outgoing edges, preserving insertion order for deterministic fan-out
// enumeration.
type Graph struct {
	bySource map[SourceKey][]*Edge
	byID     map[EdgeID]*Edge
	nextID   EdgeID
}

// NewGraph allocates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		bySource: make(map[SourceKey][]*Edge),
		byID:     make(map[EdgeID]*Edge),
	}
}

func (g *Graph) allocID() EdgeID {
	g.nextID++
	return g.nextID
}

// AddLink adds a permanent link edge. It is idempotent on (src, dst,
// EdgeLink): re-linking the same pair returns the existing edge rather than
// creating a duplicate when both filters are nil or both are non-nil (see
// sameFilter); two different non-nil filters count as the same edge.
func (g *Graph) AddLink(src SourceKey, dst ReactorID, filter Predicate, owner ReactorID) *Edge {
	for _, e := range g.bySource[src] {
		if e.Kind == EdgeLink && e.Target == dst && sameFilter(e.Filter, filter) {
			return e
		}
	}
	e := &Edge{ID: g.allocID(), Source: src, Target: dst, Kind: EdgeLink, Filter: filter, Owner: owner}
	g.insert(e)
	return e
}

// RemoveLink removes a matching link edge; a no-op if absent.
func (g *Graph) RemoveLink(src SourceKey, dst ReactorID) {
	edges := g.bySource[src]
	for i, e := range edges {
		if e.Kind == EdgeLink && e.Target == dst {
			g.removeAt(src, i)
			return
		}
	}
}

// AddAwait always creates a fresh await edge and returns its id so the
// caller (the engine, on behalf of a suspending reactor) can remove it
// later, either because it fired or because its owner was killed.
func (g *Graph) AddAwait(src SourceKey, resumeTarget ReactorID, filter Predicate, owner ReactorID) *Edge {
	e := &Edge{ID: g.allocID(), Source: src, Target: resumeTarget, Kind: EdgeAwait, Filter: filter, Owner: owner}
	g.insert(e)
	return e
}

// RemoveAwait removes the await edge with the given id, if it still exists.
func (g *Graph) RemoveAwait(id EdgeID) {
	e, ok := g.byID[id]
	if !ok || e.Kind != EdgeAwait {
		return
	}
	edges := g.bySource[e.Source]
	for i, cand := range edges {
		if cand.ID == id {
			g.removeAt(e.Source, i)
			return
		}
	}
}

// Fanout enumerates the edges currently registered for src, in the
// insertion order at the moment of enumeration. The returned slice is a
// snapshot: edges added or removed by reactors reacting to this fan-out do
// not retroactively change what has already been returned.
func (g *Graph) Fanout(src SourceKey) []*Edge {
	edges := g.bySource[src]
	if len(edges) == 0 {
		return nil
	}
	out := make([]*Edge, len(edges))
	copy(out, edges)
	return out
}

// RemoveAllForReactor drops every edge that references id as its source,
// target, or owner. It is called once a reactor reaches dead, enforcing the
// invariant that no edge anywhere references a dead reactor.
func (g *Graph) RemoveAllForReactor(id ReactorID) {
	for src, edges := range g.bySource {
		kept := edges[:0:0]
		for _, e := range edges {
			if e.Owner == id || e.Target == id || (e.Source.Kind == SourceReactorID && e.Source.ReactorID == id) {
				delete(g.byID, e.ID)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(g.bySource, src)
		} else {
			g.bySource[src] = kept
		}
	}
}

func (g *Graph) insert(e *Edge) {
	g.bySource[e.Source] = append(g.bySource[e.Source], e)
	g.byID[e.ID] = e
}

func (g *Graph) removeAt(src SourceKey, i int) {
	edges := g.bySource[src]
	e := edges[i]
	delete(g.byID, e.ID)
	edges = append(edges[:i], edges[i+1:]...)
	if len(edges) == 0 {
		delete(g.bySource, src)
	} else {
		g.bySource[src] = edges
	}
}

// sameFilter compares two predicates for the idempotency check AddLink
// needs. Go funcs are not comparable in general, but both are nil or both
// non-nil is the only distinction AddLink's idempotency promise relies on
// in practice (re-running the same link() call site).
func sameFilter(a, b Predicate) bool {
	return (a == nil) == (b == nil)
}

package kernel

// callGroupID identifies an in-flight call(). A call group tracks every
// reactor transitively spawned as a reaction to its root reactor, so that
// Call can resolve only once that whole sub-chain has drained, rather than
// as soon as the root reactor alone terminates.
//
// Tagging rule: a reactor is a member of a call group the instant it is
// first activated (start), inheriting every group its activating edge's
// source reactor belonged to, plus the group freshly created for the call
// that spawned it, if any. Membership is permanent for that reactor's
// lifetime; it only ever shrinks a group's pending count once, on death.
type callGroupID uint64

// callGroup is the bookkeeping record for one in-flight call(). pending
// counts the number of group members (per the tagging rule above) that
// have not yet reached dead; when it reaches zero the group fires its
// synthetic completion source, resolving every reactor awaiting it.
type callGroup struct {
	id       callGroupID
	rootID   ReactorID
	pending  int
	captured bool
	value    any
	outcome  Outcome
}

func (e *Engine) newCallGroup(root ReactorID) *callGroup {
	e.nextCallGroupID++
	g := &callGroup{id: e.nextCallGroupID, rootID: root}
	e.callGroups[g.id] = g
	return g
}

// unionLineage returns a new set containing every tag in base plus add.
// base may be nil.
func unionLineage(base map[callGroupID]struct{}, add callGroupID) map[callGroupID]struct{} {
	out := make(map[callGroupID]struct{}, len(base)+1)
	for k := range base {
		out[k] = struct{}{}
	}
	out[add] = struct{}{}
	return out
}

// reserveLineage bumps every live group's pending count for a freshly
// enqueued activationStart, before the activation is ever popped back off
// the queue. Reserving at enqueue time rather than at run time closes a
// race where a terminating reactor's own settleLineage could see a group's
// pending count reach zero before the very activation it just fanned out
// to had a chance to join the group.
func (e *Engine) reserveLineage(lineage map[callGroupID]struct{}) {
	for g := range lineage {
		if grp, ok := e.callGroups[g]; ok {
			grp.pending++
		}
	}
}

// releaseLineage undoes a reservation for an activationStart that was
// enqueued but never actually ran its body (its target had already left
// state ready by the time the activation was popped).
func (e *Engine) releaseLineage(lineage map[callGroupID]struct{}) {
	for g := range lineage {
		e.decrementGroup(g, OutcomeKilled, nil, false)
	}
}

// admitLineage is called exactly once per reactor, at its first activation,
// to record its permanent call-group membership. Pending counts were
// already bumped by reserveLineage when this activation was enqueued.
func (e *Engine) admitLineage(rc *Reactor, lineage map[callGroupID]struct{}) {
	rc.lineage = lineage
}

// settleLineage is called exactly once per reactor, when it reaches dead,
// to capture the root outcome (if this reactor was a call's direct target)
// and shrink every group's pending count, firing completion for any group
// that has fully drained.
func (e *Engine) settleLineage(rc *Reactor, outcome Outcome, value any) {
	for g := range rc.lineage {
		var capture *ReactorFailure
		isRoot := false
		if grp, ok := e.callGroups[g]; ok && grp.rootID == rc.ID {
			isRoot = true
			if outcome == OutcomeFailed {
				capture = &ReactorFailure{ReactorID: rc.ID, Cause: asError(rc.ID, value)}
			}
		}
		if isRoot {
			captureValue := value
			if capture != nil {
				captureValue = capture
			}
			e.decrementGroup(g, outcome, captureValue, true)
		} else {
			e.decrementGroup(g, outcome, value, false)
		}
	}
}

// decrementGroup shrinks one group's pending count by one, firing its
// synthetic completion source once it reaches zero. root is true only when
// the member being settled is the group's own call() target, in which case
// value/outcome become the group's captured result.
func (e *Engine) decrementGroup(g callGroupID, outcome Outcome, value any, root bool) {
	grp, ok := e.callGroups[g]
	if !ok {
		return
	}
	if root {
		grp.captured = true
		grp.outcome = outcome
		grp.value = value
	}
	grp.pending--
	if grp.pending <= 0 {
		delete(e.callGroups, g)
		result := grp.value
		resultOutcome := grp.outcome
		if !grp.captured {
			// The root was killed before ever running, or its own fanout
			// never ran (defensive fallback; normal call() always captures).
			resultOutcome = OutcomeKilled
		}
		e.fireSource(callGroupSource(g), result, resultOutcome, true, nil)
	}
}

package kernel

// Ctx is handed to a running reactor body. It binds the body to its own
// reactor id and exposes every primitive available to a running reactor:
// creating and spawning other reactors, linking and awaiting sources, and
// killing reactors.
type Ctx struct {
	eng     *Engine
	self    ReactorID
	carrier *carrier
}

// Self returns the id of the reactor this context belongs to.
func (c *Ctx) Self() ReactorID { return c.self }

// Create allocates a fresh reactor bound to body. It is not scheduled.
func (c *Ctx) Create(body Body) ReactorID {
	return c.eng.create(body)
}

// Spawn enqueues r as a new activation and returns immediately; the caller
// and r run concurrently within the same propagation chain (fork
// semantics), with no guaranteed relative order.
func (c *Ctx) Spawn(r ReactorID) error {
	return c.eng.spawn(r, c.lineageOf())
}

// Call is spawn(r) followed immediately by await(r): it returns only once r
// and the entire sub-chain transitively rooted at r have drained, delivering
// r's own terminal value, ReactorFailure, or ErrKilled.
func (c *Ctx) Call(r ReactorID) (any, error) {
	return c.eng.call(c, r)
}

// Kill marks r dead (or schedules its death if r is still running),
// removing its edges; every reactor awaiting r resumes with ErrKilled.
func (c *Ctx) Kill(r ReactorID) error {
	return c.eng.kill(c.self, r)
}

// Link adds a permanent link edge from src to dst, owned by the calling
// reactor. dst may be an existing reactor id (Goto) or a fresh body, which
// is auto-created and linked in one step via LinkBody.
func (c *Ctx) Link(src SourceKey, dst ReactorID, filter Predicate) (EdgeID, error) {
	return c.eng.link(src, dst, filter, c.self)
}

// LinkBody auto-creates a reactor for body and links src to it.
func (c *Ctx) LinkBody(src SourceKey, body Body, filter Predicate) (ReactorID, EdgeID, error) {
	id := c.eng.create(body)
	edgeID, err := c.eng.link(src, id, filter, c.self)
	return id, edgeID, err
}

// Unlink removes the matching link edge, if any.
func (c *Ctx) Unlink(src SourceKey, dst ReactorID) {
	c.eng.unlink(src, dst)
}

// Await suspends the caller until cond fires and filter (if any) admits the
// fired value, returning that value. If the awaited reactor is killed, it
// returns ErrKilled; if it fails, it returns the *ReactorFailure; if cond
// names a reactor that is already dead, it returns an *InvalidTransitionError
// immediately, since a source that can never fire again would otherwise
// suspend the caller forever.
func (c *Ctx) Await(cond SourceKey, filter Predicate) (any, error) {
	msg := c.carrier.await(awaitSpec{source: cond, filter: filter})
	switch msg.outcome {
	case OutcomeKilled:
		return nil, ErrKilled
	case OutcomeFailed:
		if failure, ok := msg.value.(*ReactorFailure); ok {
			return nil, failure
		}
		return nil, ErrKilled
	case outcomeInvalidTransition:
		if err, ok := msg.value.(error); ok {
			return nil, err
		}
		return nil, ErrKilled
	default:
		return msg.value, nil
	}
}

// Post fires an event within the same chain: every matching edge is
// enqueued immediately, before Post returns.
func (c *Ctx) Post(name string, payload any) error {
	return c.eng.post(name, payload, c.lineageOf())
}

// CurrentValue returns r's most recently produced terminal value without
// suspending the caller.
func (c *Ctx) CurrentValue(r ReactorID) any {
	return c.eng.currentValue(r)
}

func (c *Ctx) lineageOf() map[callGroupID]struct{} {
	rc := c.eng.registry.Lookup(c.self)
	if rc == nil {
		return nil
	}
	return rc.lineage
}

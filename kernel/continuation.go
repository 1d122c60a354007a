package kernel

import "fmt"

// Body is a reactor's suspendable computation. It receives a *Ctx bound to
// its own reactor id and the engine, and produces a terminal value or an
// error. A body suspends by calling ctx.Await, which blocks the calling
// goroutine (but not the engine) until the engine resumes it.
type Body func(ctx *Ctx) (any, error)

// carrier is the continuation carrier: it runs a reactor body on its
// own goroutine and hands control back to the engine at every suspension
// point. Go has no stackful coroutines, so a goroutine paired with a
// rendezvous channel is the idiomatic substitute — the body's goroutine is
// blocked on toBody for the entire time control belongs to the engine, and
// the engine blocks on fromBody for the entire time control belongs to the
// body. Exactly one side ever runs at once, which is how the kernel's
// single-active-body guarantee is implemented in a language without
// first-class continuations.
type carrier struct {
	toBody   chan resumeMsg
	fromBody chan bodyEvent
}

type resumeMsg struct {
	value   any
	outcome Outcome // OutcomeReturned delivers value normally; OutcomeFailed/OutcomeKilled deliver a sentinel
}

type bodyEventKind uint8

const (
	bodyYielded bodyEventKind = iota
	bodyReturned
	bodyFailed
)

type bodyEvent struct {
	kind   bodyEventKind
	await  awaitSpec
	value  any
	err    error
}

type awaitSpec struct {
	source SourceKey
	filter Predicate
}

// start launches body on a fresh goroutine and blocks until it either
// yields at its first await or terminates without ever suspending. ctx must
// already be bound to a reactor id; start sets ctx.carrier so that Await
// calls inside body know where to rendezvous. It returns the carrier (for
// later resumption, if the body suspended) alongside that first event.
func start(body Body, ctx *Ctx) (*carrier, bodyEvent) {
	c := &carrier{
		toBody:   make(chan resumeMsg),
		fromBody: make(chan bodyEvent),
	}
	ctx.carrier = c
	go runBody(body, ctx, c)
	return c, <-c.fromBody
}

func runBody(body Body, ctx *Ctx, c *carrier) {
	defer func() {
		if r := recover(); r != nil {
			c.fromBody <- bodyEvent{kind: bodyFailed, err: fmt.Errorf("kernel: reactor body panicked: %v", r)}
		}
	}()
	v, err := body(ctx)
	if err != nil {
		c.fromBody <- bodyEvent{kind: bodyFailed, err: err}
	} else {
		c.fromBody <- bodyEvent{kind: bodyReturned, value: v}
	}
}

// resume delivers value (or a Killed/Failed sentinel) to a suspended body
// and blocks until it yields again or terminates.
func (c *carrier) resume(msg resumeMsg) bodyEvent {
	c.toBody <- msg
	return <-c.fromBody
}

// await is called from within a running reactor body (via Ctx.Await) to
// suspend. It hands control back to the engine and blocks until resumed.
func (c *carrier) await(spec awaitSpec) resumeMsg {
	c.fromBody <- bodyEvent{kind: bodyYielded, await: spec}
	return <-c.toBody
}

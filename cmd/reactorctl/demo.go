package main

import "github.com/crudbug/reactorkernel/kernel"

// buildCounter returns the demo application's root reactor body: it loops
// awaiting "tick", tallying either +1 or a payload int delta, until it is
// killed (by the "stop" reactor linked in below) or an await itself fails.
// Kill delivers ErrKilled straight out of the pending Await call, so the
// loop's own error check is what ends it; the engine still records the
// termination as killed rather than failed, regardless of the error this
// body happens to return.
func buildCounter() kernel.Body {
	return func(ctx *kernel.Ctx) (any, error) {
		if _, _, err := ctx.LinkBody(kernel.EventSource("stop"), buildStopper(ctx.Self()), nil); err != nil {
			return nil, err
		}
		count := 0
		for {
			v, err := ctx.Await(kernel.EventSource("tick"), nil)
			if err != nil {
				return count, err
			}
			switch delta := v.(type) {
			case int:
				count += delta
			default:
				count++
			}
		}
	}
}

// buildStopper returns a reactor body that, once "stop" fires, kills
// counterID and returns. It is link()ed to the "stop" event by the CLI's
// application wiring rather than awaiting it directly, so it only ever
// runs once.
func buildStopper(counterID kernel.ReactorID) kernel.Body {
	return func(ctx *kernel.Ctx) (any, error) {
		return nil, ctx.Kill(counterID)
	}
}

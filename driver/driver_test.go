package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crudbug/reactorkernel/kernel"
)

func counterBody() kernel.Body {
	return func(ctx *kernel.Ctx) (any, error) {
		count := 0
		for {
			v, err := ctx.Await(kernel.EventSource("tick"), nil)
			if err != nil {
				return count, err
			}
			if v == nil {
				count++
				continue
			}
			if delta, ok := v.(int); ok {
				count += delta
				continue
			}
			return count, nil
		}
	}
}

func TestStartAndStep(t *testing.T) {
	d := New()
	id, err := d.Start(counterBody())
	require.NoError(t, err)

	state, err := d.State(id)
	require.NoError(t, err)
	assert.Equal(t, AppReady, state)

	state, err = d.Step(id, "tick", 3)
	require.NoError(t, err)
	assert.Equal(t, AppReady, state)

	state, err = d.Step(id, "tick", "stop")
	require.NoError(t, err)
	assert.Equal(t, AppTerminated, state)

	value, err := d.Value(id)
	require.NoError(t, err)
	assert.Equal(t, 3, value)
}

// TestLoopIsStartPlusStep checks that Loop produces the same terminal value
// as manually driving Start/Step with the same event sequence, since Loop
// is defined as nothing more than that.
func TestLoopIsStartPlusStep(t *testing.T) {
	events := []struct {
		name    string
		payload any
	}{
		{"tick", 1},
		{"tick", 2},
		{"tick", "stop"},
	}
	i := 0
	next := func(state AppState) (string, any, bool) {
		if i >= len(events) {
			return "", nil, false
		}
		ev := events[i]
		i++
		return ev.name, ev.payload, true
	}

	d := New()
	loopValue, err := d.Loop(counterBody(), next)
	require.NoError(t, err)

	d2 := New()
	id, err := d2.Start(counterBody())
	require.NoError(t, err)
	for _, ev := range events {
		_, err := d2.Step(id, ev.name, ev.payload)
		require.NoError(t, err)
	}
	manualValue, err := d2.Value(id)
	require.NoError(t, err)

	assert.Equal(t, manualValue, loopValue)
	assert.Equal(t, 3, loopValue)
}

func TestUnknownAppID(t *testing.T) {
	d := New()
	_, err := d.Step("does-not-exist", "tick", nil)
	assert.ErrorIs(t, err, ErrUnknownApp)
}

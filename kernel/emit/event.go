package emit

// Event represents an observability event emitted during propagation.
//
// Events provide detailed insight into chain execution:
//   - Reactor start/suspend/resume/terminate
//   - Failures and kills, as the outcome of a terminate event
//   - Chain boundaries (chain_start, chain_end)
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Store in time-series databases
//   - Trigger alerts
type Event struct {
	// ChainID identifies the propagation chain that emitted this event.
	ChainID string

	// Activation is the sequential activation number within the chain
	// (1-indexed). Zero for chain_start; chain_end carries the number of
	// activations the chain processed.
	Activation int

	// ReactorID identifies which reactor emitted this event, formatted as a
	// decimal string. Empty for chain-level events.
	ReactorID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "outcome": returned, failed, or killed
	//   - "error": error details
	//   - "source": the SourceKey string a suspending reactor awaits
	Meta map[string]interface{}
}

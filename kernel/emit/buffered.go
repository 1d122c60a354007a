package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory.
//
// This emitter captures all events and provides query capabilities for
// chain history analysis. Events are organized by chainID for efficient
// retrieval and filtering.
//
// Features:
//   - Thread-safe concurrent access
//   - Query by chainID with optional filtering
//   - Filter by reactorID, message, activation range
//   - Clear events by chainID or all events
//
// Use cases:
//   - Development and debugging
//   - Testing and validation
//   - Real-time monitoring dashboards
//   - Post-chain analysis
//
// Warning: This emitter stores all events in memory. For production
// deployments with long-running chains or high event volume, consider
// using a persistent storage backend or implement event rotation/cleanup.
//
// Example usage:
//
//	// Create buffered emitter for testing
//	emitter := emit.NewBufferedEmitter()
//	eng, _ := kernel.NewEngine(kernel.WithEmitter(emitter))
//
//	// Fire an event that starts a chain (the engine's first chain has ID "1")
//	eng.Fire("tick", nil)
//
//	// Query chain history
//	allEvents := emitter.GetHistory("1")
//	terminations := emitter.GetHistoryWithFilter("1", emit.HistoryFilter{Msg: "terminate"})
//
//	// Clean up old chains
//	emitter.Clear("1")
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // chainID -> events
}

// HistoryFilter specifies criteria for filtering chain history.
//
// All filter fields are optional. When multiple fields are set, they are
// combined with AND logic (all conditions must match).
//
// Fields:
//   - ReactorID: Filter by specific reactor
//   - Msg: Filter by message type (e.g., "start", "fail")
//   - MinActivation: Filter events with activation >= MinActivation (nil = no lower bound)
//   - MaxActivation: Filter events with activation <= MaxActivation (nil = no upper bound)
//
// Example usage:
//
//	// Get all errors from a specific reactor
//	filter := emit.HistoryFilter{
//		ReactorID: "3",
//		Msg:    "fail",
//	}
//	errors := emitter.GetHistoryWithFilter("chain-1", filter)
//
//	// Get events from activations 5-10
//	minAct, maxAct := 5, 10
//	filter := emit.HistoryFilter{
//		MinActivation: &minAct,
//		MaxActivation: &maxAct,
//	}
//	activationEvents := emitter.GetHistoryWithFilter("chain-1", filter)
type HistoryFilter struct {
	ReactorID     string // Filter by reactor ID (empty = no filter)
	Msg           string // Filter by message (empty = no filter)
	MinActivation *int   // Minimum activation number (nil = no filter)
	MaxActivation *int   // Maximum activation number (nil = no filter)
}

// NewBufferedEmitter creates a new BufferedEmitter.
//
// Returns a BufferedEmitter that stores all events in memory and provides
// query capabilities. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
//
// Events are organized by chainID for efficient retrieval. This method is
// thread-safe and can be called concurrently from multiple goroutines.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.ChainID] = append(b.events[event.ChainID], event)
}

// EmitBatch stores every event in the batch, in order, and returns nil.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, event := range events {
		b.events[event.ChainID] = append(b.events[event.ChainID], event)
	}
	return nil
}

// Flush is a no-op: events are stored as soon as they are emitted.
func (b *BufferedEmitter) Flush(_ context.Context) error {
	return nil
}

// GetHistory retrieves all events for a specific chainID.
//
// Returns events in the order they were emitted. Returns an empty slice
// if no events exist for the given chainID.
//
// This method is thread-safe and returns a copy of the events to prevent
// concurrent modification issues.
//
// Example:
//
//	events := emitter.GetHistory("chain-1")
//	for _, event := range events {
//		fmt.Printf("[%s] %s: %s\n", event.ChainID, event.ReactorID, event.Msg)
//	}
func (b *BufferedEmitter) GetHistory(chainID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[chainID]
	if events == nil {
		return []Event{} // Return empty slice instead of nil
	}

	// Return a copy to prevent external modification
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter retrieves filtered events for a specific chainID.
//
// Applies the provided filter criteria to select matching events. All filter
// conditions must match for an event to be included (AND logic).
//
// Returns events in the order they were emitted. Returns an empty slice if
// no events match the filter.
//
// This method is thread-safe and returns a copy of the events.
//
// Example:
//
//	// Get error events from reactor "3"
//	filter := emit.HistoryFilter{
//		ReactorID: "3",
//		Msg:    "fail",
//	}
//	errors := emitter.GetHistoryWithFilter("chain-1", filter)
//
//	// Get events from activations 10-20
//	minAct, maxAct := 10, 20
//	filter := emit.HistoryFilter{
//		MinActivation: &minAct,
//		MaxActivation: &maxAct,
//	}
//	activationEvents := emitter.GetHistoryWithFilter("chain-1", filter)
func (b *BufferedEmitter) GetHistoryWithFilter(chainID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[chainID]
	if events == nil {
		return []Event{}
	}

	// If filter is empty, return all events
	if filter.ReactorID == "" && filter.Msg == "" && filter.MinActivation == nil && filter.MaxActivation == nil {
		result := make([]Event, len(events))
		copy(result, events)
		return result
	}

	// Apply filters
	var result []Event
	for _, event := range events {
		if !b.matchesFilter(event, filter) {
			continue
		}
		result = append(result, event)
	}

	if result == nil {
		return []Event{} // Return empty slice instead of nil
	}
	return result
}

// matchesFilter checks if an event matches the filter criteria.
func (b *BufferedEmitter) matchesFilter(event Event, filter HistoryFilter) bool {
	// Filter by ReactorID
	if filter.ReactorID != "" && event.ReactorID != filter.ReactorID {
		return false
	}

	// Filter by Msg
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}

	// Filter by MinActivation
	if filter.MinActivation != nil && event.Activation < *filter.MinActivation {
		return false
	}

	// Filter by MaxActivation
	if filter.MaxActivation != nil && event.Activation > *filter.MaxActivation {
		return false
	}

	return true
}

// Clear removes stored events.
//
// If chainID is non-empty, clears only events for that specific chain.
// If chainID is empty, clears all stored events across all chains.
//
// This method is thread-safe and can be called concurrently.
//
// Example:
//
//	// Clear specific chain
//	emitter.Clear("chain-1")
//
//	// Clear all chains
//	emitter.Clear("")
func (b *BufferedEmitter) Clear(chainID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if chainID == "" {
		// Clear all events
		b.events = make(map[string][]Event)
	} else {
		// Clear specific chainID
		delete(b.events, chainID)
	}
}

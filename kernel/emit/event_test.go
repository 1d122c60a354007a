package emit

import (
	"testing"
	"time"
)

// TestEvent_Struct verifies Event struct fields.
func TestEvent_Struct(t *testing.T) {
	t.Run("complete event with all fields", func(t *testing.T) {
		meta := map[string]interface{}{
			"duration_ms": 125,
			"retry":       false,
		}

		event := Event{
			ChainID:  "chain-1",
			Activation:   3,
			ReactorID: "process-node",
			Msg:    "Processing completed successfully",
			Meta:   meta,
		}

		if event.ChainID != "chain-1" {
			t.Errorf("expected ChainID = 'chain-1', got %q", event.ChainID)
		}
		if event.Activation != 3 {
			t.Errorf("expected Activation = 3, got %d", event.Activation)
		}
		if event.ReactorID != "process-node" {
			t.Errorf("expected ReactorID = 'process-node', got %q", event.ReactorID)
		}
		if event.Msg != "Processing completed successfully" {
			t.Errorf("expected Msg = 'Processing completed successfully', got %q", event.Msg)
		}
		if event.Meta["duration_ms"] != 125 {
			t.Errorf("expected Meta['duration_ms'] = 125, got %v", event.Meta["duration_ms"])
		}
	})

	t.Run("minimal event", func(t *testing.T) {
		event := Event{
			ChainID: "run-002",
			Msg:   "Started",
		}

		if event.Activation != 0 {
			t.Errorf("expected Activation = 0 (zero value), got %d", event.Activation)
		}
		if event.ReactorID != "" {
			t.Errorf("expected ReactorID = \"\" (zero value), got %q", event.ReactorID)
		}
		if event.Meta != nil {
			t.Error("expected Meta = nil (zero value)")
		}
	})

	t.Run("event with metadata", func(t *testing.T) {
		event := Event{
			ChainID:  "run-003",
			Activation:   1,
			ReactorID: "start",
			Msg:    "Execution started",
			Meta: map[string]interface{}{
				"timestamp": time.Now().Unix(),
				"user_id":   "user-123",
				"tags":      []string{"production", "high-priority"},
			},
		}

		if event.Meta["user_id"] != "user-123" {
			t.Errorf("expected user_id = 'user-123', got %v", event.Meta["user_id"])
		}

		tags, ok := event.Meta["tags"].([]string)
		if !ok {
			t.Fatal("expected tags to be []string")
		}
		if len(tags) != 2 {
			t.Errorf("expected 2 tags, got %d", len(tags))
		}
	})

	t.Run("zero value event", func(t *testing.T) {
		var event Event

		if event.ChainID != "" {
			t.Errorf("expected zero value ChainID, got %q", event.ChainID)
		}
		if event.Activation != 0 {
			t.Errorf("expected zero value Activation, got %d", event.Activation)
		}
		if event.ReactorID != "" {
			t.Errorf("expected zero value ReactorID, got %q", event.ReactorID)
		}
		if event.Msg != "" {
			t.Errorf("expected zero value Msg, got %q", event.Msg)
		}
		if event.Meta != nil {
			t.Error("expected zero value Meta to be nil")
		}
	})
}

// TestEvent_UseCases verifies common event patterns.
func TestEvent_UseCases(t *testing.T) {
	t.Run("node start event", func(t *testing.T) {
		event := Event{
			ChainID:  "chain-1",
			Activation:   1,
			ReactorID: "llm-call",
			Msg:    "Starting LLM call",
		}

		if event.ReactorID != "llm-call" {
			t.Errorf("expected ReactorID = 'llm-call', got %q", event.ReactorID)
		}
	})

	t.Run("node complete event", func(t *testing.T) {
		event := Event{
			ChainID:  "chain-1",
			Activation:   1,
			ReactorID: "llm-call",
			Msg:    "LLM call completed",
			Meta: map[string]interface{}{
				"tokens": 150,
				"cost":   0.003,
			},
		}

		if event.Meta["tokens"] != 150 {
			t.Errorf("expected tokens = 150, got %v", event.Meta["tokens"])
		}
	})

	t.Run("error event", func(t *testing.T) {
		event := Event{
			ChainID:  "chain-1",
			Activation:   2,
			ReactorID: "validator",
			Msg:    "Validation failed: invalid input",
			Meta: map[string]interface{}{
				"error_code": "INVALID_INPUT",
				"retryable":  true,
			},
		}

		if event.Meta["retryable"] != true {
			t.Error("expected retryable = true")
		}
	})

	t.Run("checkpoint event", func(t *testing.T) {
		event := Event{
			ChainID: "chain-1",
			Activation:  5,
			Msg:   "Checkpoint saved",
			Meta: map[string]interface{}{
				"checkpoint_id": "cp-after-validation",
				"state_size":    1024,
			},
		}

		cpID, ok := event.Meta["checkpoint_id"].(string)
		if !ok || cpID != "cp-after-validation" {
			t.Errorf("expected checkpoint_id = 'cp-after-validation', got %v", cpID)
		}
	})
}

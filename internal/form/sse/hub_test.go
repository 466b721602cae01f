package sse

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()

	c1 := &Client{ID: "c1", UserID: "u1", Events: make(chan Event, 4)}
	c2 := &Client{ID: "c2", UserID: "u2", Events: make(chan Event, 4)}
	hub.Register(c1)
	hub.Register(c2)
	if hub.ClientCount() != 2 {
		t.Fatalf("Expected 2 clients, got %d", hub.ClientCount())
	}

	hub.BroadcastChange(EventSubmissionCreated, map[string]interface{}{"submission_id": "s1"})

	for _, c := range []*Client{c1, c2} {
		select {
		case ev := <-c.Events:
			if ev.EventType != EventSubmissionCreated {
				t.Errorf("Expected %s, got %s", EventSubmissionCreated, ev.EventType)
			}
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				t.Fatalf("Payload is not JSON: %v", err)
			}
			if payload["submission_id"] != "s1" {
				t.Errorf("Unexpected payload: %v", payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("Client %s did not receive the event", c.ID)
		}
	}

	hub.Unregister("c1")
	if hub.ClientCount() != 1 {
		t.Fatalf("Expected 1 client after unregister, got %d", hub.ClientCount())
	}

	// Unregistering twice must not panic
	hub.Unregister("c1")
}

func TestHubDropsEventsForSlowClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{ID: "slow", UserID: "u1", Events: make(chan Event, 1)}
	hub.Register(slow)

	// Fill the buffer, then broadcast more; the hub must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.BroadcastChange(EventSubmissionUpdated, map[string]interface{}{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}

	if len(slow.Events) != 1 {
		t.Errorf("Expected exactly the buffered event, got %d", len(slow.Events))
	}
}

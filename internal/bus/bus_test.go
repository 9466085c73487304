package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(TopicCandidateAccepted, "generation-pipeline", map[string]any{"id": "c1"})

	if event.ID == "" {
		t.Error("NewEvent() should assign an ID")
	}
	if event.Type != TopicCandidateAccepted {
		t.Errorf("Type = %s, want %s", event.Type, TopicCandidateAccepted)
	}
	if event.Source != "generation-pipeline" {
		t.Errorf("Source = %s", event.Source)
	}
	if event.Timestamp == 0 {
		t.Error("NewEvent() should set a timestamp")
	}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	var received atomic.Int32
	var wg sync.WaitGroup

	// Subscribe to topic
	err := bus.Subscribe(context.Background(), TopicCandidateAccepted, func(ctx context.Context, event Event) error {
		received.Add(1)
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Publish events
	wg.Add(3)
	for i := 0; i < 3; i++ {
		err := bus.Publish(context.Background(), TopicCandidateAccepted, NewEvent(TopicCandidateAccepted, "test", i))
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	// Wait for handlers
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Success
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for events")
	}

	if got := received.Load(); got != 3 {
		t.Errorf("Received %d events, want 3", got)
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	var count1, count2 atomic.Int32
	var wg sync.WaitGroup

	// First subscriber
	bus.Subscribe(context.Background(), TopicPipelineCompleted, func(ctx context.Context, event Event) error {
		count1.Add(1)
		wg.Done()
		return nil
	})

	// Second subscriber
	bus.Subscribe(context.Background(), TopicPipelineCompleted, func(ctx context.Context, event Event) error {
		count2.Add(1)
		wg.Done()
		return nil
	})

	// Publish one event - both subscribers should receive
	wg.Add(2)
	bus.Publish(context.Background(), TopicPipelineCompleted, NewEvent(TopicPipelineCompleted, "test", nil))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timeout")
	}

	if count1.Load() != 1 || count2.Load() != 1 {
		t.Errorf("Expected both subscribers to receive 1 event, got %d and %d", count1.Load(), count2.Load())
	}
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	// Publishing to a topic with no subscribers should not error
	err := bus.Publish(context.Background(), "empty.topic", NewEvent("empty.topic", "test", nil))
	if err != nil {
		t.Errorf("Publish() to empty topic error = %v", err)
	}
}

func TestMemoryBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewMemoryBus(nil)
	defer bus.Close()

	var wg sync.WaitGroup
	bus.Subscribe(context.Background(), TopicCandidateRejected, func(ctx context.Context, event Event) error {
		defer wg.Done()
		return errors.New("handler boom")
	})

	wg.Add(1)
	if err := bus.Publish(context.Background(), TopicCandidateRejected, NewEvent(TopicCandidateRejected, "test", nil)); err != nil {
		t.Errorf("Publish() error = %v, handler errors must not fail publish", err)
	}
	wg.Wait()
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(nil)
	bus.Close()

	if err := bus.Publish(context.Background(), "t", NewEvent("t", "test", nil)); err == nil {
		t.Error("Publish() on closed bus should error")
	}
	if err := bus.Subscribe(context.Background(), "t", func(context.Context, Event) error { return nil }); err == nil {
		t.Error("Subscribe() on closed bus should error")
	}
}

func TestParseKafkaBrokers(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{"a:9092, b:9092,c:9092", 3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseKafkaBrokers(tt.input)
			if len(got) != tt.want {
				t.Errorf("ParseKafkaBrokers(%q) returned %d brokers, want %d", tt.input, len(got), tt.want)
			}
			for _, b := range got {
				if b != "" && (b[0] == ' ' || b[len(b)-1] == ' ') {
					t.Errorf("broker %q not trimmed", b)
				}
			}
		})
	}
}

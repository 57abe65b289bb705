package stream_test

import (
	"context"
	"testing"
	"time"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/stream"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	s := stream.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	if s.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", s.Subscribers())
	}

	s.Publish(audit.Entry{ID: "e1", EventType: "timesheet.created"})

	select {
	case got := <-ch:
		if got.ID != "e1" {
			t.Fatalf("entry id = %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
}

func TestUnsubscribeOnContextDone(t *testing.T) {
	s := stream.New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	// The channel closes once the context ends.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if s.Subscribers() != 0 {
					t.Fatalf("subscribers = %d", s.Subscribers())
				}
				return
			}
		case <-deadline:
			t.Fatal("channel never closed")
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := stream.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Publish(audit.Entry{ID: "e"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher stalled on a slow subscriber")
	}
}

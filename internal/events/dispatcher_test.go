package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "IT-2026-0001"})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	if err := NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventTicketReplyAdded}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

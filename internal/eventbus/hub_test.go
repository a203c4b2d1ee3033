package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestHubPublishDeliversToSubscriber(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, 4)
	h.Publish(Event{Type: TypeAchievementUnlocked, Data: map[string]any{"id": "first_view"}})

	select {
	case evt := <-ch:
		if evt.Type != TypeAchievementUnlocked || evt.Data["id"] != "first_view" {
			t.Fatalf("evt=%+v, want achievement_unlocked first_view", evt)
		}
		if evt.Timestamp == 0 {
			t.Fatalf("timestamp not filled")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, 1)
	h.Publish(Event{Type: TypeViewRecorded})
	h.Publish(Event{Type: TypeViewRecorded}) // 不应阻塞

	if len(ch) != 1 {
		t.Fatalf("buffered=%d, want 1", len(ch))
	}
}

func TestHubUnsubscribeOnCancel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx, 1)
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers=%d, want 1", h.Subscribers())
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("channel should be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for close")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers=%d, want 0", h.Subscribers())
	}
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var h *Hub
	h.Publish(Event{Type: TypeViewRecorded})
	if h.Subscribers() != 0 {
		t.Fatalf("nil hub subscribers should be 0")
	}
}

func TestHubSubscribeByType(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unlocks := h.Subscribe(ctx, 4, TypeAchievementUnlocked)
	all := h.Subscribe(ctx, 4)

	h.Publish(Event{Type: TypeViewRecorded})
	h.Publish(Event{Type: TypeAchievementUnlocked})

	if len(unlocks) != 1 {
		t.Fatalf("filtered buffered=%d, want 1", len(unlocks))
	}
	if evt := <-unlocks; evt.Type != TypeAchievementUnlocked {
		t.Fatalf("evt=%s, want achievement_unlocked", evt.Type)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered buffered=%d, want 2", len(all))
	}
}

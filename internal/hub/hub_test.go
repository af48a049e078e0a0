package hub

import (
	"testing"
)

func TestHubFanOut(t *testing.T) {
	h := New("test")
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(NewEvent(EventPhaseChanged, map[string]string{"phase": "playing"}))
	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Name != EventPhaseChanged {
				t.Errorf("event name = %q", ev.Name)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	h.Unsubscribe(b)
	h.Publish(Event{Name: EventSystemStatus})
	select {
	case <-b:
		t.Error("unsubscribed channel received an event")
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := New("test")
	slow := h.Subscribe()
	for i := 0; i < cap(slow)+5; i++ {
		h.Publish(Event{Name: EventScoreAdjustment})
	}
	if got := h.Subscribers(); got != 0 {
		t.Errorf("slow subscriber still registered, count = %d", got)
	}
}

func TestAdminClaimEvictsPrior(t *testing.T) {
	hs := NewHubs()
	first := hs.ClaimAdmin()
	if !hs.AdminTokenValid(first.Token) {
		t.Fatal("fresh token rejected")
	}

	second := hs.ClaimAdmin()
	select {
	case <-first.Done:
	default:
		t.Error("prior admin not evicted")
	}
	if hs.AdminTokenValid(first.Token) {
		t.Error("stale token still valid")
	}
	if !hs.AdminTokenValid(second.Token) {
		t.Error("current token rejected")
	}
	if first.Token == second.Token {
		t.Error("token was not rotated")
	}

	hs.Admin.Publish(Event{Name: EventGameSession})
	select {
	case <-second.Ch:
	default:
		t.Error("current admin did not receive the event")
	}

	hs.ReleaseAdmin(second)
	if hs.AdminTokenValid(second.Token) {
		t.Error("released token still valid")
	}
}

func TestSetDegradedEmitsOnChange(t *testing.T) {
	hs := NewHubs()
	pub := hs.Public.Subscribe()

	hs.SetDegraded(false)
	select {
	case ev := <-pub:
		t.Fatalf("no-op flip emitted %q", ev.Name)
	default:
	}

	hs.SetDegraded(true)
	select {
	case ev := <-pub:
		if ev.Name != EventSystemStatus {
			t.Errorf("event = %q, want system_status", ev.Name)
		}
	default:
		t.Fatal("degraded flip emitted nothing")
	}
	if !hs.Degraded() {
		t.Error("degraded flag not set")
	}
}

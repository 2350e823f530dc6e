package model

import (
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusApproved},
		{StatusPending, StatusDeclined},
		{StatusPending, StatusWaitlisted},
		{StatusPending, StatusCancelled},
		{StatusWaitlisted, StatusApproved},
		{StatusWaitlisted, StatusDeclined},
		{StatusWaitlisted, StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be permitted", tc.from, tc.to)
		}
	}

	terminal := []Status{StatusApproved, StatusDeclined, StatusCancelled, StatusExpired}
	targets := []Status{StatusPending, StatusApproved, StatusDeclined, StatusWaitlisted, StatusCancelled}
	for _, from := range terminal {
		if !from.Terminal() {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range targets {
			if CanTransition(from, to) {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}

	if CanTransition(StatusWaitlisted, StatusWaitlisted) {
		t.Error("waitlisted -> waitlisted must be rejected")
	}
	if CanTransition(StatusPending, StatusPending) {
		t.Error("pending -> pending must be rejected")
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now().UTC()

	live := JoinRequest{Status: StatusPending, HoldExpiresAt: now.Add(time.Minute)}
	if got := live.EffectiveStatus(now); got != StatusPending {
		t.Fatalf("live hold: expected pending, got %s", got)
	}
	if !live.HoldsCapacity(now) || !live.Open(now) {
		t.Fatal("live pending request must hold capacity and be open")
	}

	lapsed := JoinRequest{Status: StatusPending, HoldExpiresAt: now.Add(-time.Minute)}
	if got := lapsed.EffectiveStatus(now); got != StatusExpired {
		t.Fatalf("lapsed hold: expected expired, got %s", got)
	}
	if lapsed.HoldsCapacity(now) || lapsed.Open(now) {
		t.Fatal("lapsed pending request must neither hold capacity nor be open")
	}

	// An old hold timestamp on a non-pending request means nothing.
	waitlisted := JoinRequest{Status: StatusWaitlisted, HoldExpiresAt: now.Add(-time.Hour)}
	if got := waitlisted.EffectiveStatus(now); got != StatusWaitlisted {
		t.Fatalf("waitlisted: expected waitlisted, got %s", got)
	}
	if waitlisted.HoldsCapacity(now) {
		t.Fatal("waitlisted requests never hold capacity")
	}
	if !waitlisted.Open(now) {
		t.Fatal("waitlisted requests stay open")
	}
}

func TestEventHelpers(t *testing.T) {
	capacity := 8
	bounded := Event{Status: EventStatusPublished, CapacityTotal: &capacity}
	if bounded.Unlimited() || !bounded.Published() {
		t.Fatalf("unexpected helpers for %+v", bounded)
	}

	open := Event{Status: "draft"}
	if !open.Unlimited() || open.Published() {
		t.Fatalf("unexpected helpers for %+v", open)
	}
}

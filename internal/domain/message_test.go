package domain

import (
	"context"
	"errors"
	"testing"
)

func TestConversation(t *testing.T) {
	c := NewConversation("sys")

	if c.Len() != 1 || c.HasQuestion() {
		t.Fatalf("expected only the system message, got %+v", c.Snapshot())
	}

	c.Append(RoleUser, "q1")
	c.Append(RoleAssistant, "a1")

	snap := c.Snapshot()
	want := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
	}
	if len(snap) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(snap))
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, snap[i], want[i])
		}
	}
	if !c.HasQuestion() {
		t.Error("expected HasQuestion after a user message")
	}

	// Snapshots are copies.
	snap[1].Content = "changed"
	if c.Snapshot()[1].Content != "q1" {
		t.Error("mutating a snapshot changed the conversation")
	}
}

func TestExchangeIDContext(t *testing.T) {
	if id := ExchangeIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}

	ctx := ContextWithExchangeID(context.Background(), "abc")
	if id := ExchangeIDFromContext(ctx); id != "abc" {
		t.Errorf("expected abc, got %q", id)
	}
}

func TestAudioClipName(t *testing.T) {
	if got := (AudioClip{}).Name(); got != DefaultClipName {
		t.Errorf("expected default name, got %q", got)
	}
	if got := (AudioClip{Filename: "q.m4a"}).Name(); got != "q.m4a" {
		t.Errorf("expected file name, got %q", got)
	}
}

func TestRemoteCallError(t *testing.T) {
	err := &RemoteCallError{Service: "chat", StatusCode: 429, Body: "slow down", Retryable: true}

	if !errors.Is(err, ErrRemoteCall) {
		t.Error("expected RemoteCallError to match ErrRemoteCall")
	}
	if err.Error() != "chat API error 429: slow down" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateUninitialized:      "uninitialized",
		StateAwaitingOnboarding: "awaiting_onboarding",
		StateReady:              "ready",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

package prd

import (
	"context"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, 1); err != nil || ok {
		t.Fatalf("expected no context, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, 1, "Login must support SSO"); err != nil {
		t.Fatalf("set: %v", err)
	}
	text, ok, err := s.Get(ctx, 1)
	if err != nil || !ok || text != "Login must support SSO" {
		t.Fatalf("get = %q ok=%v err=%v", text, ok, err)
	}

	// Contexts are independent across chats.
	if _, ok, _ := s.Get(ctx, 2); ok {
		t.Fatal("context leaked across chats")
	}

	if err := s.Set(ctx, 1, "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	text, _, _ = s.Get(ctx, 1)
	if text != "v2" {
		t.Fatalf("overwrite kept old text: %q", text)
	}

	if err := s.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx, 1); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 1); ok {
		t.Fatal("context survived clear")
	}
}

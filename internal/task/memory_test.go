package task

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSaveGetClear(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, 1); err != nil || ok {
		t.Fatalf("expected absent record, got ok=%v err=%v", ok, err)
	}

	rec := NewRecord(StateWaitingFormat)
	if err := s.Save(ctx, 1, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if got.State != StateWaitingFormat {
		t.Fatalf("state = %q, expected %q", got.State, StateWaitingFormat)
	}

	if err := s.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Clearing again must stay a no-op.
	if err := s.Clear(ctx, 1); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 1); ok {
		t.Fatal("record survived clear")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	first := NewRecord(StateWaitingFormat)
	if err := s.Save(ctx, 7, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := NewRecord(StateWaitingPRD)
	second.Data[DataFormat] = "bdd"
	if err := s.Save(ctx, 7, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, _ := s.Get(ctx, 7)
	if !ok || got.State != StateWaitingPRD || got.Data[DataFormat] != "bdd" {
		t.Fatalf("unexpected record after overwrite: %+v ok=%v", got, ok)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, 3, NewRecord(StateWaitingPRD)); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, 3); ok {
		t.Fatal("expected record to expire")
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	a := NewRecord(StateWaitingPRD)
	a.Data[DataFormat] = "steps"
	b := NewRecord(StateWaitingPRD)
	b.Data[DataFormat] = "bdd"
	if err := s.Save(ctx, 100, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, 200, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(ctx, 100); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, ok, _ := s.Get(ctx, 100); ok {
		t.Fatal("chat 100 record survived clear")
	}
	got, ok, _ := s.Get(ctx, 200)
	if !ok || got.Data[DataFormat] != "bdd" {
		t.Fatalf("chat 200 record affected by chat 100 clear: %+v ok=%v", got, ok)
	}
}

func TestKnown(t *testing.T) {
	if !Known(StateWaitingFormat) || !Known(StateWaitingPRD) {
		t.Fatal("expected flow states to be known")
	}
	if Known(State("waiting_unicorn")) || Known(State("")) {
		t.Fatal("unexpected state reported as known")
	}
}

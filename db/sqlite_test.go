package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "estimates.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	events := []Event{
		{RequestID: "a", Source: "http", ModelVersion: "v1", Status: StatusOK, Amount: 1200000.5, Duration: 1500 * time.Microsecond},
		{RequestID: "b", Source: "websocket", ModelVersion: "v1", Status: StatusError, ErrorKind: "unknown_category"},
		{RequestID: "c", Source: "http", ModelVersion: "v1", Status: StatusOK, Amount: 900000},
	}
	for _, e := range events {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].RequestID != "c" || recent[1].RequestID != "b" {
		t.Fatalf("expected newest first, got %s, %s", recent[0].RequestID, recent[1].RequestID)
	}
	if recent[1].ErrorKind != "unknown_category" {
		t.Fatalf("unexpected error kind %q", recent[1].ErrorKind)
	}
	if recent[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all[2].Duration != 1500*time.Microsecond || all[2].Amount != 1200000.5 {
		t.Fatalf("unexpected first event %+v", all[2])
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[StatusOK] != 2 || counts[StatusError] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordRequiresStatus(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Event{RequestID: "x"}); err == nil {
		t.Fatal("expected error for missing status")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if err := store.Record(context.Background(), Event{Status: StatusOK}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		event := Event{RequestID: string(rune('a' + i)), Status: StatusOK, CreatedAt: now.Add(-age)}
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned events, got %d", n)
	}
	left, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(left) != 1 || left[0].RequestID != "c" {
		t.Fatalf("unexpected remaining events %+v", left)
	}
}

func TestRunRetention(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	old := Event{RequestID: "old", Status: StatusOK, CreatedAt: time.Now().Add(-time.Hour)}
	if err := store.Record(ctx, old); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pruned := make(chan int64, 1)
	go store.RunRetention(ctx, time.Minute, 5*time.Millisecond, func(n int64, err error) {
		if err == nil {
			select {
			case pruned <- n:
			default:
			}
		}
	})

	select {
	case n := <-pruned:
		if n != 1 {
			t.Fatalf("expected 1 pruned event, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retention never pruned")
	}
}

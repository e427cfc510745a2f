package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		store, err := Open(":memory:")
		if err != nil {
			t.Fatalf("failed to open in-memory store: %v", err)
		}
		defer func() { _ = store.Close() }()

		if store.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")

		store, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open file-based store: %v", err)
		}
		if _, err := store.Add(context.Background(), Play{Title: "Song", URL: "http://h/a.mp3"}); err != nil {
			t.Fatalf("failed to add play: %v", err)
		}
		_ = store.Close()

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("database file missing: %v", err)
		}

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer func() { _ = reopened.Close() }()

		count, err := reopened.Count(context.Background(), false)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("expected play to survive reopen, got count %d", count)
		}
	})
}

func TestStoreAddAndRecent(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i, title := range []string{"First", "Second", "Third"} {
		_, err := store.Add(ctx, Play{
			Title:    title,
			Artist:   "Artist",
			Album:    "Album",
			URL:      "http://h/" + title,
			Duration: 3 * time.Minute,
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to add play: %v", err)
		}
	}

	plays, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get recent plays: %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("expected 2 plays, got %d", len(plays))
	}
	if plays[0].Title != "Third" || plays[1].Title != "Second" {
		t.Errorf("expected newest first, got %q, %q", plays[0].Title, plays[1].Title)
	}
	if plays[0].Duration != 3*time.Minute {
		t.Errorf("duration = %v, want 3m", plays[0].Duration)
	}
	if !plays[0].PlayedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("played_at = %v", plays[0].PlayedAt)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("failed to get all plays: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 plays, got %d", len(all))
	}
}

func TestStoreAddDefaultsToNow(t *testing.T) {
	store := createTestStore(t)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	if _, err := store.Add(context.Background(), Play{Title: "Song", URL: "u"}); err != nil {
		t.Fatalf("failed to add play: %v", err)
	}
	plays, _ := store.Recent(context.Background(), 1)
	if len(plays) != 1 || !plays[0].PlayedAt.Equal(now) {
		t.Errorf("expected play stamped now, got %+v", plays)
	}
}

func TestStoreMarkCounted(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, Play{Title: "Song", URL: "u"})
	if err != nil {
		t.Fatalf("failed to add play: %v", err)
	}
	if _, err := store.Add(ctx, Play{Title: "Other", URL: "v"}); err != nil {
		t.Fatalf("failed to add play: %v", err)
	}

	if err := store.MarkCounted(ctx, id); err != nil {
		t.Fatalf("failed to mark counted: %v", err)
	}

	counted, _ := store.Count(ctx, true)
	total, _ := store.Count(ctx, false)
	if counted != 1 || total != 2 {
		t.Errorf("counted = %d, total = %d, want 1 and 2", counted, total)
	}

	if err := store.MarkCounted(ctx, 999); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestStoreCleanup(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	_, _ = store.Add(ctx, Play{Title: "Old", URL: "u", PlayedAt: now.Add(-48 * time.Hour)})
	_, _ = store.Add(ctx, Play{Title: "New", URL: "v", PlayedAt: now.Add(-time.Hour)})

	deleted, err := store.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	plays, _ := store.Recent(ctx, 0)
	if len(plays) != 1 || plays[0].Title != "New" {
		t.Errorf("expected only the recent play to remain, got %+v", plays)
	}
}

// Package storetest provides a reusable contract suite for
// ports.SessionStore implementations. Every adapter must pass it.
package storetest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/warroomhq/warroom/pkg/domain"
	"github.com/warroomhq/warroom/pkg/ports"
)

// Run exercises the SessionStore contract against store. Callers pass
// a freshly initialized, empty store.
func Run(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "session_missing")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("SaveLoad_RoundTrip", func(t *testing.T) {
		s := domain.NewSession("contract", domain.ModeOffensive)
		s.QueueTask("portscan", "10.0.0.5", map[string]any{"ports": "1-1024"})
		s.AddFinding("open port", domain.SeverityMedium, "5432/tcp", "portscan", nil)
		s.Metadata["engagement"] = "acme"

		location, err := store.Save(ctx, s)
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if location == "" {
			t.Fatal("save returned empty location")
		}

		loaded, err := store.Load(ctx, s.ID)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.ID != s.ID || loaded.Name != s.Name || loaded.Mode != s.Mode {
			t.Fatalf("identity mismatch: got %s/%s/%s", loaded.ID, loaded.Name, loaded.Mode)
		}
		if len(loaded.TaskQueue) != 1 || loaded.TaskQueue[0].ToolName != "portscan" {
			t.Fatalf("task queue not preserved: %+v", loaded.TaskQueue)
		}
		if len(loaded.Findings) != 1 || loaded.Findings[0].Severity != domain.SeverityMedium {
			t.Fatalf("findings not preserved: %+v", loaded.Findings)
		}
		if len(loaded.AgentStates) != 5 {
			t.Fatalf("expected 5 agent states, got %d", len(loaded.AgentStates))
		}
		if loaded.Metadata["engagement"] != "acme" {
			t.Fatalf("metadata not preserved: %+v", loaded.Metadata)
		}
		if !loaded.UpdatedAt.Equal(s.UpdatedAt) {
			t.Fatalf("UpdatedAt changed across the round trip: %v != %v", loaded.UpdatedAt, s.UpdatedAt)
		}
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		s := domain.NewSession("overwrite", domain.ModeDefensive)
		if _, err := store.Save(ctx, s); err != nil {
			t.Fatalf("first save failed: %v", err)
		}

		s.Rename("renamed")
		if _, err := store.Save(ctx, s); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		loaded, err := store.Load(ctx, s.ID)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.Name != "renamed" {
			t.Fatalf("expected overwritten name, got %q", loaded.Name)
		}
	})

	t.Run("List_SortedByUpdatedAtDesc", func(t *testing.T) {
		older := domain.NewSession("older", domain.ModeOffensive)
		if _, err := store.Save(ctx, older); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		time.Sleep(5 * time.Millisecond)
		newer := domain.NewSession("newer", domain.ModeOffensive)
		newer.QueueTask("nmap", "10.0.0.1", nil)
		if _, err := store.Save(ctx, newer); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		summaries, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}

		posOlder, posNewer := -1, -1
		for i, sum := range summaries {
			switch sum.ID {
			case older.ID:
				posOlder = i
			case newer.ID:
				posNewer = i
				if sum.TaskCount != 1 {
					t.Fatalf("expected task count 1, got %d", sum.TaskCount)
				}
			}
		}
		if posOlder < 0 || posNewer < 0 {
			t.Fatalf("listing missing saved sessions: %+v", summaries)
		}
		if posNewer > posOlder {
			t.Fatalf("expected newest first: newer at %d, older at %d", posNewer, posOlder)
		}
		for i := 1; i < len(summaries); i++ {
			if summaries[i-1].UpdatedAt.Before(summaries[i].UpdatedAt) {
				t.Fatalf("listing not sorted descending at index %d", i)
			}
		}

		// Touching the older session moves it to the front.
		time.Sleep(5 * time.Millisecond)
		older.QueueTask("nikto", "10.0.0.2", nil)
		if _, err := store.Save(ctx, older); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		summaries, err = store.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(summaries) == 0 || summaries[0].ID != older.ID {
			t.Fatalf("expected touched session first, got %+v", summaries)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := domain.NewSession("doomed", domain.ModeOffensive)
		if _, err := store.Save(ctx, s); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if err := store.Delete(ctx, s.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.Load(ctx, s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound on second delete, got %v", err)
		}
	})

	t.Run("ExportImport_RoundTrip", func(t *testing.T) {
		s := domain.NewSession("exported", domain.ModeDefensive)
		s.AddFinding("weak cipher", domain.SeverityLow, "tls", "sslyze", nil)
		if _, err := store.Save(ctx, s); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		dest := filepath.Join(t.TempDir(), "manual.wrs")
		if err := store.Export(ctx, s.ID, dest); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		auto, err := store.ExportAuto(ctx, s.ID)
		if err != nil {
			t.Fatalf("export auto failed: %v", err)
		}
		if auto == "" {
			t.Fatal("export auto returned empty path")
		}

		// Re-import after deleting the original.
		if err := store.Delete(ctx, s.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		id, err := store.Import(ctx, dest)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if id != s.ID {
			t.Fatalf("import returned %q, want %q", id, s.ID)
		}
		loaded, err := store.Load(ctx, s.ID)
		if err != nil {
			t.Fatalf("load after import failed: %v", err)
		}
		if len(loaded.Findings) != 1 {
			t.Fatalf("findings lost across export/import: %+v", loaded.Findings)
		}
	})

	t.Run("Export_NotFound", func(t *testing.T) {
		err := store.Export(ctx, "session_missing", filepath.Join(t.TempDir(), "x.wrs"))
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

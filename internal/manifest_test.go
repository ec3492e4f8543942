package internal

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func readManifestEvents(t *testing.T, path string) []ManifestEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Cannot open manifest: %v", err)
	}
	defer f.Close()

	var events []ManifestEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event ManifestEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestManifest_LogsBatchLifecycle(t *testing.T) {
	library := t.TempDir()

	manifest, err := OpenManifest(library, "batch-123")
	if err != nil {
		t.Fatalf("OpenManifest failed: %v", err)
	}

	if err := manifest.LogBatchStart("/media/inbox", 42); err != nil {
		t.Fatalf("LogBatchStart failed: %v", err)
	}
	procErr := CategorizeError("/media/inbox/bad.jpg", errors.New("permission denied"))
	if err := manifest.LogFileFlagged("bad.jpg", procErr); err != nil {
		t.Fatalf("LogFileFlagged failed: %v", err)
	}
	if err := manifest.LogResolved("group-1", []string{"a.jpg"}, []string{"b.jpg"}); err != nil {
		t.Fatalf("LogResolved failed: %v", err)
	}
	if err := manifest.LogUndiscard("b.jpg"); err != nil {
		t.Fatalf("LogUndiscard failed: %v", err)
	}
	if err := manifest.LogBatchEnd(Summary{BatchID: "batch-123", FileCount: 42}); err != nil {
		t.Fatalf("LogBatchEnd failed: %v", err)
	}
	if err := manifest.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readManifestEvents(t, manifest.Path)
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}

	if events[0].Event != "batch_start" || events[0].TotalFiles != 42 {
		t.Errorf("Unexpected start event: %+v", events[0])
	}
	if events[1].Event != "file_flagged" || events[1].ErrorCategory != string(ErrorCategoryIO) {
		t.Errorf("Unexpected flagged event: %+v", events[1])
	}
	if events[2].Event != "group_resolved" || len(events[2].DiscardedIDs) != 1 {
		t.Errorf("Unexpected resolved event: %+v", events[2])
	}
	if events[3].Event != "undiscard" || events[3].FileID != "b.jpg" {
		t.Errorf("Unexpected undiscard event: %+v", events[3])
	}
	if events[4].Event != "batch_end" {
		t.Errorf("Unexpected end event: %+v", events[4])
	}
}

func TestManifest_AppendsAcrossOpens(t *testing.T) {
	library := t.TempDir()

	first, err := OpenManifest(library, "batch-xyz")
	if err != nil {
		t.Fatalf("OpenManifest failed: %v", err)
	}
	first.LogBatchStart("/inbox", 1)
	first.Close()

	second, err := OpenManifest(library, "batch-xyz")
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	second.LogKeepAll("group-9", []string{"a.jpg", "b.jpg"})
	second.Close()

	events := readManifestEvents(t, second.Path)
	if len(events) != 2 {
		t.Fatalf("Expected events from both sessions, got %d", len(events))
	}
	if events[1].Event != "group_keep_all" || len(events[1].KeptIDs) != 2 {
		t.Errorf("Unexpected keep-all event: %+v", events[1])
	}
}

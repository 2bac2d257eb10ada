package dedup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotRestore_Roundtrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "seiri_dedup_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "dedup.json")

	d := New(10)
	d.Seen("a")
	d.Seen("b")
	d.Seen("c")

	if err := d.Snapshot(path); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	restored := New(10)
	if err := restored.Restore(path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if !restored.Seen(id) {
			t.Fatalf("restored window lost id %s", id)
		}
	}
	if restored.Seen("d") {
		t.Fatal("unrelated id must not be seen after restore")
	}
}

func TestRestore_TrimsOldestToCapacity(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "seiri_dedup_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "dedup.json")

	big := New(5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		big.Seen(id)
	}
	if err := big.Snapshot(path); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	small := New(2)
	if err := small.Restore(path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// Only the newest two ids survive the smaller window.
	if small.Seen("a") || small.Seen("b") || small.Seen("c") {
		t.Fatal("oldest ids must be dropped when the snapshot exceeds capacity")
	}
	if !small.Seen("d") || !small.Seen("e") {
		t.Fatal("newest ids must survive the restore")
	}
}

func TestRestore_MissingFileIsNoop(t *testing.T) {
	d := New(4)
	if err := d.Restore(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("missing snapshot must not error: %v", err)
	}
	if got := d.GetStats().Size; got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
}

func TestSnapshot_EmptyPathIsNoop(t *testing.T) {
	d := New(4)
	d.Seen("a")
	if err := d.Snapshot(""); err != nil {
		t.Fatalf("empty path must be a no-op: %v", err)
	}
	if err := d.Restore(""); err != nil {
		t.Fatalf("empty path must be a no-op: %v", err)
	}
}

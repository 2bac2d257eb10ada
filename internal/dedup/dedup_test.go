package dedup

import (
	"fmt"
	"testing"
)

func TestSeen_RecordsFirstSight(t *testing.T) {
	d := New(10)

	if d.Seen("evt_1") {
		t.Fatal("first sight must not report seen")
	}
	if !d.Seen("evt_1") {
		t.Fatal("second sight must report seen")
	}
}

func TestSeen_FIFOEviction(t *testing.T) {
	d := New(3)

	d.Seen("a")
	d.Seen("b")
	d.Seen("c")

	// Window full; "d" must evict the oldest entry "a".
	d.Seen("d")

	if d.Seen("b") != true || d.Seen("c") != true || d.Seen("d") != true {
		t.Fatal("entries inside the window must still be seen")
	}
	if d.Seen("a") {
		t.Fatal("evicted id must be admitted again")
	}

	stats := d.GetStats()
	if stats.Size != 3 || stats.Capacity != 3 {
		t.Fatalf("expected 3/3, got %d/%d", stats.Size, stats.Capacity)
	}
}

func TestSeen_EvictionOrderSurvivesWraparound(t *testing.T) {
	d := New(2)

	for i := 0; i < 10; i++ {
		d.Seen(fmt.Sprintf("evt_%d", i))
	}

	// Only the two newest remain.
	if d.Seen("evt_7") {
		t.Fatal("evt_7 should have been evicted")
	}
	if !d.Seen("evt_9") {
		t.Fatal("evt_9 should still be in the window")
	}
}

func TestSeen_RepeatDoesNotEvict(t *testing.T) {
	d := New(2)

	d.Seen("a")
	d.Seen("b")
	d.Seen("a")
	d.Seen("b")

	if !d.Seen("a") || !d.Seen("b") {
		t.Fatal("re-seeing existing ids must not change the window")
	}
	if got := d.GetStats().Size; got != 2 {
		t.Fatalf("expected size 2, got %d", got)
	}
}

func TestClear(t *testing.T) {
	d := New(4)
	d.Seen("a")
	d.Seen("b")

	d.Clear()

	if got := d.GetStats().Size; got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
	if d.Seen("a") {
		t.Fatal("cleared id must be admitted again")
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	d := New(0)
	if got := d.GetStats().Capacity; got != DefaultMaxSize {
		t.Fatalf("expected default capacity %d, got %d", DefaultMaxSize, got)
	}
}

package telemetry

import (
	"testing"

	"github.com/pthm-cable/flock/config"
)

func testBookmarks(t *testing.T) config.BookmarksConfig {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg.Bookmarks
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FlockFormed(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t)) // threshold 0.8

	for i, pol := range []float64{0.1, 0.3, 0.5} {
		got := bd.Check(WindowStats{WindowEndTick: int32(i * 300), Polarization: pol})
		if hasBookmark(got, BookmarkFlockFormed) {
			t.Fatalf("flock_formed fired early at polarization %v", pol)
		}
	}

	got := bd.Check(WindowStats{WindowEndTick: 900, Polarization: 0.85})
	if !hasBookmark(got, BookmarkFlockFormed) {
		t.Error("expected flock_formed bookmark when crossing threshold")
	}

	// Staying above the threshold is not a new formation.
	got = bd.Check(WindowStats{WindowEndTick: 1200, Polarization: 0.9})
	if hasBookmark(got, BookmarkFlockFormed) {
		t.Error("flock_formed fired again without re-crossing")
	}
}

func TestBookmarkDetector_FlockScattered(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t)) // drop 0.4, min peak 0.5

	for i := 0; i < 4; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 300), Polarization: 0.9})
	}

	got := bd.Check(WindowStats{WindowEndTick: 1200, Polarization: 0.3})
	if !hasBookmark(got, BookmarkFlockScattered) {
		t.Fatal("expected flock_scattered bookmark")
	}

	// Peak was reset to the scattered level.
	got = bd.Check(WindowStats{WindowEndTick: 1500, Polarization: 0.25})
	if hasBookmark(got, BookmarkFlockScattered) {
		t.Error("flock_scattered fired twice for one break-up")
	}
}

func TestBookmarkDetector_NoScatterBelowMinPeak(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	bd.Check(WindowStats{Polarization: 0.4})
	got := bd.Check(WindowStats{WindowEndTick: 300, Polarization: 0.05})
	if hasBookmark(got, BookmarkFlockScattered) {
		t.Error("flock_scattered should need a peak of at least min_peak")
	}
}

func TestBookmarkDetector_StableFlock(t *testing.T) {
	cfg := testBookmarks(t) // min 0.6, cv 0.05, windows 5
	bd := NewBookmarkDetector(10, cfg)

	fired := 0
	for i := 0; i < 12; i++ {
		got := bd.Check(WindowStats{WindowEndTick: int32(i * 300), Polarization: 0.9})
		if hasBookmark(got, BookmarkStableFlock) {
			fired++
		}
	}

	if fired != 1 {
		t.Errorf("stable_flock fired %d times, want exactly 1", fired)
	}
}

func TestBookmarkDetector_UnstableFlock(t *testing.T) {
	bd := NewBookmarkDetector(10, testBookmarks(t))

	for i := 0; i < 12; i++ {
		pol := 0.65
		if i%2 == 0 {
			pol = 0.95
		}
		got := bd.Check(WindowStats{WindowEndTick: int32(i * 300), Polarization: pol})
		if hasBookmark(got, BookmarkStableFlock) {
			t.Fatalf("stable_flock fired on oscillating polarization at window %d", i)
		}
	}
}

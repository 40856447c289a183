package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFlockFormed    BookmarkType = "flock_formed"
	BookmarkFlockScattered BookmarkType = "flock_scattered"
	BookmarkStableFlock    BookmarkType = "stable_flock"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector watches the polarization series for the moments a flock
// forms, breaks up, or settles.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak         float64 // highest polarization since the last scatter
	stableWindowsCount int     // consecutive windows that looked stable
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		cfg:         cfg,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkFlockFormed(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkFlockScattered(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableFlock(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Polarization > bd.recentPeak {
		bd.recentPeak = stats.Polarization
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// last returns the most recent n windows in chronological order.
func (bd *BookmarkDetector) last(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	if n > count {
		n = count
	}
	out := make([]WindowStats, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkFlockFormed(stats WindowStats) *Bookmark {
	prev := bd.last(1)
	threshold := bd.cfg.FlockFormed.Threshold
	if len(prev) == 0 || prev[0].Polarization >= threshold || stats.Polarization < threshold {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFlockFormed,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Polarization rose from %.2f to %.2f", prev[0].Polarization, stats.Polarization),
	}
}

func (bd *BookmarkDetector) checkFlockScattered(stats WindowStats) *Bookmark {
	c := bd.cfg.FlockScattered
	if bd.recentPeak < c.MinPeak {
		return nil
	}
	if stats.Polarization >= bd.recentPeak*(1-c.DropFraction) {
		return nil
	}

	// Reset the peak after triggering
	oldPeak := bd.recentPeak
	bd.recentPeak = stats.Polarization

	return &Bookmark{
		Type:        BookmarkFlockScattered,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Polarization fell %.0f%% from peak %.2f to %.2f", (1-stats.Polarization/oldPeak)*100, oldPeak, stats.Polarization),
	}
}

func (bd *BookmarkDetector) checkStableFlock(stats WindowStats) *Bookmark {
	c := bd.cfg.StableFlock
	if stats.Polarization < c.MinPolarization {
		bd.stableWindowsCount = 0
		return nil
	}

	recent := bd.last(3)
	if len(recent) < 3 {
		return nil
	}
	series := []float64{stats.Polarization}
	for _, h := range recent {
		series = append(series, h.Polarization)
	}
	mean, std := stat.MeanStdDev(series, nil)

	if mean > 0 && std/mean < c.CVThreshold {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == c.Windows { // trigger once per stable stretch
		return &Bookmark{
			Type:        BookmarkStableFlock,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization steady at %.2f over %d windows", mean, c.Windows),
		}
	}

	return nil
}

package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkBodySplit   BookmarkType = "body_split"
	BookmarkBodyRejoin  BookmarkType = "body_rejoin"
	BookmarkDriveSurge  BookmarkType = "drive_surge"
	BookmarkSettledBody BookmarkType = "settled_body"
)

// Bookmark marks a window in which something notable happened to the fluid.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Frame       int64        `csv:"frame" json:"frame"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"description", b.Description,
	)
}

// Thresholds on the main-body fraction.
const (
	splitFraction  = 0.8
	intactFraction = 0.97
	settledWindows = 5
)

// BookmarkDetector watches window stats for splits, rejoins, drive surges
// and long quiet stretches.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	split         bool
	settledStreak int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 4 {
		historySize = 4
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkSplit(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkRejoin(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDriveSurge(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkSplit(stats WindowStats) *Bookmark {
	if bd.split || stats.MainFractionMin >= splitFraction {
		return nil
	}
	bd.split = true
	return &Bookmark{
		Type:        BookmarkBodySplit,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Main body fell to %.0f%% of particles (%d components)", stats.MainFractionMin*100, stats.ComponentsMax),
	}
}

func (bd *BookmarkDetector) checkRejoin(stats WindowStats) *Bookmark {
	if !bd.split || stats.MainFractionMin < intactFraction {
		return nil
	}
	bd.split = false
	return &Bookmark{
		Type:        BookmarkBodyRejoin,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Body rejoined, main fraction %.0f%%", stats.MainFractionMean*100),
	}
}

// checkDriveSurge fires when the envelope peak is well above the recent
// average envelope.
func (bd *BookmarkDetector) checkDriveSurge(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var sum float64
	for _, h := range history {
		sum += h.EnvelopeMean
	}
	avg := sum / float64(len(history))
	if avg <= 0 || stats.EnvelopePeak < 0.6 || stats.EnvelopePeak < avg*2 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkDriveSurge,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Envelope peaked at %.2f, %.1fx recent mean (%.2f)", stats.EnvelopePeak, stats.EnvelopePeak/avg, avg),
	}
}

// checkSettled fires once after the body has stayed whole and slow for
// settledWindows windows in a row.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	quiet := stats.MainFractionMin >= intactFraction && stats.EnvelopePeak < 0.05
	if quiet && len(history) > 0 {
		prev := history[(bd.historyIdx-1+bd.historySize)%bd.historySize]
		if prev.SpeedMean > 0 {
			change := (stats.SpeedMean - prev.SpeedMean) / prev.SpeedMean
			quiet = change < 0.2 && change > -0.2
		}
	}
	if !quiet {
		bd.settledStreak = 0
		return nil
	}
	bd.settledStreak++
	if bd.settledStreak != settledWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSettledBody,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Body settled for %d windows at mean speed %.1f", settledWindows, stats.SpeedMean),
	}
}

package game

import (
	"log/slog"

	"github.com/pthm-cable/ferrofluid/telemetry"
)

// recordFrame samples the body and drive after a rendered frame.
func (g *Game) recordFrame(steps int) {
	n := g.state.Len()
	sample := telemetry.FrameSample{
		Frame:           g.frame,
		SimTimeSec:      g.simTime,
		Steps:           steps,
		Envelope:        g.state.Envelope.Value,
		MotionHighlight: g.state.MotionHighlight,
		Components:      g.last.Components,
		MeanSpeed:       g.last.MeanSpeed,
		AudioDrive:      g.lastSignal.Drive,
		AudioGate:       g.lastSignal.Gate > 0,
	}
	if n > 0 && g.last.Components > 0 {
		sample.MainFraction = float64(g.last.MainSize) / float64(n)
		sample.Detached = n - g.last.MainSize
	}

	g.collector.Record(sample)
	if err := g.outputManager.WriteFrame(sample); err != nil {
		slog.Error("failed to write frame", "error", err)
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.simTime) {
		return
	}

	stats := g.collector.Flush(g.frame, g.simTime)
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		slog.Info("perf", "stats", perfStats)
	}

	if err := g.outputManager.WriteStats(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// Snapshot captures the current particle state.
func (g *Game) Snapshot() *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:         telemetry.SnapshotVersion,
		RNGSeed:         g.seed,
		ViewWidth:       g.width,
		ViewHeight:      g.height,
		DPR:             g.dpr,
		Frame:           g.frame,
		SimTimeSec:      g.simTime,
		Envelope:        g.state.Envelope.Value,
		MotionHighlight: g.state.MotionHighlight,
		Particles:       telemetry.CaptureParticles(g.state),
	}
}

// RestoreSnapshot replaces the particle state with sn and resizes to its
// viewport. The configured particle count follows the snapshot.
func (g *Game) RestoreSnapshot(sn *telemetry.Snapshot) {
	g.cfg.Particles.Count = len(sn.Particles)
	if sn.ViewWidth > 0 && sn.ViewHeight > 0 {
		g.width, g.height = sn.ViewWidth, sn.ViewHeight
	}
	if sn.DPR >= 1 && sn.DPR <= 2 {
		g.dpr = sn.DPR
	}
	g.layout()
	g.state = sn.Restore()
	g.configureField()
	g.restartClock()
	g.simTime = sn.SimTimeSec
	g.collector.Reset(g.frame, g.simTime)
	slog.Info("snapshot restored", "frame", sn.Frame, "particles", len(sn.Particles))
}

func (g *Game) saveSnapshot(bm *telemetry.Bookmark) {
	sn := g.Snapshot()
	sn.Bookmark = bm
	path, err := telemetry.SaveSnapshot(sn, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "frame", g.frame)
}

package game

import (
	"fmt"
	"io"
	"time"

	"github.com/pthm-cable/ferrofluid/telemetry"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogPerfSummary prints the frame phase breakdown over the perf window and
// the smoothed bottleneck.
func (g *Game) LogPerfSummary() {
	stats := g.perfCollector.Stats()
	Logf("=== Perf @ Frame %d | FPS: %.1f ===", g.frame, stats.FramesPerSecond)
	Logf("Avg frame: %s (min %s, max %s)",
		stats.AvgFrameDuration.Round(time.Microsecond),
		stats.MinFrameDuration.Round(time.Microsecond),
		stats.MaxFrameDuration.Round(time.Microsecond),
	)
	for _, phase := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[phase]
		if !ok {
			continue
		}
		Logf("  %-8s %10s  %5.1f%%", phase, avg.Round(time.Microsecond), stats.PhasePct[phase])
	}
	Logf("  per step %10s", stats.StepAvg.Round(time.Microsecond))

	label, ms := g.hud.Bottleneck()
	Logf("Bottleneck: %s (%.2f ms)", label, ms)
	Logf("")
}

// LogBodyState prints the current connectivity and drive summary.
func (g *Game) LogBodyState() {
	n := g.state.Len()
	Logf("=== Body @ Frame %d (t=%.2fs) ===", g.frame, g.simTime)
	Logf("Particles: %d | Components: %d | Main body: %d", n, g.last.Components, g.last.MainSize)
	Logf("Envelope: %.3f | Motion: %.3f | Mean speed: %.1f px/s",
		g.state.Envelope.Value, g.state.MotionHighlight, g.last.MeanSpeed)
	if g.cfg.Drive.AudioReactive && !g.cfg.Drive.ManualPulse {
		sig := g.lastSignal
		Logf("Audio: active=%t drive=%.3f gate=%.0f impact=%.3f", sig.Active, sig.Drive, sig.Gate, sig.Impact)
	}
	Logf("")
}

package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/game"
	"github.com/pthm-cable/ferrofluid/telemetry"
)

// frameDT is the synthetic frame time of evaluation runs.
const frameDT = 1.0 / 60

// FitnessEvaluator runs headless simulations and scores blob integrity.
type FitnessEvaluator struct {
	params      *ParamVector
	durationSec float64
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. The base config is cloned
// and forced onto the periodic drive so every run sees the same forcing.
func NewFitnessEvaluator(params *ParamVector, durationSec float64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	cfg := baseCfg.Clone()
	cfg.Drive.ManualPulse = false
	cfg.Drive.AudioReactive = false
	return &FitnessEvaluator{
		params:      params,
		durationSec: durationSec,
		seeds:       seeds,
		baseConfig:  cfg,
		statsWindow: 1.0,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel
	qualities := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			qualities[idx] = computeQuality(fe.runSimulation(cfg, s))
		}(i, seed)
	}
	wg.Wait()

	quality := stat.Mean(qualities, nil)
	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()
	return -quality
}

// runSimulation executes a single headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) []telemetry.WindowStats {
	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
	})
	if err != nil {
		return nil
	}
	defer g.Unload()

	var windows []telemetry.WindowStats
	g.SetStatsCallback(func(stats telemetry.WindowStats) {
		windows = append(windows, stats)
	})
	for g.SimTime() < fe.durationSec {
		g.Update(frameDT, nil)
	}
	return windows
}

// Quality component weights.
const (
	qualityWeightIntegrity  = 0.45
	qualityWeightIntact     = 0.20
	qualityWeightResponse   = 0.20
	qualityWeightSteadiness = 0.15

	qualityWarmupWindows = 2    // skip first N windows (settling from spawn)
	splitThreshold       = 0.8  // main fraction below this counts as split
	responseScale        = 0.35 // motion highlight giving ~63% response score
)

// computeQuality scores a run in [0, 1]. The integrity terms dominate;
// response to the drive and speed steadiness separate runs that both hold
// together.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	fractions := make([]float64, len(valid))
	motion := make([]float64, len(valid))
	speeds := make([]float64, len(valid))
	intact := 0
	for i, w := range valid {
		fractions[i] = w.MainFractionMean
		motion[i] = w.MotionMean
		speeds[i] = w.SpeedMean
		if w.MainFractionMin >= splitThreshold {
			intact++
		}
	}

	integrity := stat.Mean(fractions, nil)
	intactScore := float64(intact) / float64(len(valid))
	response := 1 - math.Exp(-stat.Mean(motion, nil)/responseScale)

	steadiness := 0.0
	if mean := stat.Mean(speeds, nil); len(speeds) >= 2 && mean > 0 {
		cv := stat.StdDev(speeds, nil) / mean
		steadiness = math.Exp(-cv * cv)
	}

	quality := qualityWeightIntegrity*integrity +
		qualityWeightIntact*intactScore +
		qualityWeightResponse*response +
		qualityWeightSteadiness*steadiness
	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

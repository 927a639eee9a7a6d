// Package main runs a CMA-ES search over the fluid force parameters,
// scoring how well the body holds together under the periodic drive.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/profile"
)

type options struct {
	configPath string
	outputDir  string
	duration   float64
	seeds      int
	maxEvals   int
	population int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.Float64Var(&opts.duration, "duration", 20, "Simulated seconds per run")
	flag.IntVar(&opts.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	// Per-run lifecycle logs would drown the progress lines.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if opts.outputDir == "" {
		fmt.Fprintln(os.Stderr, "-output is required")
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		slog.Error("tune failed", "error", err)
		os.Exit(1)
	}
}

// searchLog appends one row per evaluation to tune_log.csv.
type searchLog struct {
	file *os.File
	w    *gocsv.SafeCSVWriter
}

func newSearchLog(path string, params *ParamVector) (*searchLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating search log: %w", err)
	}
	l := &searchLog{file: f, w: gocsv.DefaultCSVWriter(f)}
	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing search log header: %w", err)
	}
	return l, nil
}

func (l *searchLog) record(eval int, fitness, quality float64, x []float64) error {
	row := make([]string, 0, 3+len(x))
	row = append(row, strconv.Itoa(eval), formatFloat(fitness), formatFloat(quality))
	for _, v := range x {
		row = append(row, formatFloat(v))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *searchLog) Close() error {
	l.w.Flush()
	return l.file.Close()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// tracker keeps the best point seen by any evaluation; CMA-ES only reports
// its final mean.
type tracker struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	log       *searchLog
	maxEvals  int
	start     time.Time

	evals   int
	best    float64
	bestX   []float64
	logErrs int
}

func (t *tracker) objective(x []float64) float64 {
	clamped := t.params.Clamp(t.params.Denormalize(x))
	fitness := t.evaluator.Evaluate(clamped)
	quality := t.evaluator.LastQuality()
	t.evals++

	if t.bestX == nil || fitness < t.best {
		t.best = fitness
		t.bestX = clamped
	}
	if err := t.log.record(t.evals, fitness, quality, clamped); err != nil && t.logErrs == 0 {
		slog.Warn("search log write failed", "error", err)
		t.logErrs++
	}

	elapsed := time.Since(t.start)
	eta := time.Duration(t.maxEvals-t.evals) * (elapsed / time.Duration(t.evals))
	fmt.Printf("eval %d/%d  quality=%.3f  best=%.3f  elapsed=%s  eta=%s\n",
		t.evals, t.maxEvals, quality, -t.best,
		elapsed.Round(time.Second), eta.Round(time.Second))
	return fitness
}

func run(opts options) error {
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()
	seeds := make([]int64, max(1, opts.seeds))
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}

	evalLog, err := newSearchLog(filepath.Join(opts.outputDir, "tune_log.csv"), params)
	if err != nil {
		return err
	}
	defer evalLog.Close()

	t := &tracker{
		params:    params,
		evaluator: NewFitnessEvaluator(params, opts.duration, seeds, baseCfg),
		log:       evalLog,
		maxEvals:  opts.maxEvals,
		start:     time.Now(),
	}

	popSize := opts.population
	if popSize <= 0 {
		popSize = 4 + 3*params.Dim()/2
	}
	fmt.Printf("CMA-ES over %d parameters, population %d, %d evals, %d seeds x %.0fs\n",
		params.Dim(), popSize, opts.maxEvals, len(seeds), opts.duration)

	result, err := optimize.Minimize(
		optimize.Problem{Func: t.objective},
		params.Normalize(params.ExtractFromConfig(baseCfg)),
		// Evaluations stay sequential; each one runs its seeds in parallel.
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		slog.Warn("search ended early", "error", err)
	}

	best := t.bestX
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return fmt.Errorf("no evaluations completed")
	}

	fmt.Printf("\n%d evaluations in %s, best quality %.3f\n",
		t.evals, time.Since(t.start).Round(time.Second), -t.best)
	for i, spec := range params.Specs {
		fmt.Printf("  %-28s %.6f\n", spec.Path, best[i])
	}

	return writeResults(opts.outputDir, baseCfg, params, best)
}

// writeResults stores the best parameters as a config snapshot and as a
// profile the viewer can load.
func writeResults(dir string, baseCfg *config.Config, params *ParamVector, best []float64) error {
	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, best)

	cfgPath := filepath.Join(dir, "best_config.yaml")
	if err := bestCfg.WriteYAML(cfgPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Println("config:", cfgPath)

	profilePath := filepath.Join(dir, "profiles.yaml")
	defaults := config.Defaults()
	store, err := profile.OpenStore(profilePath, defaults)
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}
	p, err := store.SaveAs("Tuned "+time.Now().Format("2006-01-02 15:04"), profile.Collect(bestCfg, defaults))
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Printf("profile %q (%s): %s\n", p.Name, p.ID, profilePath)
	return nil
}

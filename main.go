package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/game"
	"github.com/pthm-cable/ferrofluid/profile"
	"github.com/pthm-cable/ferrofluid/renderer"
	"github.com/pthm-cable/ferrofluid/ui"
)

// headlessFrameDT is the synthetic frame time of headless runs.
const headlessFrameDT = 1.0 / 60

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	profilesPath := flag.String("profiles", "", "Path to the profile store (empty = built-in profile only)")
	profileID := flag.String("profile", "", "Profile id to activate (empty = last active)")
	headless := flag.Bool("headless", false, "Run without graphics")
	wavPath := flag.String("wav", "", "WAV file driving the audio-reactive mode")
	envPath := flag.String("env", "", "Equirectangular environment image (JPEG or PNG)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg().Clone()
	defaults := config.Defaults()

	store, err := openProfiles(*profilesPath, *profileID, defaults)
	if err != nil {
		slog.Error("failed to load profiles", "error", err)
		os.Exit(1)
	}
	active := store.Active()
	if *profilesPath != "" || *profileID != "" {
		profile.Apply(cfg, active.Values, defaults)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
	}

	var source *audio.PCMSource
	if *wavPath != "" {
		source, err = audio.LoadWAV(*wavPath, cfg.Audio.FFTSize)
		if err != nil {
			slog.Error("failed to load audio", "error", err)
			os.Exit(1)
		}
		source.SetLoop(true)
		opts.Audio = source
		slog.Info("audio loaded", "path", *wavPath, "duration", source.Duration(), "sample_rate", source.SampleRate())
	}
	if *envPath != "" {
		env, err := loadEnvironment(*envPath)
		if err != nil {
			slog.Error("failed to load environment", "error", err)
			os.Exit(1)
		}
		opts.Environment = env
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g, err := game.NewGameWithOptions(cfg, opts)
		if err != nil {
			slog.Error("failed to create simulation", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"profile", active.ID,
			"stats_window", *statsWindow,
			"max_frames", *maxFrames,
		)

		for {
			g.Update(headlessFrameDT, nil)

			if *maxFrames > 0 && int(g.Frame()) >= *maxFrames {
				slog.Info("max frames reached", "frame", g.Frame())
				if *logStats {
					g.LogBodyState()
					g.LogPerfSummary()
				}
				return
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Capsule Ferrofluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	opts.Width = rl.GetScreenWidth()
	opts.Height = rl.GetScreenHeight()
	opts.DPR = float64(rl.GetWindowScaleDPI().X)

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	// Play the drive track audibly alongside the analysed copy.
	var music *rl.Music
	if *wavPath != "" {
		rl.InitAudioDevice()
		defer rl.CloseAudioDevice()
		m := rl.LoadMusicStream(*wavPath)
		m.Looping = true
		defer rl.UnloadMusicStream(m)
		rl.PlayMusicStream(m)
		music = &m
	}

	viewer := ui.NewViewer(g, store, defaults)
	defer viewer.Unload()

	for !rl.WindowShouldClose() {
		if music != nil {
			rl.UpdateMusicStream(*music)
		}
		viewer.Frame()

		if *maxFrames > 0 && int(g.Frame()) >= *maxFrames {
			break
		}
	}
}

// openProfiles loads the profile store and selects id when given.
func openProfiles(path, id string, defaults *config.Config) (*profile.Store, error) {
	store := profile.NewStore("", defaults)
	if path != "" {
		var err error
		store, err = profile.OpenStore(path, defaults)
		if err != nil {
			return nil, err
		}
	}
	if id != "" {
		if _, ok := store.Get(id); !ok {
			return nil, fmt.Errorf("unknown profile %q", id)
		}
		if _, err := store.Select(id); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// loadEnvironment decodes an equirectangular image into a reflection sampler.
func loadEnvironment(path string) (renderer.EnvironmentSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening environment: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	b := img.Bounds()
	slog.Info("environment loaded", "path", path, "format", format, "width", b.Dx(), "height", b.Dy())
	return renderer.NewEquirectSampler(img), nil
}

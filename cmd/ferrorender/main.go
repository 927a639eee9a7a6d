// Ferrofluid frame renderer - runs the simulation headless and writes the
// shaded fluid layer to PNG files for inspection.
//
// Usage: go run ./cmd/ferrorender -frames 240 -every 10 -out frames/
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/game"
	"github.com/pthm-cable/ferrofluid/profile"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	profilesPath := flag.String("profiles", "", "Profile store to read")
	profileID := flag.String("profile", "", "Profile id to render (empty = active)")
	wavPath := flag.String("wav", "", "WAV file driving the audio-reactive mode")
	outDir := flag.String("out", "frames", "Output directory for PNG files")
	frames := flag.Int("frames", 120, "Frames to simulate")
	every := flag.Int("every", 10, "Write every Nth frame")
	width := flag.Int("width", 0, "Viewport width (0 = use config)")
	height := flag.Int("height", 0, "Viewport height (0 = use config)")
	dpr := flag.Float64("dpr", 1, "Device pixel ratio")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(options{
		configPath:   *configPath,
		profilesPath: *profilesPath,
		profileID:    *profileID,
		wavPath:      *wavPath,
		outDir:       *outDir,
		frames:       *frames,
		every:        max(1, *every),
		width:        *width,
		height:       *height,
		dpr:          *dpr,
		seed:         *seed,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "ferrorender: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath, profilesPath, profileID, wavPath, outDir string
	frames, every, width, height                         int
	dpr                                                  float64
	seed                                                 int64
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.profilesPath != "" {
		defaults := config.Defaults()
		store, err := profile.OpenStore(o.profilesPath, defaults)
		if err != nil {
			return err
		}
		p := store.Active()
		if o.profileID != "" {
			var ok bool
			if p, ok = store.Get(o.profileID); !ok {
				return fmt.Errorf("unknown profile %q", o.profileID)
			}
		}
		profile.Apply(cfg, p.Values, defaults)
		slog.Info("profile applied", "id", p.ID, "name", p.Name)
	}

	opts := game.Options{Seed: o.seed, Width: o.width, Height: o.height, DPR: o.dpr}
	if o.wavPath != "" {
		src, err := audio.LoadWAV(o.wavPath, cfg.Audio.FFTSize)
		if err != nil {
			return err
		}
		opts.Audio = src
	}

	if err := os.MkdirAll(o.outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	written := 0
	for i := 1; i <= o.frames; i++ {
		layer := g.Update(1.0/60, nil)
		if i%o.every != 0 {
			continue
		}
		path := filepath.Join(o.outDir, fmt.Sprintf("frame_%05d.png", i))
		if err := writePNG(path, layer.Image); err != nil {
			return err
		}
		written++
	}
	slog.Info("render complete", "frames", o.frames, "written", written, "dir", o.outDir)
	return nil
}

// backdrop is the opaque colour the translucent layer is flattened onto.
var backdrop = color.NRGBA{R: 12, G: 13, B: 17, A: 255}

// writePNG flattens img over the backdrop and encodes it.
func writePNG(path string, img *image.NRGBA) error {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Particles.Count != 180 {
		t.Errorf("expected 180 particles, got %d", cfg.Particles.Count)
	}
	if math.Abs(cfg.Physics.FixedStep-1.0/120.0) > 1e-12 {
		t.Errorf("expected fixed step 1/120, got %f", cfg.Physics.FixedStep)
	}
	if cfg.Derived.DriveShape != DriveInOut {
		t.Errorf("expected inout drive shape, got %v", cfg.Derived.DriveShape)
	}
	if cfg.Derived.FluidRGB[2] != 1 {
		t.Errorf("expected fluid blue channel 1, got %f", cfg.Derived.FluidRGB[2])
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("particles:\n  count: 64\ndrive:\n  mode: gate\nmaterial:\n  color: \"#ABCDEF\"\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Particles.Count != 64 {
		t.Errorf("expected overlay count 64, got %d", cfg.Particles.Count)
	}
	if cfg.Derived.DriveShape != DriveGate {
		t.Errorf("expected gate drive shape")
	}
	if cfg.Material.ColorHex != "#abcdef" {
		t.Errorf("expected lowercase colour, got %q", cfg.Material.ColorHex)
	}
	// Untouched sections keep their defaults
	if cfg.Magnet.Strength != 1753 {
		t.Errorf("expected default magnet strength, got %f", cfg.Magnet.Strength)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestSanitizeReplacesNonFinite(t *testing.T) {
	defaults := Defaults()
	cfg := Defaults()
	cfg.Magnet.Strength = math.NaN()
	cfg.Physics.Gravity = math.Inf(1)
	cfg.Light.Exposure = math.Inf(-1)
	cfg.Drive.Mode = "sideways"
	cfg.Light.ColorHex = "red"
	cfg.Particles.Count = -4

	cfg.Sanitize(defaults)

	if cfg.Magnet.Strength != defaults.Magnet.Strength {
		t.Errorf("NaN not replaced: %f", cfg.Magnet.Strength)
	}
	if cfg.Physics.Gravity != defaults.Physics.Gravity {
		t.Errorf("+Inf not replaced: %f", cfg.Physics.Gravity)
	}
	if cfg.Light.Exposure != defaults.Light.Exposure {
		t.Errorf("-Inf not replaced: %f", cfg.Light.Exposure)
	}
	if cfg.Drive.Mode != "inout" {
		t.Errorf("invalid drive mode should fall back to inout, got %q", cfg.Drive.Mode)
	}
	if cfg.Light.ColorHex != "#ff0000" {
		t.Errorf("invalid colour should fall back to default, got %q", cfg.Light.ColorHex)
	}
	if cfg.Particles.Count != defaults.Particles.Count {
		t.Errorf("invalid count should fall back, got %d", cfg.Particles.Count)
	}
}

func TestNormalizeHex(t *testing.T) {
	tests := []struct {
		value, fallback, want string
	}{
		{"#00FF00", "#ffffff", "#00ff00"},
		{"  #123abc ", "#ffffff", "#123abc"},
		{"00ff00", "#0000ff", "#0000ff"},
		{"#fff", "#0000ff", "#0000ff"},
		{"#gggggg", "#0000ff", "#0000ff"},
		{"bogus", "also bogus", "#ffffff"},
	}
	for _, tt := range tests {
		if got := NormalizeHex(tt.value, tt.fallback); got != tt.want {
			t.Errorf("NormalizeHex(%q, %q) = %q, want %q", tt.value, tt.fallback, got, tt.want)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	rgb := HexToRGB("#ff8000")
	if rgb[0] != 1 || math.Abs(rgb[1]-128.0/255.0) > 1e-9 || rgb[2] != 0 {
		t.Errorf("unexpected rgb %v", rgb)
	}
	if white := HexToRGB("nope"); white != [3]float64{1, 1, 1} {
		t.Errorf("expected white fallback, got %v", white)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Magnet.Size = 2.25
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load snapshot failed: %v", err)
	}
	if loaded.Magnet.Size != 2.25 {
		t.Errorf("expected magnet size 2.25 after round trip, got %f", loaded.Magnet.Size)
	}
}

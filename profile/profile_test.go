package profile

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/ferrofluid/config"
)

func TestSanitizeFillsDefaults(t *testing.T) {
	defaults := config.Defaults()
	got := Sanitize(Values{
		"magnet.strength":    "2500",
		"magnet.size":        math.NaN(),
		"physics.gravity":    3,
		"drive.mode":         "pulse",
		"drive.manual_pulse": "yes",
		"material.color":     "#ABCDEF",
		"light.color":        "red",
		"not.a.key":          1.0,
	}, defaults)

	if len(got) != len(Params) {
		t.Errorf("expected %d keys, got %d", len(Params), len(got))
	}
	if _, ok := got["not.a.key"]; ok {
		t.Error("expected unknown keys to be dropped")
	}
	tests := []struct {
		key  string
		want any
	}{
		{"magnet.strength", 2500.0},
		{"magnet.size", defaults.Magnet.Size},
		{"physics.gravity", 3.0},
		{"drive.mode", "inout"},
		{"drive.manual_pulse", defaults.Drive.ManualPulse},
		{"material.color", "#abcdef"},
		{"light.color", defaults.Light.ColorHex},
		{"audio.threshold", defaults.Audio.Threshold},
	}
	for _, tt := range tests {
		if got[tt.key] != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.key, tt.want, got[tt.key])
		}
	}
}

func TestApplyCollectRoundTrip(t *testing.T) {
	defaults := config.Defaults()
	values := Collect(defaults, defaults)
	values["magnet.strength"] = 900.5
	values["capsule.roundness"] = 4.25
	values["drive.mode"] = "gate"
	values["drive.audio_reactive"] = false
	values["material.color"] = "#123abc"
	values["physics.cohesion"] = 150.0
	values["physics.repulsion"] = 999.0
	values["physics.center_pull"] = 3.0
	values["physics.cluster_balance"] = 0.9
	values["physics.rejoin_strength"] = 2.0
	values["particles.count"] = 64

	cfg := config.Defaults()
	Apply(cfg, values, defaults)
	if cfg.Derived.DriveShape != config.DriveGate {
		t.Error("expected apply to recompute the drive shape")
	}

	if cfg.Physics.Cohesion != 150 || cfg.Physics.RejoinStrength != 2 || cfg.Particles.Count != 64 {
		t.Errorf("expected tuned physics to apply, got cohesion=%f rejoin=%f count=%d",
			cfg.Physics.Cohesion, cfg.Physics.RejoinStrength, cfg.Particles.Count)
	}

	collected := Collect(cfg, defaults)
	for _, p := range Params {
		if collected[p.Key] != values[p.Key] {
			t.Errorf("%s drifted: %v -> %v", p.Key, values[p.Key], collected[p.Key])
		}
	}

	// A second pass is a fixed point
	again := config.Defaults()
	Apply(again, collected, defaults)
	if *again != *cfg {
		t.Error("expected a second apply to produce the same config")
	}
}

func TestApplyLeavesOtherFields(t *testing.T) {
	defaults := config.Defaults()
	cfg := config.Defaults()
	cfg.Particles.Count = 64
	Apply(cfg, Values{"magnet.size": 2.0}, defaults)
	if cfg.Particles.Count != 64 {
		t.Errorf("expected particle count untouched, got %d", cfg.Particles.Count)
	}
	if cfg.Magnet.Size != 2 {
		t.Errorf("expected magnet size 2, got %f", cfg.Magnet.Size)
	}
}

func TestStoreBuiltIn(t *testing.T) {
	defaults := config.Defaults()
	s := NewStore("", defaults)

	active := s.Active()
	if active.ID != BuiltInID || active.Name != BuiltInName || !active.BuiltIn {
		t.Fatalf("expected the built-in profile active, got %+v", active)
	}
	if err := s.Save(BuiltInID, active.Values); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on save, got %v", err)
	}
	if _, err := s.Delete(BuiltInID); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on delete, got %v", err)
	}
	if _, err := s.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSaveAsAndDelete(t *testing.T) {
	defaults := config.Defaults()
	s := NewStore("", defaults)
	values := Collect(defaults, defaults)

	p, err := s.SaveAs("  ", values)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Profile 1" {
		t.Errorf("expected default name Profile 1, got %q", p.Name)
	}
	if !strings.HasPrefix(p.ID, "custom-") {
		t.Errorf("expected custom id, got %q", p.ID)
	}
	if s.Active().ID != p.ID {
		t.Error("expected the new profile to become active")
	}

	values["magnet.size"] = 3.0
	if err := s.Save(p.ID, values); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(p.ID); got.Values["magnet.size"] != 3.0 {
		t.Errorf("expected saved magnet size 3, got %v", got.Values["magnet.size"])
	}

	fallback, err := s.Delete(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fallback.ID != BuiltInID || s.Active().ID != BuiltInID {
		t.Error("expected delete to fall back to the built-in profile")
	}
	if len(s.Profiles()) != 1 {
		t.Errorf("expected only the built-in profile left, got %d", len(s.Profiles()))
	}
}

func TestStorePersistence(t *testing.T) {
	defaults := config.Defaults()
	path := filepath.Join(t.TempDir(), "nested", "profiles.yaml")

	s, err := OpenStore(path, defaults)
	if err != nil {
		t.Fatalf("OpenStore on a missing file failed: %v", err)
	}
	values := Collect(defaults, defaults)
	values["physics.viscosity"] = 0.5
	p, err := s.SaveAs("Thick", values)
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenStore(path, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Active().ID != p.ID {
		t.Errorf("expected active id %q, got %q", p.ID, reopened.Active().ID)
	}
	got, ok := reopened.Get(p.ID)
	if !ok {
		t.Fatal("expected the saved profile after reopening")
	}
	if got.Name != "Thick" || got.Values["physics.viscosity"] != 0.5 {
		t.Errorf("expected Thick with viscosity 0.5, got %q with %v", got.Name, got.Values["physics.viscosity"])
	}
	if len(reopened.Profiles()) != 2 {
		t.Errorf("expected 2 profiles, got %d", len(reopened.Profiles()))
	}
}

func TestOpenStoreSkipsBadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := []byte(`profiles:
  - id: client-default
    name: Hijack
  - id: ""
    name: Blank
  - id: custom-a
    name: ""
    values:
      magnet.strength: 1200
active_profile_id: gone
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStore(path, config.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	profiles := s.Profiles()
	if len(profiles) != 2 {
		t.Fatalf("expected built-in plus one entry, got %d", len(profiles))
	}
	if profiles[0].Name != BuiltInName {
		t.Errorf("expected the built-in name kept, got %q", profiles[0].Name)
	}
	if profiles[1].Name != "Custom Profile" {
		t.Errorf("expected blank name to become Custom Profile, got %q", profiles[1].Name)
	}
	if profiles[1].Values["magnet.strength"] != 1200.0 {
		t.Errorf("expected magnet strength 1200, got %v", profiles[1].Values["magnet.strength"])
	}
	if s.Active().ID != BuiltInID {
		t.Errorf("expected unknown active id to fall back, got %q", s.Active().ID)
	}
}

func TestOpenStoreRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(path, config.Defaults()); err == nil {
		t.Error("expected a parse error")
	}
}

func TestParticleCountClampedAndPersisted(t *testing.T) {
	defaults := config.Defaults()
	got := Sanitize(Values{"particles.count": 10000.0}, defaults)
	if got["particles.count"] != config.MaxParticles {
		t.Errorf("expected count clamped to %d, got %v", config.MaxParticles, got["particles.count"])
	}
	got = Sanitize(Values{"particles.count": "41.6"}, defaults)
	if got["particles.count"] != 42 {
		t.Errorf("expected count rounded to 42, got %v", got["particles.count"])
	}
	got = Sanitize(Values{"particles.count": -5}, defaults)
	if got["particles.count"] != 1 {
		t.Errorf("expected count clamped to 1, got %v", got["particles.count"])
	}

	cfg := config.Defaults()
	cfg.Particles.Count = 75
	cfg.Physics.Repulsion = 321
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	store := NewStore(path, defaults)
	p, err := store.SaveAs("tuned", Collect(cfg, defaults))
	if err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}

	reopened, err := OpenStore(path, defaults)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	loaded, ok := reopened.Get(p.ID)
	if !ok {
		t.Fatalf("expected profile %s after reopen", p.ID)
	}
	out := config.Defaults()
	Apply(out, loaded.Values, defaults)
	if out.Particles.Count != 75 {
		t.Errorf("expected count 75 after reload, got %d", out.Particles.Count)
	}
	if out.Physics.Repulsion != 321 {
		t.Errorf("expected repulsion 321 after reload, got %f", out.Physics.Repulsion)
	}
}

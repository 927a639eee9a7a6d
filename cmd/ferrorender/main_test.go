package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestWritePNGFlattens(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := writePNG(path, img); err != nil {
		t.Fatalf("writePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding written frame: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("expected 4x2 image, got %dx%d", b.Dx(), b.Dy())
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0xffff {
		t.Errorf("expected an opaque backdrop, got alpha %d", a)
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Errorf("expected the opaque red pixel kept, got red %d", r)
	}
}

func TestRunWritesFrames(t *testing.T) {
	dir := t.TempDir()
	err := run(options{
		outDir: dir,
		frames: 4,
		every:  2,
		width:  320,
		height: 240,
		dpr:    1,
		seed:   1,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, name := range []string{"frame_00002.png", "frame_00004.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

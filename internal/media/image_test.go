package media

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"photoref/internal/testutil"
)

func TestGetImageDimensions(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		path  string
		wantW int
		wantH int
	}{
		{"jpeg", testutil.WriteJPEG(t, dir, "a.jpg", 120, 80), 120, 80},
		{"png", testutil.WritePNG(t, dir, "b.png", 33, 44), 33, 44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, err := GetImageDimensions(tt.path)
			if err != nil {
				t.Fatalf("GetImageDimensions() error = %v", err)
			}
			if dims.Width != tt.wantW || dims.Height != tt.wantH {
				t.Errorf("GetImageDimensions() = %dx%d, want %dx%d", dims.Width, dims.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestGetImageDimensionsUnavailable(t *testing.T) {
	dir := t.TempDir()

	if _, err := GetImageDimensions(filepath.Join(dir, "nope.jpg")); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("missing file: expected ErrSourceUnavailable, got %v", err)
	}

	bad := testutil.WriteFile(t, dir, "bad.png", []byte("garbage"))
	if _, err := GetImageDimensions(bad); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("undecodable file: expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadImageAppliesOrientation(t *testing.T) {
	dir := t.TempDir()

	// Orientation 6 means the stored pixels must be rotated 90 degrees clockwise.
	data := testutil.JPEG(t, testutil.Solid(40, 20, color.White), []testutil.ExifTag{
		testutil.Short(testutil.TagOrientation, 6),
	}, nil)
	path := testutil.WriteFile(t, dir, "rotated.jpg", data)

	img, err := LoadImage(path, 100)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("LoadImage() bounds = %dx%d, want 20x40", b.Dx(), b.Dy())
	}
}

func TestLoadImageUnavailable(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteFile(t, dir, "bad.jpg", []byte("garbage"))

	if _, err := LoadImage(bad, 100); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

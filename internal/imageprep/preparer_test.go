package imageprep

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/entity"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testPhoto(t *testing.T, w, h int) entity.CapturedPhoto {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return entity.CapturedPhoto{Base64: base64.StdEncoding.EncodeToString(buf.Bytes()), Width: w, Height: h}
}

func decodedSize(t *testing.T, b64 string) (int, int) {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode image: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestFrameCropCentered(t *testing.T) {
	testCases := []struct {
		name    string
		w, h    int
		framing entity.FramingInfo
	}{
		{
			name:    "equal aspect ratio",
			w:       1000,
			h:       1500,
			framing: entity.FramingInfo{ScreenWidth: 400, ScreenHeight: 800, FrameLeft: 50, FrameTop: 175, FrameWidth: 300, FrameHeight: 450},
		},
		{
			name:    "image wider than frame",
			w:       2000,
			h:       1000,
			framing: entity.FramingInfo{ScreenWidth: 400, ScreenHeight: 800, FrameLeft: 30, FrameTop: 204.5, FrameWidth: 340, FrameHeight: 391},
		},
		{
			name:    "image taller than frame",
			w:       800,
			h:       2400,
			framing: entity.FramingInfo{ScreenWidth: 400, ScreenHeight: 800, FrameLeft: 0, FrameTop: 200, FrameWidth: 400, FrameHeight: 400},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := FrameCrop(tc.w, tc.h, tc.framing)
			wantX := (tc.w - r.Dx()) / 2
			wantY := (tc.h - r.Dy()) / 2
			if r.Min.X != wantX || r.Min.Y != wantY {
				t.Fatalf("origin = %v, want (%d,%d)", r.Min, wantX, wantY)
			}
			gotAR := float64(r.Dx()) / float64(r.Dy())
			wantAR := tc.framing.FrameWidth / tc.framing.FrameHeight
			if d := gotAR - wantAR; d > 0.01 || d < -0.01 {
				t.Errorf("crop aspect %.3f, want %.3f", gotAR, wantAR)
			}
		})
	}
}

func TestFrameCropFollowsOffCenterFrame(t *testing.T) {
	// frame center sits 100pt above the screen center: normY = -0.125
	f := entity.FramingInfo{ScreenWidth: 400, ScreenHeight: 800, FrameLeft: 0, FrameTop: 100, FrameWidth: 400, FrameHeight: 400}
	r := FrameCrop(1000, 2000, f)
	if r != image.Rect(0, 250, 1000, 1250) {
		t.Fatalf("crop = %v", r)
	}

	// far off-screen frames are clamped into the image
	f.FrameTop = 5000
	r = FrameCrop(1000, 2000, f)
	if r.Min.Y != 1000 || r.Max.Y != 2000 {
		t.Fatalf("clamped crop = %v", r)
	}
}

func TestPrepareWithoutArtifactDirDropsOriginalURI(t *testing.T) {
	p := NewPreparer("", discard)
	photo := testPhoto(t, 120, 80)
	photo.URI = "/photos/original.jpg"
	out, err := p.Prepare(context.Background(), photo, Options{TargetWidth: 60, Compression: 0.8, Format: constants.FormatJPEG})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if out.URI != "" || out.Temporary {
		t.Fatalf("prepared image points at %q, want inline data only", out.URI)
	}
	if w, _ := decodedSize(t, out.Base64); w != 60 {
		t.Fatalf("width = %d, want 60", w)
	}
}

func TestPrepareResizes(t *testing.T) {
	p := NewPreparer("", discard)
	out, err := p.Prepare(context.Background(), testPhoto(t, 200, 300), Options{TargetWidth: 100, Compression: 0.9, Format: constants.FormatPNG})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if out.MimeType != "image/png" || out.URI != "" || out.Temporary {
		t.Fatalf("unexpected prepared image meta: %+v", out)
	}
	if w, h := decodedSize(t, out.Base64); w != 100 || h != 150 {
		t.Fatalf("size = %dx%d, want 100x150", w, h)
	}
}

func TestPrepareRotationSkipsCrop(t *testing.T) {
	p := NewPreparer("", discard)
	framing := &entity.FramingInfo{ScreenWidth: 100, ScreenHeight: 100, FrameWidth: 100, FrameHeight: 100}
	out, err := p.Prepare(context.Background(), testPhoto(t, 200, 100), Options{TargetWidth: 50, Compression: 0.8, Format: constants.FormatJPEG, Framing: framing, RotateDegrees: 90})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if out.MimeType != "image/jpeg" {
		t.Fatalf("mime = %s", out.MimeType)
	}
	if w, h := decodedSize(t, out.Base64); w != 50 || h != 100 {
		t.Fatalf("size = %dx%d, want 50x100 (rotated, uncropped)", w, h)
	}
}

func TestPrepareCropsToFrame(t *testing.T) {
	p := NewPreparer("", discard)
	framing := &entity.FramingInfo{ScreenWidth: 300, ScreenHeight: 600, FrameLeft: 50, FrameTop: 200, FrameWidth: 200, FrameHeight: 200}
	out, err := p.Prepare(context.Background(), testPhoto(t, 200, 400), Options{TargetWidth: 100, Compression: 0.9, Format: constants.FormatPNG, Framing: framing})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if w, h := decodedSize(t, out.Base64); w != 100 || h != 100 {
		t.Fatalf("size = %dx%d, want 100x100", w, h)
	}
}

func TestPrepareWritesAndReleasesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	p := NewPreparer(dir, discard)
	out, err := p.Prepare(context.Background(), testPhoto(t, 40, 40), Options{TargetWidth: 20, Compression: 0.7, Format: constants.FormatJPEG})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !out.Temporary || filepath.Dir(out.URI) != dir {
		t.Fatalf("expected temporary artifact in %s, got %+v", dir, out)
	}
	if _, err := os.Stat(out.URI); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	p.Release(out)
	if _, err := os.Stat(out.URI); !os.IsNotExist(err) {
		t.Fatalf("artifact not removed: %v", err)
	}
}

func TestPrepareFallsBackToOriginal(t *testing.T) {
	p := NewPreparer("", discard)
	garbage := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))

	out, err := p.Prepare(context.Background(), entity.CapturedPhoto{URI: "/photos/a.heic", Base64: garbage}, Options{TargetWidth: 100, Format: constants.FormatPNG})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if out.Base64 != garbage || out.URI != "/photos/a.heic" || out.MimeType != "image/jpeg" || out.Temporary {
		t.Fatalf("unexpected fallback: %+v", out)
	}
}

func TestPrepareFallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.jpg")
	if err := os.WriteFile(path, []byte("raw-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewPreparer("", discard)
	out, err := p.Prepare(context.Background(), entity.CapturedPhoto{URI: path}, Options{TargetWidth: 100})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if out.Base64 != base64.StdEncoding.EncodeToString([]byte("raw-bytes")) || out.URI != path {
		t.Fatalf("unexpected fallback: %+v", out)
	}

	if _, err := p.Prepare(context.Background(), entity.CapturedPhoto{}, Options{}); err == nil {
		t.Fatal("expected error for a photo without data")
	}
}

func TestDecodeBase64AcceptsDataURI(t *testing.T) {
	b, err := DecodeBase64("data:image/png;base64,QUJD")
	if err != nil || string(b) != "ABC" {
		t.Fatalf("DecodeBase64() = %q, %v", b, err)
	}
}

// Package imageprep turns camera photos into images an OCR provider reads well.
package imageprep

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // photos from Android devices

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/entity"
)

// Options describe one preparation pass.
type Options struct {
	TargetWidth   int
	Compression   float64 // 0..1, 1 = best quality
	Format        constants.ImageFormat
	Framing       *entity.FramingInfo
	RotateDegrees int // clockwise; disables framing crop when not a multiple of 360
}

// OptionsFromProfile builds preparation options for a profile rung.
func OptionsFromProfile(p entity.PreparationProfile, framing *entity.FramingInfo, rotate int) Options {
	return Options{
		TargetWidth:   p.TargetWidth,
		Compression:   p.Compression,
		Format:        p.Format,
		Framing:       framing,
		RotateDegrees: rotate,
	}
}

type Preparer struct {
	artifactDir string
	logger      *slog.Logger
}

// NewPreparer returns a Preparer. When artifactDir is set every prepared image is
// also written there so it can be uploaded as a file; callers delete it afterwards.
func NewPreparer(artifactDir string, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{artifactDir: artifactDir, logger: logger}
}

// Prepare crops, rotates, resizes and re-encodes a photo. Any failure falls back
// to the original bytes tagged as JPEG; an error is returned only when even
// those cannot be read.
func (p *Preparer) Prepare(ctx context.Context, photo entity.CapturedPhoto, opts Options) (entity.PreparedImage, error) {
	if err := ctx.Err(); err != nil {
		return entity.PreparedImage{}, err
	}
	out, err := p.prepare(photo, opts)
	if err == nil {
		return out, nil
	}
	p.logger.Warn("imageprep.optimize_failed",
		"uri", photo.URI,
		"target_width", opts.TargetWidth,
		"rotate", opts.RotateDegrees,
		"error", err,
	)
	return p.fallback(photo)
}

func (p *Preparer) prepare(photo entity.CapturedPhoto, opts Options) (entity.PreparedImage, error) {
	img, err := decode(photo)
	if err != nil {
		return entity.PreparedImage{}, err
	}

	if rot := normalizeDegrees(opts.RotateDegrees); rot != 0 {
		img = rotateClockwise(img, rot)
	} else if opts.Framing.Valid() {
		b := img.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			img = imaging.Crop(img, FrameCrop(b.Dx(), b.Dy(), *opts.Framing).Add(b.Min))
		}
	}

	if opts.TargetWidth > 0 {
		img = imaging.Resize(img, opts.TargetWidth, 0, imaging.Lanczos)
	}

	format := opts.Format
	if format != constants.FormatPNG {
		format = constants.FormatJPEG
	}
	var buf bytes.Buffer
	if err := encode(&buf, img, format, opts.Compression); err != nil {
		return entity.PreparedImage{}, err
	}

	out := entity.PreparedImage{
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: format.MimeType(),
	}
	if p.artifactDir != "" {
		path, err := p.writeArtifact(buf.Bytes(), format)
		if err != nil {
			// inline base64 still works without the file
			p.logger.Warn("imageprep.artifact_write_failed", "dir", p.artifactDir, "error", err)
		} else {
			out.URI, out.Temporary = path, true
		}
	}

	b := img.Bounds()
	p.logger.Debug("imageprep.prepared",
		"width", b.Dx(),
		"height", b.Dy(),
		"format", format,
		"bytes", buf.Len(),
	)
	return out, nil
}

func (p *Preparer) fallback(photo entity.CapturedPhoto) (entity.PreparedImage, error) {
	if !photo.HasData() {
		return entity.PreparedImage{}, errors.New("photo has neither data nor uri")
	}
	b64 := photo.Base64
	if b64 == "" {
		data, err := os.ReadFile(photo.URI)
		if err != nil {
			return entity.PreparedImage{}, fmt.Errorf("read original photo: %w", err)
		}
		b64 = base64.StdEncoding.EncodeToString(data)
	}
	return entity.PreparedImage{
		Base64:   b64,
		URI:      photo.URI,
		MimeType: constants.DefaultMimeType,
	}, nil
}

// Release removes a temporary artifact produced by Prepare.
func (p *Preparer) Release(img entity.PreparedImage) {
	if !img.Temporary || img.URI == "" {
		return
	}
	if err := os.Remove(img.URI); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("imageprep.artifact_remove_failed", "path", img.URI, "error", err)
	}
}

func (p *Preparer) writeArtifact(data []byte, format constants.ImageFormat) (string, error) {
	if err := os.MkdirAll(p.artifactDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.artifactDir, "prep-"+uuid.New().String()+"."+string(format))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func decode(photo entity.CapturedPhoto) (image.Image, error) {
	if photo.Base64 != "" {
		data, err := DecodeBase64(photo.Base64)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	}
	if photo.URI == "" {
		return nil, errors.New("photo has neither data nor uri")
	}
	img, err := imaging.Open(photo.URI, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", photo.URI, err)
	}
	return img, nil
}

// DecodeBase64 accepts raw base64 or a data URI.
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func encode(w io.Writer, img image.Image, format constants.ImageFormat, compression float64) error {
	if format == constants.FormatPNG {
		level := png.DefaultCompression
		if compression > 0 && compression < 0.8 {
			level = png.BestCompression
		}
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	}
	q := int(math.Round(compression * 100))
	if compression <= 0 {
		q = 90
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(max(1, min(100, q))))
}

func normalizeDegrees(d int) int {
	return ((d % 360) + 360) % 360
}

// rotateClockwise rotates img; imaging rotates counter-clockwise.
func rotateClockwise(img image.Image, deg int) image.Image {
	switch deg {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, -float64(deg), color.White)
	}
}

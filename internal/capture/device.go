package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
)

// Device is the camera capability the orchestrator drives.
type Device interface {
	SetZoom(ctx context.Context, zoom float64) error
	Zoom() float64
	TakePicture(ctx context.Context) (entity.CapturedPhoto, error)
}

// Kind selects a Device implementation at startup.
type Kind string

const (
	// KindFiles replays an explicit list of photo files.
	KindFiles Kind = "files"
	// KindDir replays every image found under a directory, sorted by path.
	KindDir Kind = "dir"
	// KindWatch waits for new images to land in a directory (a synced camera folder).
	KindWatch Kind = "watch"
)

// maxDigitalZoom is the magnification at zoom 1.0.
const maxDigitalZoom = 2.0

// NewDevice builds the device for kind. For KindFiles sources are photo paths;
// for KindDir and KindWatch the first source is the directory. Devices that
// hold resources implement io.Closer.
func NewDevice(kind Kind, sources []string, logger *slog.Logger) (Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch kind {
	case KindFiles:
		if len(sources) == 0 {
			return nil, errors.New("at least one photo file is required")
		}
		return &fileDevice{paths: sources, logger: logger}, nil
	case KindDir:
		if len(sources) == 0 || strings.TrimSpace(sources[0]) == "" {
			return nil, errors.New("root directory is required")
		}
		paths, err := listImages(sources[0], true)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images found under %s", sources[0])
		}
		logger.Debug("capture.dir.scanned", "root", sources[0], "images", len(paths))
		return &fileDevice{paths: paths, logger: logger}, nil
	case KindWatch:
		if len(sources) == 0 || strings.TrimSpace(sources[0]) == "" {
			return nil, errors.New("watch directory is required")
		}
		return newWatchDevice(sources[0], logger)
	default:
		return nil, fmt.Errorf("unknown capture device %q (want files, dir or watch)", kind)
	}
}

// fileDevice replays still images as camera shots, cycling through its paths.
// Zoom is applied digitally as a center crop.
type fileDevice struct {
	mu     sync.Mutex
	paths  []string
	next   int
	zoom   float64
	logger *slog.Logger
}

func (d *fileDevice) SetZoom(_ context.Context, zoom float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = clampZoom(zoom)
	return nil
}

func (d *fileDevice) Zoom() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoom
}

func (d *fileDevice) TakePicture(ctx context.Context) (entity.CapturedPhoto, error) {
	if err := ctx.Err(); err != nil {
		return entity.CapturedPhoto{}, err
	}
	d.mu.Lock()
	path := d.paths[d.next%len(d.paths)]
	d.next++
	zoom := d.zoom
	d.mu.Unlock()

	return readShot(path, zoom, d.logger)
}

// readShot loads path as a camera shot, applying a digital zoom in [0,1].
func readShot(path string, zoom float64, logger *slog.Logger) (entity.CapturedPhoto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.CapturedPhoto{}, fmt.Errorf("read %s: %w", path, err)
	}
	if zoom <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return entity.CapturedPhoto{}, fmt.Errorf("decode %s: %w", path, err)
		}
		return entity.CapturedPhoto{
			URI:    path,
			Base64: base64.StdEncoding.EncodeToString(data),
			Width:  cfg.Width,
			Height: cfg.Height,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return entity.CapturedPhoto{}, fmt.Errorf("decode %s: %w", path, err)
	}
	scale := 1 + zoom*(maxDigitalZoom-1)
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())/scale))
	h := max(1, int(float64(b.Dy())/scale))
	zoomed := imaging.CropCenter(img, w, h)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, zoomed, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return entity.CapturedPhoto{}, fmt.Errorf("encode zoomed %s: %w", path, err)
	}
	logger.Debug("capture.file.zoomed", "path", path, "zoom", zoom, "width", w, "height", h)
	return entity.CapturedPhoto{
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  w,
		Height: h,
	}, nil
}

// listImages walks root and returns the supported image files in path order.
func listImages(root string, skipHidden bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if allowedExt(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "walk "+root)
	}
	sort.Strings(paths)
	return paths, nil
}

func allowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func clampZoom(z float64) float64 {
	return max(0, min(1, z))
}

package capture

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/notescan/internal/entity"
)

// watchDebounce coalesces the write bursts of a file being copied in.
const watchDebounce = 300 * time.Millisecond

// watchDevice hands out each new image that appears under root, oldest first.
type watchDevice struct {
	mu     sync.Mutex
	zoom   float64
	shots  chan string
	errs   chan error
	cancel context.CancelFunc
	logger *slog.Logger
}

func newWatchDevice(root string, logger *slog.Logger) (*watchDevice, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() && (path == root || !isHidden(path)) {
			return w.Add(path)
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &watchDevice{
		shots:  make(chan string, 64),
		errs:   make(chan error, 1),
		cancel: cancel,
		logger: logger,
	}
	go d.loop(ctx, w)
	logger.Info("capture.watch.started", "root", root)
	return d, nil
}

func (d *watchDevice) loop(ctx context.Context, w *fsnotify.Watcher) {
	defer func() {
		if err := w.Close(); err != nil {
			d.logger.Warn("capture.watch.close_failed", "error", err)
		}
	}()

	var (
		mu      sync.Mutex
		pending = map[string]*time.Timer{}
	)
	emit := func(path string) {
		mu.Lock()
		delete(pending, path)
		mu.Unlock()
		select {
		case d.shots <- path:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Has(fsnotify.Create) && !isHidden(e.Name) {
				// new subdirectories are watched too; files make Add fail harmlessly
				_ = w.Add(e.Name)
			}
			// Rename carries the old name; the new name arrives as its own Create.
			if isHidden(e.Name) || !allowedExt(filepath.Ext(e.Name)) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
				continue
			}
			path := e.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Reset(watchDebounce)
			} else {
				pending[path] = time.AfterFunc(watchDebounce, func() { emit(path) })
			}
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.logger.Error("capture.watch.error", "error", err)
			select {
			case d.errs <- err:
			default:
			}
		}
	}
}

func (d *watchDevice) SetZoom(_ context.Context, zoom float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = clampZoom(zoom)
	return nil
}

func (d *watchDevice) Zoom() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoom
}

// TakePicture blocks until the next image arrives. Images removed or renamed
// away before their turn are skipped.
func (d *watchDevice) TakePicture(ctx context.Context) (entity.CapturedPhoto, error) {
	for {
		select {
		case <-ctx.Done():
			return entity.CapturedPhoto{}, ctx.Err()
		case err := <-d.errs:
			return entity.CapturedPhoto{}, err
		case path, ok := <-d.shots:
			if !ok {
				return entity.CapturedPhoto{}, errors.New("watch device closed")
			}
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				d.logger.Debug("capture.watch.gone", "path", path)
				continue
			}
			d.logger.Debug("capture.watch.shot", "path", path)
			return readShot(path, d.Zoom(), d.logger)
		}
	}
}

func (d *watchDevice) Close() error {
	d.cancel()
	return nil
}

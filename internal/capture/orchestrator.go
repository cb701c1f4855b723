// Package capture drives a camera device through a three-shot zoom burst and
// hands the photos to the scan pipeline.
package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

const (
	DefaultSettleDelay = time.Second

	zoomInStep  = 0.1
	zoomOutStep = 0.7
)

var errTakePhoto = common.UserError(common.ErrCapture, "Failed to take photo. Please try again.")

type SessionRunner interface {
	RunSession(ctx context.Context, photos []entity.CapturedPhoto, opts pipeline.SessionOptions) (string, error)
}

type Orchestrator struct {
	device Device
	runner SessionRunner
	settle time.Duration
	sleep  func(context.Context, time.Duration) error
	logger *slog.Logger
}

// NewOrchestrator returns an orchestrator that waits settle before every shot;
// settle <= 0 uses DefaultSettleDelay.
func NewOrchestrator(device Device, runner SessionRunner, settle time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Orchestrator{device: device, runner: runner, settle: settle, sleep: common.Sleep, logger: logger}
}

// Burst takes three shots at the current zoom, slightly zoomed in and zoomed
// out, then restores the original zoom. Every photo carries the framing of vp.
func (o *Orchestrator) Burst(ctx context.Context, vp Viewport) ([]entity.CapturedPhoto, error) {
	base := o.device.Zoom()
	zooms := []float64{base, clampZoom(base + zoomInStep), clampZoom(base - zoomOutStep)}
	defer func() {
		if err := o.device.SetZoom(context.WithoutCancel(ctx), base); err != nil {
			o.logger.Warn("capture.zoom.restore_failed", "zoom", base, "error", err)
		}
	}()

	framing := FramingFor(vp)
	photos := make([]entity.CapturedPhoto, 0, len(zooms))
	for i, z := range zooms {
		if err := o.device.SetZoom(ctx, z); err != nil {
			o.logger.Error("capture.zoom.failed", "shot", i, "zoom", z, "error", err)
			return nil, errTakePhoto
		}
		if err := o.sleep(ctx, o.settle); err != nil {
			return nil, err
		}
		photo, err := o.device.TakePicture(ctx)
		if err != nil {
			o.logger.Error("capture.shot.failed", "shot", i, "zoom", z, "error", err)
			return nil, errTakePhoto
		}
		f := framing
		photo.Framing = &f
		photos = append(photos, photo)
		o.logger.Debug("capture.shot.ok", "shot", i, "zoom", z, "width", photo.Width, "height", photo.Height)
	}
	return photos, nil
}

// Scan runs a burst and extracts the text of the captured photos.
func (o *Orchestrator) Scan(ctx context.Context, vp Viewport, opts pipeline.SessionOptions) (string, error) {
	photos, err := o.Burst(ctx, vp)
	if err != nil {
		return "", err
	}
	return o.runner.RunSession(ctx, photos, opts)
}

// Package pipeline runs a scan session: every photo through every preparation
// profile until the best text is found.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/extract"
	"github.com/joseph-ayodele/notescan/internal/imageprep"
	"github.com/joseph-ayodele/notescan/internal/ocr"
)

const (
	primaryRetries     = 2
	primaryRetryDelay  = 2 * time.Second
	rotationRetries    = 1
	rotationRetryDelay = time.Second
	failureBackoff     = 500 * time.Millisecond
)

var (
	rotations = []int{90, 270}

	errExtractFailed = common.UserError(common.ErrProvider, "Failed to extract text from image.")
)

type Preparer interface {
	Prepare(ctx context.Context, photo entity.CapturedPhoto, opts imageprep.Options) (entity.PreparedImage, error)
	Release(img entity.PreparedImage)
}

type TextExtractor interface {
	Extract(ctx context.Context, req extract.Request) (string, error)
	Refine(ctx context.Context, text, language string) string
	UsingDemoKey() bool
}

type SessionOptions struct {
	Accuracy constants.Accuracy
	Language string
	Provider constants.Provider
}

// Controller owns the retry and fallback policy of a scan session.
type Controller struct {
	prep   Preparer
	ext    TextExtractor
	sleep  func(context.Context, time.Duration) error
	logger *slog.Logger
}

func NewController(prep Preparer, ext TextExtractor, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{prep: prep, ext: ext, sleep: common.Sleep, logger: logger}
}

// RunSession extracts text from the photos of one capture and returns the best
// candidate after refinement. It fails only when no attempt succeeded.
func (c *Controller) RunSession(ctx context.Context, photos []entity.CapturedPhoto, opts SessionOptions) (string, error) {
	sid := common.SessionIDFromContext(ctx)
	if sid == "" {
		sid = uuid.New().String()
		ctx = common.WithSessionID(ctx, sid)
	}
	if opts.Accuracy == "" {
		opts.Accuracy = constants.DefaultAccuracy
	}
	start := time.Now()
	profiles := DefaultProfiles(c.ext.UsingDemoKey())

	c.logger.Info("pipeline.session.start",
		"session_id", sid,
		"photos", len(photos),
		"profiles", len(profiles),
		"accuracy", opts.Accuracy,
		"provider", opts.Provider,
		"language", opts.Language,
	)

	var (
		best    entity.CandidateResult
		found   bool
		lastErr error
	)
	keep := func(cand entity.CandidateResult) {
		if !found || cand.Score > best.Score {
			best, found = cand, true
		}
	}

	for pi, photo := range photos {
		for attempt, profile := range profiles {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			cand, err := c.try(ctx, photo, profile, photo.Framing, 0, opts, primaryRetries, primaryRetryDelay)
			if err != nil {
				if errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrMissingAPIKey) {
					c.logger.Error("pipeline.session.aborted", "session_id", sid, "photo", pi, "error", err)
					return "", err
				}
				lastErr = err
				c.logger.Warn("pipeline.attempt.failed",
					"session_id", sid,
					"photo", pi,
					"attempt", attempt,
					"width", profile.TargetWidth,
					"engine", profile.Engine,
					"error", err,
				)
				if serr := c.sleep(ctx, failureBackoff*time.Duration(attempt+1)); serr != nil {
					return "", serr
				}
				continue
			}
			keep(cand)
			c.logger.Debug("pipeline.attempt.ok",
				"session_id", sid,
				"photo", pi,
				"attempt", attempt,
				"score", cand.Score,
			)

			if opts.Accuracy == constants.AccuracyFast {
				break
			}
			if cand.Score < ocr.MinUsableScore {
				for _, deg := range rotations {
					rc, err := c.try(ctx, photo, profile, nil, deg, opts, rotationRetries, rotationRetryDelay)
					if err != nil {
						c.logger.Debug("pipeline.rotation.failed", "session_id", sid, "degrees", deg, "error", err)
						continue
					}
					keep(rc)
				}
			}
		}
	}

	if !found {
		if lastErr == nil {
			lastErr = errExtractFailed
		}
		c.logger.Error("pipeline.session.failed",
			"session_id", sid,
			"error", lastErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", lastErr
	}

	text := c.ext.Refine(ctx, best.CleanedText, opts.Language)
	c.logger.Info("pipeline.session.ok",
		"session_id", sid,
		"score", best.Score,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// try prepares one candidate image, extracts it and scores the cleaned text.
func (c *Controller) try(ctx context.Context, photo entity.CapturedPhoto, profile entity.PreparationProfile,
	framing *entity.FramingInfo, rotate int, opts SessionOptions, retries int, delay time.Duration,
) (entity.CandidateResult, error) {
	img, err := c.prep.Prepare(ctx, photo, imageprep.OptionsFromProfile(profile, framing, rotate))
	if err != nil {
		return entity.CandidateResult{}, err
	}
	defer c.prep.Release(img)

	raw, err := c.ext.Extract(ctx, extract.Request{
		ImageData:  img.Base64,
		FileURI:    img.URI,
		MimeType:   img.MimeType,
		Engine:     profile.Engine,
		Language:   opts.Language,
		Provider:   opts.Provider,
		Retries:    retries,
		RetryDelay: delay,
	})
	if err != nil {
		return entity.CandidateResult{}, err
	}
	if strings.TrimSpace(raw) == extract.NoTextFound {
		return entity.CandidateResult{}, common.UserError(common.ErrEmptyResult, extract.NoTextFound)
	}
	cleaned := ocr.PostProcess(raw)
	return entity.CandidateResult{RawText: raw, CleanedText: cleaned, Score: ocr.Score(cleaned)}, nil
}

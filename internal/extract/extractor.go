// Package extract picks a text-extraction provider for a prepared image and
// combines providers when asked for the best result.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/ocr"
	"github.com/joseph-ayodele/notescan/internal/ocrspace"
)

type Extractor struct {
	classic      ClassicProvider
	vision       VisionProvider
	forceClassic bool
	sleep        func(context.Context, time.Duration) error
	logger       *slog.Logger
}

// NewExtractor wires both providers. forceClassic keeps automatic selection and
// the best-of composite away from the vision model.
func NewExtractor(classic ClassicProvider, vision VisionProvider, forceClassic bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		classic:      classic,
		vision:       vision,
		forceClassic: forceClassic,
		sleep:        common.Sleep,
		logger:       logger,
	}
}

// UsingDemoKey reports whether the classic provider runs on the shared demo key.
func (e *Extractor) UsingDemoKey() bool { return e.classic.UsingDemoKey() }

// Resolve maps ProviderAuto onto a concrete provider.
func (e *Extractor) Resolve(p constants.Provider) constants.Provider {
	if p != constants.ProviderAuto {
		return p
	}
	if e.vision.HasAPIKey() && !e.forceClassic {
		return constants.ProviderOpenAI
	}
	return constants.ProviderOCRSpace
}

// Extract returns the raw text of one image from the selected provider.
func (e *Extractor) Extract(ctx context.Context, req Request) (string, error) {
	if req.ImageData == "" && req.FileURI == "" {
		return "", common.UserError(common.ErrInvalidInput, "No image data supplied for OCR.")
	}
	provider := e.Resolve(req.Provider)
	e.logger.Debug("extract.start",
		"provider", provider,
		"requested", req.Provider,
		"engine", req.Engine,
		"has_inline", req.ImageData != "",
		"has_file", req.FileURI != "",
	)

	switch provider {
	case constants.ProviderOpenAI:
		return e.extractWithVision(ctx, req)
	case constants.ProviderBest:
		return e.extractWithBest(ctx, req)
	default:
		return e.extractWithClassic(ctx, req)
	}
}

func (e *Extractor) extractWithVision(ctx context.Context, req Request) (string, error) {
	if req.ImageData == "" {
		return "", common.UserError(common.ErrInvalidInput, "Unable to generate OCR payload. Please retake the photo.")
	}
	return e.vision.ExtractText(ctx, req.ImageData, req.MimeType, req.Language)
}

// extractWithClassic retries timeouts only, waiting RetryDelay × attempt between tries.
func (e *Extractor) extractWithClassic(ctx context.Context, req Request) (string, error) {
	creq := ocrspace.Request{
		ImageData: req.ImageData,
		FileURI:   req.FileURI,
		MimeType:  req.MimeType,
		Language:  req.Language,
		Engine:    req.Engine,
	}
	for attempt := 0; ; attempt++ {
		text, err := e.classic.Recognize(ctx, creq)
		if err == nil {
			return text, nil
		}
		if attempt >= req.Retries || !common.IsRetryable(err) {
			return "", err
		}
		delay := req.RetryDelay * time.Duration(attempt+1)
		e.logger.Warn("extract.classic.retry", "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)
		if serr := e.sleep(ctx, delay); serr != nil {
			return "", err
		}
	}
}

func (e *Extractor) visionUsable(req Request) bool {
	return e.vision.HasAPIKey() && !e.forceClassic && req.ImageData != ""
}

// extractWithBest asks the classic provider first and only pays for the vision
// model when the classic text is weak.
func (e *Extractor) extractWithBest(ctx context.Context, req Request) (string, error) {
	text, err := e.extractWithClassic(ctx, req)
	if err != nil {
		if e.visionUsable(req) {
			e.logger.Info("extract.best.classic_failed", "error", err)
			return e.vision.ExtractText(ctx, req.ImageData, req.MimeType, req.Language)
		}
		return "", err
	}
	if !e.visionUsable(req) {
		return text, nil
	}

	var cleaned string
	var score float64
	if strings.TrimSpace(text) != NoTextFound {
		cleaned = ocr.PostProcess(text)
		score = ocr.Score(cleaned)
	}
	if ocr.Usable(cleaned, score) {
		return cleaned, nil
	}

	vtext, verr := e.vision.ExtractText(ctx, req.ImageData, req.MimeType, req.Language)
	if verr != nil {
		e.logger.Warn("extract.best.vision_failed", "classic_score", score, "error", verr)
		if cleaned == "" {
			return text, nil
		}
		return cleaned, nil
	}
	vcleaned := ocr.PostProcess(vtext)
	vscore := ocr.Score(vcleaned)
	e.logger.Info("extract.best.compared", "classic_score", score, "vision_score", vscore)
	if vscore >= score {
		return vcleaned, nil
	}
	return cleaned, nil
}

// Refine proofreads text with the vision model. It never fails: without a key or
// on any error the input comes back unchanged.
func (e *Extractor) Refine(ctx context.Context, text, language string) string {
	if !e.vision.HasAPIKey() {
		return text
	}
	start := time.Now()
	out, err := e.vision.Refine(ctx, text, language)
	if err != nil {
		e.logger.Warn("extract.refine.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return text
	}
	return out
}

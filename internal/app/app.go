// Package app builds the scan component graph from configuration.
package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/extract"
	"github.com/joseph-ayodele/notescan/internal/imageprep"
	"github.com/joseph-ayodele/notescan/internal/llm/openai"
	"github.com/joseph-ayodele/notescan/internal/ocrspace"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

type App struct {
	Preparer   *imageprep.Preparer
	Extractor  *extract.Extractor
	Controller *pipeline.Controller
}

// New wires preparer, providers and controller. The OpenAI client is always
// built; without a key it only reports HasAPIKey() == false.
func New(cfg *common.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	classic := ocrspace.NewClient(ocrspace.Config{
		APIKey:       cfg.OCRSpace.APIKey,
		UsingDemoKey: cfg.OCRSpace.UsingDemoKey,
		Endpoint:     cfg.OCRSpace.Endpoint,
		Timeout:      cfg.OCRSpace.Timeout,
	}, &http.Client{}, logger)
	vision := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	prep := imageprep.NewPreparer(cfg.Prep.ArtifactCacheDir, logger)
	ext := extract.NewExtractor(classic, vision, cfg.OCRSpace.ForceClassic, logger)

	logger.Info("app.wired",
		"ocrspace_demo_key", cfg.OCRSpace.UsingDemoKey,
		"openai", vision.HasAPIKey(),
		"model", vision.Model(),
		"force_ocrspace", cfg.OCRSpace.ForceClassic,
		"artifact_dir", cfg.Prep.ArtifactCacheDir,
	)
	return &App{
		Preparer:   prep,
		Extractor:  ext,
		Controller: pipeline.NewController(prep, ext, logger),
	}
}

// NewLogger returns a text or JSON slog logger at level.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

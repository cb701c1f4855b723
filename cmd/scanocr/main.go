package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/app"
	"github.com/joseph-ayodele/notescan/internal/capture"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run scans once and returns the process exit code: 0 on success, 1 when the
// scan or setup fails, 2 on bad usage. Deferred cleanup always runs before exit.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scanocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		files    = fs.String("files", "", "comma-separated photo files to scan")
		dir      = fs.String("dir", "", "directory of photos to scan (alternative to --files)")
		watch    = fs.String("watch", "", "directory to watch for new photos, e.g. a synced camera folder")
		accuracy = fs.String("accuracy", string(constants.DefaultAccuracy), "fast, high or very-high")
		language = fs.String("language", "eng", "OCR language code (eng, spa, fra, ...)")
		provider = fs.String("provider", "", "ocrspace, openai or best (default: auto)")
		width    = fs.Float64("screen-width", 0, "viewport width in points used for frame cropping (0 disables)")
		height   = fs.Float64("screen-height", 0, "viewport height in points")
		safeTop  = fs.Float64("safe-top", 0, "top safe-area inset in points")
		settle   = fs.Duration("settle", capture.DefaultSettleDelay, "wait before each shot")
		timeout  = fs.Duration("timeout", 10*time.Minute, "overall scan timeout")
		envFile  = fs.String("env", ".env", "optional dotenv file")
		jsonLogs = fs.Bool("json-logs", false, "log as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		kind    capture.Kind
		sources []string
	)
	switch {
	case countSet(*files, *dir, *watch) > 1:
		fmt.Fprintln(stderr, "Error: use only one of --files, --dir or --watch")
		return 2
	case *files != "":
		kind = capture.KindFiles
		for _, f := range strings.Split(*files, ",") {
			if f = strings.TrimSpace(f); f != "" {
				sources = append(sources, f)
			}
		}
	case *dir != "":
		kind, sources = capture.KindDir, []string{*dir}
	case *watch != "":
		kind, sources = capture.KindWatch, []string{*watch}
	default:
		fmt.Fprintln(stderr, "Error: one of --files, --dir or --watch is required")
		return 2
	}

	acc, err := constants.ParseAccuracy(*accuracy)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	prov, err := constants.ParseProvider(*provider)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	common.LoadDotEnv(*envFile)
	cfg := common.LoadConfig()
	logger := app.NewLogger(stderr, cfg.LogLevel, *jsonLogs)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	device, err := capture.NewDevice(kind, sources, logger)
	if err != nil {
		logger.Error("failed to open capture device", "kind", kind, "error", err)
		return 1
	}
	if c, ok := device.(io.Closer); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a := app.New(cfg, logger)
	orch := capture.NewOrchestrator(device, a.Controller, *settle, logger)

	start := time.Now()
	text, err := orch.Scan(ctx, capture.Viewport{Width: *width, Height: *height, SafeTop: *safeTop}, pipeline.SessionOptions{
		Accuracy: acc,
		Language: *language,
		Provider: prov,
	})
	if err != nil {
		logger.Error("scan failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	logger.Info("scan complete", "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	fmt.Fprintln(stdout, text)
	return 0
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

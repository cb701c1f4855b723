package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/joseph-ayodele/notescan/internal/common"
)

func TestNewWiresDemoKey(t *testing.T) {
	var buf bytes.Buffer
	cfg := &common.Config{
		OCRSpace: common.OCRSpaceConfig{APIKey: common.DemoOCRSpaceKey, UsingDemoKey: true},
		Prep:     common.PrepConfig{ArtifactCacheDir: t.TempDir()},
	}
	a := New(cfg, NewLogger(&buf, slog.LevelDebug, true))
	if a.Controller == nil || a.Preparer == nil || a.Extractor == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if !a.Extractor.UsingDemoKey() {
		t.Fatal("demo key not propagated")
	}
	if !strings.Contains(buf.String(), `"msg":"app.wired"`) {
		t.Fatalf("expected JSON wiring log, got %s", buf.String())
	}
}

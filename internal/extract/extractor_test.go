package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/ocrspace"
)

type stubClassic struct {
	results []string
	errs    []error
	calls   int
	demo    bool
	last    ocrspace.Request
}

func (s *stubClassic) Recognize(_ context.Context, req ocrspace.Request) (string, error) {
	i := s.calls
	s.calls++
	s.last = req
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return "", errors.New("unexpected classic call")
}

func (s *stubClassic) UsingDemoKey() bool { return s.demo }

type stubVision struct {
	key       bool
	text      string
	err       error
	refined   string
	refineErr error
	calls     int
	refines   int
}

func (s *stubVision) HasAPIKey() bool { return s.key }

func (s *stubVision) ExtractText(context.Context, string, string, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubVision) Refine(context.Context, string, string) (string, error) {
	s.refines++
	return s.refined, s.refineErr
}

func newTestExtractor(c *stubClassic, v *stubVision, force bool) (*Extractor, *[]time.Duration) {
	e := NewExtractor(c, v, force, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return e, &slept
}

var timeoutErr = common.UserError(common.ErrTimeout, "OCR request timed out. Try again with clearer image or better connection.")

const goodText = "The quick brown fox jumps over the lazy dog while the notes keep going on."

func TestExtractRequiresImage(t *testing.T) {
	e, _ := newTestExtractor(&stubClassic{}, &stubVision{}, false)
	_, err := e.Extract(context.Background(), Request{})
	if !errors.Is(err, common.ErrInvalidInput) || err.Error() != "No image data supplied for OCR." {
		t.Fatalf("err = %v", err)
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name   string
		key    bool
		force  bool
		in     constants.Provider
		expect constants.Provider
	}{
		{"auto with key", true, false, constants.ProviderAuto, constants.ProviderOpenAI},
		{"auto without key", false, false, constants.ProviderAuto, constants.ProviderOCRSpace},
		{"auto forced classic", true, true, constants.ProviderAuto, constants.ProviderOCRSpace},
		{"explicit wins", false, true, constants.ProviderOpenAI, constants.ProviderOpenAI},
		{"best", false, false, constants.ProviderBest, constants.ProviderBest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestExtractor(&stubClassic{}, &stubVision{key: tc.key}, tc.force)
			if got := e.Resolve(tc.in); got != tc.expect {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.in, got, tc.expect)
			}
		})
	}
}

func TestExtractVisionNeedsInlineBytes(t *testing.T) {
	v := &stubVision{key: true, text: "x"}
	e, _ := newTestExtractor(&stubClassic{}, v, false)
	_, err := e.Extract(context.Background(), Request{FileURI: "/tmp/a.jpg"})
	if !errors.Is(err, common.ErrInvalidInput) || err.Error() != "Unable to generate OCR payload. Please retake the photo." {
		t.Fatalf("err = %v", err)
	}
	if v.calls != 0 {
		t.Fatalf("vision called %d times", v.calls)
	}
}

func TestClassicRetriesTimeoutsOnly(t *testing.T) {
	t.Run("timeouts retried with linear delay", func(t *testing.T) {
		c := &stubClassic{errs: []error{timeoutErr, timeoutErr}, results: []string{"", "", "hello"}}
		e, slept := newTestExtractor(c, &stubVision{}, false)
		got, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Engine: 2, Language: "eng", Retries: 2, RetryDelay: time.Second})
		if err != nil || got != "hello" {
			t.Fatalf("Extract() = %q, %v", got, err)
		}
		if c.calls != 3 {
			t.Fatalf("calls = %d, want 3", c.calls)
		}
		if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
			t.Fatalf("slept = %v", *slept)
		}
		if c.last.Engine != 2 || c.last.Language != "eng" || c.last.ImageData != "QUJD" {
			t.Fatalf("request not forwarded: %+v", c.last)
		}
	})

	t.Run("retries exhausted", func(t *testing.T) {
		c := &stubClassic{errs: []error{timeoutErr, timeoutErr}}
		e, _ := newTestExtractor(c, &stubVision{}, false)
		_, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Retries: 1})
		if !errors.Is(err, common.ErrTimeout) || c.calls != 2 {
			t.Fatalf("err = %v, calls = %d", err, c.calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		c := &stubClassic{errs: []error{errors.New("OCR request failed with status 500")}}
		e, _ := newTestExtractor(c, &stubVision{}, false)
		_, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Retries: 3})
		if err == nil || c.calls != 1 {
			t.Fatalf("err = %v, calls = %d", err, c.calls)
		}
	})
}

func TestBestSkipsVisionForStrongClassic(t *testing.T) {
	c := &stubClassic{results: []string{goodText}}
	v := &stubVision{key: true, text: "vision"}
	e, _ := newTestExtractor(c, v, false)

	got, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Provider: constants.ProviderBest})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != goodText {
		t.Fatalf("got %q", got)
	}
	if c.calls != 1 || v.calls != 0 {
		t.Fatalf("classic calls = %d, vision calls = %d", c.calls, v.calls)
	}
}

func TestBestComparesWeakClassic(t *testing.T) {
	testCases := []struct {
		name    string
		classic string
		vision  string
		visErr  error
		expect  string
	}{
		{"vision longer wins", "short", goodText, nil, goodText},
		{"classic kept when vision weaker", "ab cd ef", "ab", nil, "ab cd ef"},
		{"tie goes to vision", "abc", "xyz", nil, "xyz"},
		{"vision failure keeps classic", "tiny", "", errors.New("boom"), "tiny"},
		{"no text found consults vision", NoTextFound, "found it", nil, "found it"},
		{"no text found survives vision failure", NoTextFound, "", errors.New("boom"), NoTextFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &stubClassic{results: []string{tc.classic}}
			v := &stubVision{key: true, text: tc.vision, err: tc.visErr}
			e, _ := newTestExtractor(c, v, false)
			got, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Provider: constants.ProviderBest})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tc.expect {
				t.Fatalf("got %q, want %q", got, tc.expect)
			}
			if v.calls != 1 {
				t.Fatalf("vision calls = %d", v.calls)
			}
		})
	}
}

func TestBestClassicFailure(t *testing.T) {
	classicErr := errors.New("OCR request failed with status 503")

	t.Run("falls through to vision", func(t *testing.T) {
		v := &stubVision{key: true, text: "from vision"}
		e, _ := newTestExtractor(&stubClassic{errs: []error{classicErr}}, v, false)
		got, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Provider: constants.ProviderBest})
		if err != nil || got != "from vision" {
			t.Fatalf("Extract() = %q, %v", got, err)
		}
	})

	t.Run("classic error without vision", func(t *testing.T) {
		e, _ := newTestExtractor(&stubClassic{errs: []error{classicErr}}, &stubVision{key: true}, true)
		_, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Provider: constants.ProviderBest})
		if !errors.Is(err, classicErr) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("raw classic text without vision", func(t *testing.T) {
		e, _ := newTestExtractor(&stubClassic{results: []string{"  raw  text "}}, &stubVision{}, false)
		got, err := e.Extract(context.Background(), Request{ImageData: "QUJD", Provider: constants.ProviderBest})
		if err != nil || got != "  raw  text " {
			t.Fatalf("Extract() = %q, %v", got, err)
		}
	})
}

func TestRefineFailsOpen(t *testing.T) {
	testCases := []struct {
		name    string
		vision  *stubVision
		expect  string
		refines int
	}{
		{"no key", &stubVision{refined: "fixed"}, "orig text", 0},
		{"error", &stubVision{key: true, refineErr: errors.New("OpenAI request failed with status 500: x")}, "orig text", 1},
		{"refined", &stubVision{key: true, refined: "fixed text"}, "fixed text", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestExtractor(&stubClassic{}, tc.vision, false)
			if got := e.Refine(context.Background(), "orig text", "eng"); got != tc.expect {
				t.Fatalf("Refine() = %q, want %q", got, tc.expect)
			}
			if tc.vision.refines != tc.refines {
				t.Fatalf("refine calls = %d", tc.vision.refines)
			}
		})
	}

	v := &stubVision{key: true, refineErr: fmt.Errorf("refine: %w", common.ErrEmptyResult)}
	e, _ := newTestExtractor(&stubClassic{}, v, false)
	if got := e.Refine(context.Background(), strings.Repeat(" ", 3), ""); got != "   " || v.refines != 1 {
		t.Fatalf("blank text: Refine() = %q after %d calls, want original after 1", got, v.refines)
	}
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/extract"
	"github.com/joseph-ayodele/notescan/internal/imageprep"
)

type stubPreparer struct {
	calls    []imageprep.Options
	released []entity.PreparedImage
}

func (s *stubPreparer) Prepare(_ context.Context, photo entity.CapturedPhoto, opts imageprep.Options) (entity.PreparedImage, error) {
	s.calls = append(s.calls, opts)
	return entity.PreparedImage{Base64: photo.Base64, URI: "/tmp/prep.jpg", MimeType: "image/jpeg", Temporary: true}, nil
}

func (s *stubPreparer) Release(img entity.PreparedImage) { s.released = append(s.released, img) }

type reply struct {
	text string
	err  error
}

type stubExtractor struct {
	replies  []reply
	requests []extract.Request
	refined  []string
	demo     bool
}

func (s *stubExtractor) Extract(_ context.Context, req extract.Request) (string, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.replies) {
		return s.replies[i].text, s.replies[i].err
	}
	return "", errors.New("OCR request failed with status 500")
}

func (s *stubExtractor) Refine(_ context.Context, text, _ string) string {
	s.refined = append(s.refined, text)
	return "refined: " + text
}

func (s *stubExtractor) UsingDemoKey() bool { return s.demo }

func newTestController(p *stubPreparer, e *stubExtractor) (*Controller, *[]time.Duration) {
	c := NewController(p, e, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

var (
	strong = strings.Repeat("A well lit page of meeting notes. ", 10)
	photo  = entity.CapturedPhoto{Base64: "QUJD", Framing: &entity.FramingInfo{ScreenWidth: 1, ScreenHeight: 1, FrameWidth: 1, FrameHeight: 1}}
)

func TestDefaultProfiles(t *testing.T) {
	demo := DefaultProfiles(true)
	if len(demo) != 4 {
		t.Fatalf("demo ladder has %d rungs", len(demo))
	}
	for _, p := range demo {
		if p.Engine != 1 {
			t.Fatalf("demo profile uses engine %d", p.Engine)
		}
	}
	full := DefaultProfiles(false)
	if len(full) != 6 || full[0].TargetWidth != 1600 || full[5].TargetWidth != 720 {
		t.Fatalf("unexpected full ladder: %+v", full)
	}
}

func TestFastPathUsesOneProfilePerPhoto(t *testing.T) {
	p := &stubPreparer{}
	e := &stubExtractor{replies: []reply{{text: strong}, {text: strong}}}
	c, _ := newTestController(p, e)

	got, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo, photo}, SessionOptions{Accuracy: constants.AccuracyFast, Language: "eng"})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if len(e.requests) != 2 {
		t.Fatalf("extract calls = %d, want 2 (one per photo)", len(e.requests))
	}
	if !strings.HasPrefix(got, "refined: ") {
		t.Fatalf("result not refined: %q", got)
	}
	if len(p.released) != 2 {
		t.Fatalf("released %d artifacts", len(p.released))
	}
	req := e.requests[0]
	if req.Retries != 2 || req.RetryDelay != 2*time.Second || req.Engine != 2 || req.Language != "eng" || req.FileURI != "/tmp/prep.jpg" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if p.calls[0].Framing == nil || p.calls[0].RotateDegrees != 0 || p.calls[0].TargetWidth != 1600 {
		t.Fatalf("unexpected prepare options: %+v", p.calls[0])
	}
}

func TestAllFailuresReturnLastError(t *testing.T) {
	var replies []reply
	for i := 0; i < 4; i++ {
		replies = append(replies, reply{err: errors.New("failure " + string(rune('A'+i)))})
	}
	p := &stubPreparer{}
	e := &stubExtractor{demo: true, replies: replies}
	c, slept := newTestController(p, e)

	_, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{})
	if err == nil || err.Error() != "failure D" {
		t.Fatalf("err = %v, want last failure", err)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept = %v", *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("slept[%d] = %v, want %v", i, (*slept)[i], d)
		}
	}
	if len(e.refined) != 0 {
		t.Fatal("refine should not run when nothing succeeded")
	}
}

func TestNoPhotosFailsWithDefaultMessage(t *testing.T) {
	c, _ := newTestController(&stubPreparer{}, &stubExtractor{})
	_, err := c.RunSession(context.Background(), nil, SessionOptions{})
	if err == nil || err.Error() != "Failed to extract text from image." {
		t.Fatalf("err = %v", err)
	}
}

func TestLaterFailureKeepsEarlierSuccess(t *testing.T) {
	e := &stubExtractor{demo: true, replies: []reply{
		{text: strong},
		{err: errors.New("boom")},
		{err: errors.New("boom")},
		{err: errors.New("boom")},
	}}
	c, _ := newTestController(&stubPreparer{}, e)
	got, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{Accuracy: constants.AccuracyHigh})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if got != "refined: "+strings.TrimSpace(strong) {
		t.Fatalf("got %q", got)
	}
}

func TestBestCandidateWinsStrictly(t *testing.T) {
	e := &stubExtractor{demo: true, replies: []reply{
		{text: strong + " first"},
		{text: strong + " later"},
		{text: strong + strong},
		{text: strong},
	}}
	c, _ := newTestController(&stubPreparer{}, e)
	got, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{Accuracy: constants.AccuracyVeryHigh})
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if want := "refined: " + strings.TrimSpace(strong+strong); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	e = &stubExtractor{demo: true, replies: []reply{{text: strong + " first"}, {text: strong + " later"}, {text: "x"}, {text: "y"}}}
	c, _ = newTestController(&stubPreparer{}, e)
	got, _ = c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{Accuracy: constants.AccuracyHigh})
	if !strings.HasSuffix(got, "first") {
		t.Fatalf("tie should keep the earlier candidate, got %q", got)
	}
}

func TestWeakResultTriesRotations(t *testing.T) {
	p := &stubPreparer{}
	e := &stubExtractor{demo: true, replies: []reply{
		{text: "   "}, // empty after cleaning, score 0
		{err: errors.New("rotation failed")},
		{text: strong},
		{text: strong},
		{text: strong},
		{text: strong},
	}}
	c, slept := newTestController(p, e)

	if _, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{}); err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}
	if len(p.calls) != 6 {
		t.Fatalf("prepare calls = %d, want 6", len(p.calls))
	}
	for i, deg := range []int{90, 270} {
		opts := p.calls[i+1]
		if opts.RotateDegrees != deg || opts.Framing != nil {
			t.Fatalf("rotation %d options: %+v", i, opts)
		}
		if r := e.requests[i+1]; r.Retries != 1 || r.RetryDelay != time.Second {
			t.Fatalf("rotation request: %+v", r)
		}
	}
	if len(*slept) != 0 {
		t.Fatalf("rotation failures must not back off, slept %v", *slept)
	}
}

func TestNoTextFoundIsAFailedAttempt(t *testing.T) {
	e := &stubExtractor{demo: true, replies: []reply{
		{text: extract.NoTextFound}, {text: extract.NoTextFound}, {text: extract.NoTextFound}, {text: extract.NoTextFound},
	}}
	c, _ := newTestController(&stubPreparer{}, e)
	_, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo}, SessionOptions{})
	if !errors.Is(err, common.ErrEmptyResult) {
		t.Fatalf("err = %v", err)
	}
}

func TestInputErrorAbortsSession(t *testing.T) {
	inputErr := common.UserError(common.ErrInvalidInput, "No image data supplied for OCR.")
	e := &stubExtractor{replies: []reply{{err: inputErr}}}
	c, slept := newTestController(&stubPreparer{}, e)
	_, err := c.RunSession(context.Background(), []entity.CapturedPhoto{photo, photo}, SessionOptions{})
	if !errors.Is(err, inputErr) || len(e.requests) != 1 || len(*slept) != 0 {
		t.Fatalf("err = %v, calls = %d, slept = %v", err, len(e.requests), *slept)
	}
}

func TestCancelledSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newTestController(&stubPreparer{}, &stubExtractor{})
	if _, err := c.RunSession(ctx, []entity.CapturedPhoto{photo}, SessionOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

// Package ocrspace is a client for the OCR.Space parse/image endpoint.
package ocrspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/llm"
)

const (
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	DefaultLanguage = "eng"
	DefaultTimeout  = 45 * time.Second

	// NoTextFound is returned when the service succeeds without any parsed text.
	NoTextFound = "No text found"

	demoKeyHint = "The bundled OCR demo key is rate-limited; add OCR_SPACE_API_KEY or OPENAI_API_KEY for reliable scans."
)

type Config struct {
	APIKey       string
	UsingDemoKey bool
	Endpoint     string
	Timeout      time.Duration
}

// Request is a single recognition call. FileURI wins over ImageData when both are set.
type Request struct {
	ImageData string // raw base64 or data URI
	FileURI   string // local path of the image
	MimeType  string
	Language  string
	Engine    int // 1 or 2; 0 picks the default for the key in use
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// UsingDemoKey reports whether the shared demo key is in effect.
func (c *Client) UsingDemoKey() bool { return c.cfg.UsingDemoKey }

// DefaultEngine is the engine used when a request does not pick one.
func (c *Client) DefaultEngine() int {
	if c.cfg.UsingDemoKey {
		return 1
	}
	return 2
}

// Recognize runs one OCR call and returns the parsed text, or NoTextFound.
func (c *Client) Recognize(ctx context.Context, req Request) (string, error) {
	text, err := c.recognize(ctx, req)
	if err == nil || errors.Is(err, common.ErrTimeout) || !c.cfg.UsingDemoKey {
		return text, err
	}
	return "", common.WithSuffix(err, demoKeyHint)
}

func (c *Client) recognize(ctx context.Context, req Request) (string, error) {
	if req.ImageData == "" && req.FileURI == "" {
		return "", common.UserError(common.ErrInvalidInput, "No image data supplied for OCR.")
	}
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	body, contentType, err := c.buildForm(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("apikey", c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", contentType)

	c.logger.Info("ocrspace.request.start",
		"req_id", rid,
		"engine", c.engine(req),
		"language", c.language(req),
		"upload", req.FileURI != "",
		"demo_key", c.cfg.UsingDemoKey,
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Warn("ocrspace.request.timeout", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
			return "", common.UserError(common.ErrTimeout, "OCR request timed out. Try again with clearer image or better connection.")
		}
		c.logger.Error("ocrspace.request.send_error", "req_id", rid, "error", err)
		return "", fmt.Errorf("ocr http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocrspace.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ocrspace.request.status", "req_id", rid, "status", resp.StatusCode)
		return "", common.UserErrorf(common.ErrProvider, "OCR request failed with status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", common.UserError(common.ErrTimeout, "OCR request timed out. Try again with clearer image or better connection.")
		}
		return "", fmt.Errorf("read ocr response: %w", err)
	}
	payload, err := decodeResponse(raw)
	if err != nil {
		c.logger.Error("ocrspace.response.decode_error", "req_id", rid, "error", err, "bytes", len(raw))
		return "", err
	}

	if payload.IsErroredOnProcessing {
		msg := payload.ErrorMessage.Join()
		if msg == "" {
			msg = "OCR service was unable to process the image."
		}
		c.logger.Warn("ocrspace.response.processing_error", "req_id", rid, "message", msg)
		return "", common.UserError(common.ErrProvider, msg)
	}

	text := payload.CombinedText()
	c.logger.Info("ocrspace.request.ok",
		"req_id", rid,
		"segments", len(payload.ParsedResults),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if text == "" {
		return NoTextFound, nil
	}
	return text, nil
}

func (c *Client) buildForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"language", c.language(req)},
		{"isOverlayRequired", "false"},
		{"OCREngine", strconv.Itoa(c.engine(req))},
		{"detectOrientation", "true"},
		{"scale", "true"},
		{"isTable", "true"},
		{"isCreateSearchablePdf", "false"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}

	if req.FileURI != "" {
		data, err := os.ReadFile(req.FileURI)
		if err != nil {
			return nil, "", fmt.Errorf("read image file: %w", err)
		}
		mimeType := req.MimeType
		if mimeType == "" {
			mimeType = constants.DefaultMimeType
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="image.%s"`, constants.ExtFromMime(mimeType)))
		h.Set("Content-Type", mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	} else {
		// OCR.Space only accepts the data URI form for inline images.
		uri := llm.ToDataURI(req.ImageData, req.MimeType)
		if err := w.WriteField("base64Image", uri); err != nil {
			return nil, "", fmt.Errorf("write base64Image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) engine(req Request) int {
	if req.Engine == 1 || req.Engine == 2 {
		return req.Engine
	}
	return c.DefaultEngine()
}

func (c *Client) language(req Request) string {
	if l := strings.TrimSpace(req.Language); l != "" {
		return l
	}
	return DefaultLanguage
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

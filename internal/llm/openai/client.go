package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/llm"
)

const maxErrorBody = 200

var errMissingKey = common.UserError(common.ErrMissingAPIKey, "Missing OpenAI API key. Set OPENAI_API_KEY in your environment.")

// ExtractText asks the vision model to transcribe the image. imageData is raw
// base64 or a data URI; mimeType is used when a data URI has to be built.
func (c *Client) ExtractText(ctx context.Context, imageData, mimeType, language string) (string, error) {
	if !c.HasAPIKey() {
		return "", errMissingKey
	}
	if imageData == "" {
		return "", common.UserError(common.ErrInvalidInput, "Unable to generate OCR payload. Please retake the photo.")
	}
	ctx, rid := withReqID(ctx)
	start := time.Now()

	c.logger.Info("llm.vision.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"image_b64_len", len(imageData),
		"language", language,
	)

	body := llm.ChatRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		Messages: []llm.ChatMessage{{
			Role: "user",
			Content: []llm.ContentPart{
				{Type: "text", Text: llm.BuildExtractionPrompt(language)},
				{Type: "image_url", ImageURL: &llm.ImageURL{URL: llm.ToDataURI(imageData, mimeType)}},
			},
		}},
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		c.logger.Error("llm.vision.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	text := strings.TrimSpace(content.Text)
	if text == "" {
		c.logger.Warn("llm.vision.empty", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.UserError(common.ErrEmptyResult, "OCR service did not return any text. Try retaking the photo with clearer lighting.")
	}

	c.logger.Info("llm.vision.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Refine proofreads OCR text. Errors are returned so callers can decide to fail open.
func (c *Client) Refine(ctx context.Context, text, language string) (string, error) {
	if !c.HasAPIKey() {
		return "", errMissingKey
	}
	ctx, rid := withReqID(ctx)
	start := time.Now()

	body := llm.ChatRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: llm.RefineSystemPrompt},
			{Role: "user", Content: llm.BuildRefinePrompt(text, language)},
		},
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		return "", err
	}
	if !content.IsString || strings.TrimSpace(content.Text) == "" {
		return "", fmt.Errorf("refine: %w", common.ErrEmptyResult)
	}

	out := strings.TrimSpace(content.Text)
	c.logger.Info("llm.refine.ok",
		"req_id", rid,
		"in_len", len(text),
		"out_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) complete(ctx context.Context, body llm.ChatRequest) (llm.MessageContent, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		if status != 0 {
			return llm.MessageContent{}, common.UserErrorf(common.ErrProvider,
				"OpenAI request failed with status %d: %s", status, llm.Truncate(string(raw), maxErrorBody))
		}
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return llm.MessageContent{}, common.UserError(common.ErrTimeout, "OpenAI request timed out.")
		}
		return llm.MessageContent{}, fmt.Errorf("openai http error: %w", err)
	}

	if err := llm.ValidateChatCompletion(raw); err != nil {
		return llm.MessageContent{}, fmt.Errorf("unexpected openai response: %w", err)
	}
	var cc llm.ChatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.MessageContent{}, fmt.Errorf("decode openai response: %w", err)
	}
	content, ok := cc.FirstContent()
	if !ok {
		return llm.MessageContent{}, nil
	}
	return content, nil
}

func withReqID(ctx context.Context) (context.Context, string) {
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		return ctx, rid
	}
	rid := uuid.New().String()
	return common.WithRequestID(ctx, rid), rid
}

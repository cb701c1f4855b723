package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/ocrspace"
)

// ClassicProvider is the OCR.Space style recognizer.
type ClassicProvider interface {
	Recognize(ctx context.Context, req ocrspace.Request) (string, error)
	UsingDemoKey() bool
}

// VisionProvider is a vision-capable language model that can also proofread text.
type VisionProvider interface {
	HasAPIKey() bool
	ExtractText(ctx context.Context, imageData, mimeType, language string) (string, error)
	Refine(ctx context.Context, text, language string) (string, error)
}

// Request is one extraction call against a prepared image.
type Request struct {
	ImageData  string // raw base64 or data URI
	FileURI    string
	MimeType   string
	Engine     int
	Language   string
	Provider   constants.Provider
	Retries    int           // extra classic attempts after a timeout
	RetryDelay time.Duration // multiplied by the attempt number
}

// NoTextFound is what the classic provider reports for an image without text.
const NoTextFound = ocrspace.NoTextFound

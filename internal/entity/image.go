package entity

import "github.com/joseph-ayodele/notescan/constants"

// PreparationProfile is one rung of the quality/cost ladder tried per photo.
type PreparationProfile struct {
	TargetWidth int                   `json:"target_width"`
	Compression float64               `json:"compression"` // 0..1, 1 = best quality
	Engine      int                   `json:"engine"`      // OCR.Space engine, 1 or 2
	Format      constants.ImageFormat `json:"format"`
}

// PreparedImage is the input of exactly one extraction call.
type PreparedImage struct {
	Base64   string
	URI      string
	MimeType string
	// Temporary is set when URI points at an artifact written for this call only.
	Temporary bool
}

// CandidateResult is one scored extraction attempt.
type CandidateResult struct {
	RawText     string
	CleanedText string
	Score       float64
}

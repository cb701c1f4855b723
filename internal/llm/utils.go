package llm

import (
	"strings"

	"github.com/joseph-ayodele/notescan/constants"
)

// ToDataURI turns raw base64 into a data URI; existing data URIs pass through.
func ToDataURI(b64, mimeType string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	if mimeType == "" {
		mimeType = constants.DefaultMimeType
	}
	return "data:" + mimeType + ";base64," + b64
}

// Truncate shortens s to max runes, appending an ellipsis when it cut anything.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

package ocr

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MinUsableLength and MinUsableScore mark a result good enough to skip a second opinion.
	MinUsableLength = 20
	MinUsableScore  = 25.0

	lengthCap     = 1000
	newlineCap    = 200
	lengthWeight  = 60.0
	baseScore     = 30.0
	newlineWeight = 10.0
	nonASCIICap   = 20.0
)

// Score rates cleaned OCR text so attempts can be compared: longer text wins up
// to a cap, heavy fragmentation and non-ASCII noise lose points. Empty text is 0.
func Score(text string) float64 {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	nonASCII := 0
	for _, r := range text {
		if r > 0x7F {
			nonASCII++
		}
	}
	lengthScore := math.Min(float64(n)/lengthCap, 1) * lengthWeight
	newlinePenalty := math.Min(float64(strings.Count(text, "\n"))/newlineCap, 1) * newlineWeight
	nonASCIIPenalty := math.Min(float64(nonASCII)/float64(max(1, n))*100, nonASCIICap)
	return lengthScore + baseScore - newlinePenalty - nonASCIIPenalty
}

// Usable reports whether cleaned text is long and clean enough to stand on its own.
func Usable(cleaned string, score float64) bool {
	return utf8.RuneCountInString(cleaned) >= MinUsableLength && score >= MinUsableScore
}

package constants

import (
	"fmt"
	"strings"
)

// Accuracy controls how hard a scan session works before settling on a result.
type Accuracy string

const (
	AccuracyFast     Accuracy = "fast"      // first successful profile wins
	AccuracyHigh     Accuracy = "high"      // try every profile, keep the best
	AccuracyVeryHigh Accuracy = "very-high" // same ladder as high; selectable separately by callers
)

// DefaultAccuracy matches the capture screen's initial selection.
const DefaultAccuracy = AccuracyHigh

func ParseAccuracy(input string) (Accuracy, error) {
	switch Accuracy(strings.ToLower(strings.TrimSpace(input))) {
	case "":
		return DefaultAccuracy, nil
	case AccuracyFast:
		return AccuracyFast, nil
	case AccuracyHigh:
		return AccuracyHigh, nil
	case AccuracyVeryHigh, "veryhigh", "very_high":
		return AccuracyVeryHigh, nil
	default:
		return DefaultAccuracy, fmt.Errorf("unknown accuracy %q (want fast, high or very-high)", input)
	}
}

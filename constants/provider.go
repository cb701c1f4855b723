package constants

import (
	"fmt"
	"strings"
)

// Provider selects the text-extraction backend for a request.
type Provider string

const (
	// ProviderAuto defers the choice to the configured keys and flags.
	ProviderAuto     Provider = ""
	ProviderOCRSpace Provider = "ocrspace"
	ProviderOpenAI   Provider = "openai"
	// ProviderBest runs OCR.Space first and asks OpenAI for a second opinion on weak results.
	ProviderBest Provider = "best"
)

var allProviders = []Provider{
	ProviderOCRSpace,
	ProviderOpenAI,
	ProviderBest,
}

// ParseProvider maps user input onto a Provider. Empty input means ProviderAuto.
func ParseProvider(input string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" || normalized == "auto" {
		return ProviderAuto, nil
	}

	synonyms := map[string]Provider{
		"ocr.space": ProviderOCRSpace,
		"ocr-space": ProviderOCRSpace,
		"classic":   ProviderOCRSpace,
		"gpt":       ProviderOpenAI,
		"llm":       ProviderOpenAI,
	}
	if p, ok := synonyms[normalized]; ok {
		return p, nil
	}
	for _, p := range allProviders {
		if normalized == string(p) {
			return p, nil
		}
	}
	return ProviderAuto, fmt.Errorf("unknown provider %q (want one of ocrspace, openai, best)", input)
}

func (p Provider) String() string {
	if p == ProviderAuto {
		return "auto"
	}
	return string(p)
}

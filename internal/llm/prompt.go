package llm

import "strings"

// BuildExtractionPrompt is the instruction sent next to the image.
func BuildExtractionPrompt(language string) string {
	var b strings.Builder
	b.WriteString("Extract all text from this image.")
	if lang := strings.TrimSpace(language); lang != "" {
		b.WriteString(" The text is primarily in ")
		b.WriteString(lang)
		b.WriteString(".")
	}
	b.WriteString(" Return only the text content.")
	return b.String()
}

// RefineSystemPrompt keeps the proofreader from rewriting content.
const RefineSystemPrompt = "You are a careful proofreader. Fix obvious OCR errors (broken words, wrong punctuation, casing). \n" +
	"Preserve the original meaning, structure, and line breaks as much as possible. Do NOT add or remove content."

// BuildRefinePrompt wraps OCR text for the proofreading call.
func BuildRefinePrompt(text, language string) string {
	var b strings.Builder
	if lang := strings.TrimSpace(language); lang != "" {
		b.WriteString("Language: ")
		b.WriteString(lang)
		b.WriteString(". ")
	}
	b.WriteString("Clean up this OCR text without changing its meaning. Return only the corrected text.\n\n")
	b.WriteString(text)
	return b.String()
}

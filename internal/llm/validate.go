package llm

import (
	"encoding/json"
	"fmt"
)

// ValidateChatCompletion checks a raw chat/completions reply against the
// compiled response schema before it is decoded.
func ValidateChatCompletion(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := chatCompletionSchema.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}

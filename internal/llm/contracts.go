package llm

import (
	"encoding/json"
	"strings"
)

// ChatRequest is the body of a chat/completions call.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

// ChatMessage content is either a plain string or a list of ContentPart.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ChatResponse is the subset of a chat/completions reply we read.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content MessageContent `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// MessageContent accepts both the string and the list-of-blocks content forms.
type MessageContent struct {
	Text     string
	IsString bool
}

func (m *MessageContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		m.Text, m.IsString = s, true
		return nil
	}
	var blocks []struct {
		Type string `json:"type"`
		Text any    `json:"text"`
	}
	if err := json.Unmarshal(b, &blocks); err != nil {
		// null or an unexpected shape: no text
		*m = MessageContent{}
		return nil
	}
	var parts []string
	for _, blk := range blocks {
		if t, ok := blk.Text.(string); ok && t != "" {
			parts = append(parts, t)
		}
	}
	m.Text = strings.Join(parts, "\n")
	return nil
}

// FirstContent returns the first choice's message content.
func (r ChatResponse) FirstContent() (MessageContent, bool) {
	if len(r.Choices) == 0 {
		return MessageContent{}, false
	}
	return r.Choices[0].Message.Content, true
}

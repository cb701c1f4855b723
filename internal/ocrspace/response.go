package ocrspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchema = `{
  "type": "object",
  "properties": {
    "ParsedResults": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {"ParsedText": {"type": ["string", "null"]}}
      }
    },
    "IsErroredOnProcessing": {"type": ["boolean", "null"]},
    "ErrorMessage": {
      "type": ["string", "array", "null"],
      "items": {"type": ["string", "null"]}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("ocrspace_response.json", responseSchema)

// Response is the subset of the parse/image reply we read.
type Response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          Messages `json:"ErrorMessage"`
}

// Messages accepts ErrorMessage as either a string or a list of strings.
type Messages []string

func (m *Messages) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*m = Messages{one}
		return nil
	}
	var many []*string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	out := make(Messages, 0, len(many))
	for _, s := range many {
		if s != nil {
			out = append(out, *s)
		}
	}
	*m = out
	return nil
}

// Join returns the non-empty messages separated by spaces.
func (m Messages) Join() string {
	parts := make([]string, 0, len(m))
	for _, s := range m {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// CombinedText joins trimmed, non-empty segments with a blank line.
func (r Response) CombinedText() string {
	var segments []string
	for _, pr := range r.ParsedResults {
		if s := strings.TrimSpace(pr.ParsedText); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "\n\n")
}

func decodeResponse(raw []byte) (Response, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Response{}, fmt.Errorf("decode ocr response: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return Response{}, fmt.Errorf("unexpected ocr response: %w", err)
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("decode ocr response: %w", err)
	}
	return out, nil
}

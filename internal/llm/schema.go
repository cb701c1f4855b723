package llm

import "github.com/santhosh-tekuri/jsonschema/v5"

// chatCompletionSchemaJSON covers the chat/completions replies we accept.
// Message content may be a string, a list of blocks or null.
const chatCompletionSchemaJSON = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "properties": {
              "content": {
                "type": ["string", "array", "null"],
                "items": {
                  "type": "object",
                  "properties": {"type": {"type": "string"}}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var chatCompletionSchema = jsonschema.MustCompileString("chat_completion.json", chatCompletionSchemaJSON)

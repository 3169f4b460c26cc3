package llm

import (
	"encoding/json"
	"maps"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"` // One of RoleSystem, RoleUser, RoleAssistant.
	Content string `json:"content"`
}

// Role constants for the Message.Role field.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Response contains the backend's generated text and metadata.
type Response struct {
	Content string `json:"content"` // Generated text of the first candidate.
	Model   string `json:"model"`   // Model that produced this response.
	Usage   Usage  `json:"usage"`   // Token consumption stats.
	Done    bool   `json:"done"`    // True if generation completed (false if truncated).
}

// Usage tracks token consumption for a single backend call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Params are the sampling parameters of a generation call. Temperature is
// always sent; Extra carries any additional named parameters (top_p,
// max_tokens, seed, ...) which are forwarded to the backend untouched.
type Params struct {
	Temperature float64
	Extra       map[string]any
}

// Map flattens the parameters into the wire shape. An Extra entry named
// "temperature" is overridden by the Temperature field.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p.Extra)+1)
	maps.Copy(m, p.Extra)
	m["temperature"] = p.Temperature
	return m
}

// MarshalJSON encodes the flattened parameters with sorted keys.
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

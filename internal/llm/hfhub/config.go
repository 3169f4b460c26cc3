package hfhub

import "time"

// DefaultBaseURL is the OpenAI-compatible inference router of the Hugging Face Hub.
const DefaultBaseURL = "https://router.huggingface.co/v1"

// Config holds the Hugging Face Hub provider configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Models  []string      `mapstructure:"models"`
}

// DefaultConfig returns sensible defaults for the Hugging Face Hub.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 2 * time.Minute,
		Models: []string{
			"meta-llama/Llama-3.1-8B-Instruct",
			"Qwen/Qwen2.5-7B-Instruct",
		},
	}
}

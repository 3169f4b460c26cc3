package together

import "time"

// DefaultBaseURL is the OpenAI-compatible endpoint of Together AI.
const DefaultBaseURL = "https://api.together.xyz/v1"

// Config holds the Together AI provider configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Models are the base models offered to researchers. The first one is
	// used when a call names no model.
	Models []string `mapstructure:"models"`
}

// DefaultConfig returns sensible defaults for Together AI.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 2 * time.Minute,
		Models: []string{
			"meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
			"deepseek-ai/DeepSeek-R1-Distill-Llama-70B-free",
		},
	}
}

package inference

import "time"

const (
	DefaultBaseURL     = "https://api.gravixlayer.com/v1/inference"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTimeout     = 2 * time.Minute
	DefaultPrompt      = "Analyze this image in detail. Describe what you see, including objects, people, activities, colors, and any notable features. STRICTLY LIMIT THE ANSWER TO ONE LINE."
)

var DefaultModels = []string{"qwen/qwen-2.5-vl-7b-instruct"}

type Config struct {
	BaseURL     string
	APIKey      string
	Models      []string
	Prompt      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

package domain

import "context"

// StateRepository is the durable key/value store behind the profile store.
// Values are JSON documents; Get reports ErrNotFound for missing keys.
type StateRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Content string
	Usage   *Usage
}

type CompletionOptions struct {
	Temperature *float64
	MaxTokens   *int
}

// ChatCompleter is the upstream large-language-model endpoint.
type ChatCompleter interface {
	Chat(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (Completion, error)
	Describe(ctx context.Context, imageURL, prompt string) (Completion, error)
}

// ObjectStore uploads blobs and returns a URL the model endpoint can fetch.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

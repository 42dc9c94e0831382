package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float32
}

// ICompleter is the inference capability. Implementations return ErrEmptyCompletion
// when the provider answered without any text.
type ICompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

var ErrEmptyCompletion = errors.New("empty completion")

// Package ai provides a provider-agnostic completion gateway with task-based routing.
package ai

import (
	"context"
	"errors"
)

// TaskType defines the kind of AI task for routing purposes.
type TaskType int

const (
	// TaskTutoring is a persona-driven conversational turn.
	TaskTutoring TaskType = iota
	// TaskJudging is a single-shot code evaluation.
	TaskJudging
)

func (t TaskType) String() string {
	switch t {
	case TaskTutoring:
		return "tutoring"
	case TaskJudging:
		return "judging"
	default:
		return "unknown"
	}
}

// Roles understood by every provider. Providers translate them to their own vocabulary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoProvider is returned when no provider is registered for a request.
var ErrNoProvider = errors.New("no AI provider configured")

// Message is a single prior turn or the final instruction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	// System is the persona instruction. Empty for single-shot prompts.
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
	// APIKey overrides the provider's configured key for this call only.
	APIKey string `json:"-"`
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}

func keyOr(override, configured string) string {
	if override != "" {
		return override
	}
	return configured
}

// Package judge asks a model whether a student's code solves the current
// topic's challenge and classifies the answer.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/satishskid/codegurufs/internal/ai"
)

// Verdict tokens the evaluation prompt asks the model to lead with.
const (
	TokenCorrect   = "CODE_CORRECT"
	TokenIncorrect = "CODE_INCORRECT"
)

// ErrMalformedVerdict is returned when a reply starts with neither token.
var ErrMalformedVerdict = errors.New("judge reply has no verdict token")

// Verdict is the classified outcome.
type Verdict int

const (
	VerdictIncorrect Verdict = iota
	VerdictCorrect
)

func (v Verdict) String() string {
	if v == VerdictCorrect {
		return "correct"
	}
	return "incorrect"
}

// Result is a classified judge reply. Body is the text after the token.
type Result struct {
	Verdict Verdict
	Body    string
	Raw     string
}

// Correct reports whether the submission passed.
func (r Result) Correct() bool {
	return r.Verdict == VerdictCorrect
}

// Classify is a prefix test on the reply, ignoring leading whitespace.
func Classify(raw string) (Result, error) {
	text := strings.TrimLeft(raw, " \t\r\n")
	switch {
	case strings.HasPrefix(text, TokenCorrect):
		return Result{Verdict: VerdictCorrect, Body: body(text, TokenCorrect), Raw: raw}, nil
	case strings.HasPrefix(text, TokenIncorrect):
		return Result{Verdict: VerdictIncorrect, Body: body(text, TokenIncorrect), Raw: raw}, nil
	}
	return Result{Raw: raw}, fmt.Errorf("%w: %q", ErrMalformedVerdict, preview(raw))
}

func body(text, token string) string {
	rest := strings.TrimPrefix(text, token)
	rest = strings.TrimLeft(rest, ":")
	return strings.TrimSpace(rest)
}

func preview(s string) string {
	const n = 60
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// BuildPrompt renders the single-shot evaluation instruction.
func BuildPrompt(topic, code string) string {
	return fmt.Sprintf(`You are an AI code evaluator for "Code Buddy". A student has submitted code for the topic: "%s".

Student's code:
`+"```"+`
%s
`+"```"+`

**Your Task:**
Analyze the code for correctness based on the challenge for the given topic.
- If the code is correct and solves the challenge, your entire response MUST start with the string "%s" followed by a single line of encouraging text (e.g., "Excellent! Here's what your code produced:") and then the code's output.
- If the code has errors or is incorrect, your entire response MUST start with the string "%s" followed by a helpful, Socratic-style hint to guide the student. Do not give the direct answer. Be specific about the error.
`, topic, code, TokenCorrect, TokenIncorrect)
}

// Completer is the slice of the AI router the judge needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Judge evaluates submissions through a Completer.
type Judge struct {
	ai    Completer
	model string
}

// New creates a judge. An empty model leaves the choice to the provider.
func New(c Completer, model string) *Judge {
	return &Judge{ai: c, model: model}
}

// Evaluation is a classified result plus the raw completion.
type Evaluation struct {
	Result
	Response ai.CompletionResponse
}

// Evaluate sends one prompt with no persona and no history. A transport
// failure and a malformed reply are both returned as errors; the latter
// wraps ErrMalformedVerdict and still carries the completion for accounting.
func (j *Judge) Evaluate(ctx context.Context, topic, code, apiKey string) (Evaluation, error) {
	resp, err := j.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: BuildPrompt(topic, code)}},
		Model:    j.model,
		Task:     ai.TaskJudging,
		APIKey:   apiKey,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate code: %w", err)
	}

	result, err := Classify(resp.Content)
	return Evaluation{Result: result, Response: resp}, err
}

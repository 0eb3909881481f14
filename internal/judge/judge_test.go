package judge_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/judge"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		verdict judge.Verdict
		body    string
		wantErr bool
	}{
		{"correct", "CODE_CORRECT\nGreat job!", judge.VerdictCorrect, "Great job!", false},
		{"incorrect", "CODE_INCORRECT\nCheck your loop bounds.", judge.VerdictIncorrect, "Check your loop bounds.", false},
		{"correct same line", "CODE_CORRECT Excellent! Output:\nHello", judge.VerdictCorrect, "Excellent! Output:\nHello", false},
		{"leading whitespace", "\n  CODE_INCORRECT: look at line 2", judge.VerdictIncorrect, "look at line 2", false},
		{"token only", "CODE_CORRECT", judge.VerdictCorrect, "", false},
		{"neither token", "Nice try! Your code looks good.", judge.VerdictIncorrect, "", true},
		{"token not leading", "I think CODE_CORRECT", judge.VerdictIncorrect, "", true},
		{"empty", "", judge.VerdictIncorrect, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := judge.Classify(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, judge.ErrMalformedVerdict) {
					t.Errorf("error = %v, want ErrMalformedVerdict", err)
				}
				return
			}
			if got.Verdict != tt.verdict {
				t.Errorf("Verdict = %s, want %s", got.Verdict, tt.verdict)
			}
			if got.Body != tt.body {
				t.Errorf("Body = %q, want %q", got.Body, tt.body)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := judge.BuildPrompt("Loops: Repeating Actions", "for i in range(3):\n    print(i)")

	for _, want := range []string{
		`submitted code for the topic: "Loops: Repeating Actions"`,
		"for i in range(3):\n    print(i)",
		`MUST start with the string "CODE_CORRECT"`,
		`MUST start with the string "CODE_INCORRECT"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestJudge_Evaluate(t *testing.T) {
	mock := ai.NewMockProvider("CODE_CORRECT\nHello, World!")
	j := judge.New(mock, "gemini-2.5-flash")

	eval, err := j.Evaluate(context.Background(), "print(): Saying Hello", `print("Hello, World!")`, "student-key")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !eval.Correct() {
		t.Errorf("Correct() = false, want true")
	}
	if eval.Body != "Hello, World!" {
		t.Errorf("Body = %q", eval.Body)
	}

	req := mock.LastRequest
	if req.System != "" {
		t.Errorf("System = %q, judge must not send a persona", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != ai.RoleUser {
		t.Errorf("Messages = %+v, want a single user prompt", req.Messages)
	}
	if req.Task != ai.TaskJudging {
		t.Errorf("Task = %s, want judging", req.Task)
	}
	if req.Model != "gemini-2.5-flash" || req.APIKey != "student-key" {
		t.Errorf("Model/APIKey = %q/%q", req.Model, req.APIKey)
	}
}

func TestJudge_Evaluate_Errors(t *testing.T) {
	failing := &ai.MockProvider{Err: errors.New("quota")}
	if _, err := judge.New(failing, "").Evaluate(context.Background(), "t", "c", ""); err == nil {
		t.Error("Evaluate() should surface transport errors")
	}

	rambling := ai.NewMockProvider("Looks fine to me!")
	eval, err := judge.New(rambling, "").Evaluate(context.Background(), "t", "c", "")
	if !errors.Is(err, judge.ErrMalformedVerdict) {
		t.Fatalf("Evaluate() error = %v, want ErrMalformedVerdict", err)
	}
	if eval.Response.TotalTokens() == 0 {
		t.Error("malformed evaluation should still carry the completion")
	}
}

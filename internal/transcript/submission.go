package transcript

import (
	"regexp"
	"strings"
)

var (
	codeBlock    = regexp.MustCompile("(?s)```(.*?)```")
	runDirective = regexp.MustCompile(`//\s*run`)
	// inlineTag is a language tag sharing its line with code, as in
	// "```python print(1) // run```".
	inlineTag = regexp.MustCompile(`^(?i)(python3?|javascript)[ \t]+`)
)

var languageTags = map[string]bool{
	"":           true,
	"python":     true,
	"python3":    true,
	"py":         true,
	"javascript": true,
	"js":         true,
	"text":       true,
	"plaintext":  true,
}

// IsSubmission reports whether a student message asks for its code to be
// judged: it needs a complete fenced block and a run directive somewhere.
func IsSubmission(text string) bool {
	return codeBlock.MatchString(text) && runDirective.MatchString(text)
}

// ExtractSubmission returns the code of the first fenced block with the
// language tag line and the first run directive removed.
func ExtractSubmission(text string) (string, bool) {
	if !IsSubmission(text) {
		return "", false
	}
	inner := codeBlock.FindStringSubmatch(text)[1]

	if first, rest, found := strings.Cut(inner, "\n"); found && languageTags[strings.ToLower(strings.TrimSpace(first))] {
		inner = rest
	} else {
		inner = inlineTag.ReplaceAllString(inner, "")
	}
	if loc := runDirective.FindStringIndex(inner); loc != nil {
		inner = inner[:loc[0]] + inner[loc[1]:]
	}
	return strings.TrimSpace(inner), true
}

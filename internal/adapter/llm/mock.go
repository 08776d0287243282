package llm

import (
	"context"
	"strings"
	"unicode"
)

// NoAnswer is what MockLLM says when the context shares nothing with the question.
const NoAnswer = "I cannot answer this from the provided documents."

// MockLLM answers offline by quoting the context sentence that shares the most
// words with the question. It expects prompts carrying "Context:" and
// "Question:" sections as the built-in template does.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	passages, question := splitPrompt(prompt)
	want := words(question)
	if len(want) == 0 {
		return NoAnswer, nil
	}

	best, bestScore := "", 0
	for _, sentence := range sentences(passages) {
		score := 0
		for w := range words(sentence) {
			if want[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}
	if bestScore == 0 {
		return NoAnswer, nil
	}
	return best, nil
}

func (m *MockLLM) ModelName() string {
	return "mock"
}

func splitPrompt(prompt string) (passages, question string) {
	q := strings.LastIndex(prompt, "Question:")
	if q < 0 {
		return prompt, ""
	}
	question = prompt[q+len("Question:"):]
	if end := strings.Index(question, "\n\n"); end >= 0 {
		question = question[:end]
	}
	passages = prompt[:q]
	if c := strings.Index(passages, "Context:"); c >= 0 {
		passages = passages[c+len("Context:"):]
	}
	return passages, strings.TrimSpace(question)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "of": true, "to": true,
	"in": true, "on": true, "and": true, "or": true, "what": true, "how": true, "does": true,
	"do": true, "which": true, "who": true, "it": true, "for": true, "with": true,
}

func words(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(w) > 1 && !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

// sentences splits on sentence ends and line breaks, skipping chunk headers
// and delimiters.
func sentences(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "---" || strings.HasPrefix(line, "[") {
			continue
		}
		start := 0
		for i, r := range line {
			if r == '.' || r == '!' || r == '?' {
				if sentence := strings.TrimSpace(line[start : i+1]); sentence != "" {
					out = append(out, sentence)
				}
				start = i + 1
			}
		}
		if rest := strings.TrimSpace(line[start:]); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

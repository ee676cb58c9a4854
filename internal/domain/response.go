package domain

import (
	"regexp"
	"strings"
)

// NextQuestionsMarker separates the answer from the follow-up suggestions.
const NextQuestionsMarker = "NEXT_QUESTIONS:"

// SuggestionCount is the only number of suggestions that gets rendered.
const SuggestionCount = 3

var questionNumber = regexp.MustCompile(`^\d+\)\s*`)

type ParsedResponse struct {
	Answer        string   `json:"answer"`
	NextQuestions []string `json:"next_questions"`
}

// Suggestions returns the follow-up questions only when exactly three were parsed.
func (p *ParsedResponse) Suggestions() []string {
	if p == nil || len(p.NextQuestions) != SuggestionCount {
		return nil
	}
	return p.NextQuestions
}

// ParseResponse splits raw completion text into the answer and the numbered
// questions listed after NEXT_QUESTIONS:. The marker line itself is dropped.
func ParseResponse(raw string) *ParsedResponse {
	idx := strings.Index(raw, NextQuestionsMarker)
	if idx == -1 {
		return &ParsedResponse{Answer: strings.TrimSpace(raw), NextQuestions: []string{}}
	}

	var lines []string
	for _, line := range strings.Split(raw[idx:], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	questions := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		questions = append(questions, questionNumber.ReplaceAllString(line, ""))
	}

	return &ParsedResponse{
		Answer:        strings.TrimSpace(raw[:idx]),
		NextQuestions: questions,
	}
}

// Package interview implements the AI collaborators of the assessment
// engine: question generation, answer rating, and final feedback.
package interview

import (
	"context"
	"fmt"
	"strings"

	"skill-assessment-service/internal/llm"
)

// DefaultQuestionCount matches the length of a standard assessment.
const DefaultQuestionCount = 5

// Source generates interview questions for a skill.
type Source struct {
	provider llm.Provider
	count    int
}

// NewSource builds a question source. count <= 0 uses DefaultQuestionCount.
func NewSource(provider llm.Provider, count int) *Source {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	return &Source{provider: provider, count: count}
}

// Questions returns an ordered list of question strings for the skill.
func (s *Source) Questions(ctx context.Context, skill string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Ask %d distinct, theoretical technical interview questions for a %s role.\n"+
			"Do not provide any introduction, explanation, or numbering.\n"+
			"Each question must be on a new line.",
		s.count, skill,
	)

	resp, err := s.provider.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	var questions []string
	for _, line := range strings.Split(resp.Text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			questions = append(questions, line)
		}
	}
	return questions, nil
}

// LoadQuestions adapts the source to the question-cache loader contract.
func (s *Source) LoadQuestions(ctx context.Context, skill string) ([]string, error) {
	return s.Questions(ctx, skill)
}

package interview

import (
	"context"
	"fmt"

	"skill-assessment-service/internal/llm"
)

// Summarizer produces the closing performance review for a session.
type Summarizer struct {
	provider llm.Provider
}

// NewSummarizer builds a feedback summarizer on the given provider.
func NewSummarizer(provider llm.Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

// FinalFeedback returns a short natural-language review of the whole
// assessment.
func (s *Summarizer) FinalFeedback(ctx context.Context, skill string, totalScore, maxScore int) (string, error) {
	prompt := fmt.Sprintf(
		"Provide a concise, encouraging performance review for a candidate who completed a %s assessment.\n"+
			"Their final score was %d out of a maximum of %d.\n"+
			"Highlight their strengths based on their score and suggest general areas for improvement if the score is low.\n"+
			"Keep the review to 2-3 sentences.",
		skill, totalScore, maxScore,
	)

	resp, err := s.provider.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("final feedback: %w", err)
	}
	return resp.Text, nil
}

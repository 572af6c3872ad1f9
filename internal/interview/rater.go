package interview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"skill-assessment-service/internal/domain"
	"skill-assessment-service/internal/llm"
)

// NoSuggestion is recorded when the model omits an improvement hint.
const NoSuggestion = "No suggestion was provided."

var (
	ratingRe     = regexp.MustCompile(`(?i)Rating:\s*(\d+)\s*/\s*10`)
	suggestionRe = regexp.MustCompile(`(?i)Suggestion:\s*(.*)`)
)

// Rater scores a single answer against its question.
type Rater struct {
	provider llm.Provider
}

// NewRater builds an answer rater on the given provider.
func NewRater(provider llm.Provider) *Rater {
	return &Rater{provider: provider}
}

// Rate returns a 0-10 score and an improvement suggestion for the answer.
func (r *Rater) Rate(ctx context.Context, question, answer string) (domain.Rating, error) {
	prompt := fmt.Sprintf(
		"Please act as a technical interviewer. Evaluate the user's answer to the following question.\n"+
			"Provide a numerical rating from 1 to 10 and a concise suggestion for improvement.\n"+
			"Your response MUST be in this exact format: \"Rating: [number]/10 | Suggestion: [text]\". Do not add any other text.\n\n"+
			"Question: %q\nAnswer: %q",
		question, answer,
	)

	resp, err := r.provider.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		return domain.Rating{}, fmt.Errorf("rate answer: %w", err)
	}
	return parseRating(resp.Text), nil
}

// parseRating extracts the score and suggestion from the model's reply.
// A missing score parses as 0; a missing suggestion gets NoSuggestion.
func parseRating(text string) domain.Rating {
	rating := domain.Rating{Suggestion: NoSuggestion}

	if m := ratingRe.FindStringSubmatch(text); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			if score > 10 {
				score = 10
			}
			rating.Score = score
		}
	}
	if m := suggestionRe.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			rating.Suggestion = s
		}
	}
	return rating
}

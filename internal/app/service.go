package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"skill-assessment-service/internal/domain"
)

// QuestionProvider returns an ordered question set for a skill.
type QuestionProvider interface {
	Questions(ctx context.Context, skill string) ([]string, error)
}

// AnswerRater scores one answer against its question.
type AnswerRater interface {
	Rate(ctx context.Context, question, answer string) (domain.Rating, error)
}

// FeedbackSummarizer produces the closing performance review.
type FeedbackSummarizer interface {
	FinalFeedback(ctx context.Context, skill string, totalScore, maxScore int) (string, error)
}

// VerificationStore persists the verified flag for a skill record.
type VerificationStore interface {
	MarkVerified(ctx context.Context, skillID string) error
}

// SkillStore additionally resolves skill records, for validating the
// skillId handed to Start.
type SkillStore interface {
	VerificationStore
	GetSkill(ctx context.Context, skillID string) (domain.Skill, error)
}

// SessionRegistry abstracts how live sessions are tracked (in-memory,
// Redis-marked, etc).
type SessionRegistry interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// AssessmentService owns the lifecycle of assessment sessions.
type AssessmentService struct {
	registry   SessionRegistry
	questions  QuestionProvider
	rater      AnswerRater
	summarizer FeedbackSummarizer
	skills     SkillStore

	questionSeconds int
	callTimeout     time.Duration
}

// Option tweaks service construction.
type Option func(*AssessmentService)

// WithQuestionSeconds overrides the per-question budget.
func WithQuestionSeconds(seconds int) Option {
	return func(s *AssessmentService) { s.questionSeconds = seconds }
}

// WithCallTimeout bounds each outbound service call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *AssessmentService) { s.callTimeout = d }
}

func NewAssessmentService(registry SessionRegistry, questions QuestionProvider, rater AnswerRater, summarizer FeedbackSummarizer, skills SkillStore, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		registry:        registry,
		questions:       questions,
		rater:           rater,
		summarizer:      summarizer,
		skills:          skills,
		questionSeconds: DefaultQuestionSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session for a (skill, skillId) pair and begins loading
// questions. A non-empty skillID must resolve to a known skill record;
// an empty one skips verification persistence entirely.
func (s *AssessmentService) Start(ctx context.Context, skillName, skillID string, captureSupported bool) (*Session, error) {
	if skillID != "" && s.skills != nil {
		if _, err := s.skills.GetSkill(ctx, skillID); err != nil {
			return nil, err
		}
	}

	session := newSession(sessionConfig{
		id:               uuid.NewString(),
		skillName:        skillName,
		skillID:          skillID,
		captureSupported: captureSupported,
		questionSeconds:  s.questionSeconds,
		callTimeout:      s.callTimeout,
	}, s.questions, s.rater, s.summarizer, s.skills)

	s.registry.Put(session)
	return session, nil
}

// Get looks up a live session.
func (s *AssessmentService) Get(sessionID string) (*Session, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close tears a session down and forgets it. Results of calls still in
// flight are discarded, never applied to the dead session.
func (s *AssessmentService) Close(sessionID string) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.registry.Delete(sessionID)
}

// NewSessionForTest builds a session with an injected tick channel so
// tests control the clock. Production code uses AssessmentService.Start.
func NewSessionForTest(skillName, skillID string, captureSupported bool, ticks <-chan time.Time, questions QuestionProvider, rater AnswerRater, summarizer FeedbackSummarizer, skills VerificationStore) *Session {
	return newSession(sessionConfig{
		id:               uuid.NewString(),
		skillName:        skillName,
		skillID:          skillID,
		captureSupported: captureSupported,
		ticks:            ticks,
	}, questions, rater, summarizer, skills)
}

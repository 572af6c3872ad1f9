package memory

import (
	"context"
	"testing"
	"time"

	"skill-assessment-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string][]string{
			"Go": {"What is a goroutine?", "Explain channels."},
		}),
	}
	cache := NewQuestionCache(loader, time.Minute)

	questions, err := cache.Questions(context.Background(), "Go")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.Questions(context.Background(), "Go"); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCachePropagatesLoaderError(t *testing.T) {
	cache := NewQuestionCache(NewStaticQuestionLoader(nil), time.Minute)
	if _, err := cache.Questions(context.Background(), "Unknown"); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, skill string) ([]string, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, skill)
}

func TestSkillStoreVerification(t *testing.T) {
	store := NewSkillStore(domain.Skill{ID: "s1", Name: "ReactJS"})

	skill, err := store.GetSkill(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if skill.Verified {
		t.Fatalf("expected unverified skill")
	}

	if err := store.MarkVerified(context.Background(), "s1"); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	// Idempotent second write.
	if err := store.MarkVerified(context.Background(), "s1"); err != nil {
		t.Fatalf("mark verified twice: %v", err)
	}

	skill, _ = store.GetSkill(context.Background(), "s1")
	if !skill.Verified {
		t.Fatalf("expected verified skill")
	}

	if err := store.MarkVerified(context.Background(), "missing"); err != domain.ErrSkillNotFound {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

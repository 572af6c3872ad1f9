package memory

import (
	"context"
	"sync"

	"skill-assessment-service/internal/domain"
)

// SkillStore is an in-memory skill record store for tests and dev mode.
type SkillStore struct {
	mu     sync.RWMutex
	skills map[string]domain.Skill
}

func NewSkillStore(skills ...domain.Skill) *SkillStore {
	s := &SkillStore{skills: make(map[string]domain.Skill)}
	for _, skill := range skills {
		s.skills[skill.ID] = skill
	}
	return s
}

func (s *SkillStore) GetSkill(_ context.Context, skillID string) (domain.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skill, ok := s.skills[skillID]
	if !ok {
		return domain.Skill{}, domain.ErrSkillNotFound
	}
	return skill, nil
}

// MarkVerified flips the verified flag. Idempotent: verifying twice is
// not an error.
func (s *SkillStore) MarkVerified(_ context.Context, skillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	skill, ok := s.skills[skillID]
	if !ok {
		return domain.ErrSkillNotFound
	}
	skill.Verified = true
	s.skills[skillID] = skill
	return nil
}

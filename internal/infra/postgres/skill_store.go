package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"skill-assessment-service/internal/domain"
)

// SkillStore reads and verifies skill records in Postgres.
type SkillStore struct {
	pool *pgxpool.Pool
}

func NewSkillStore(pool *pgxpool.Pool) *SkillStore {
	return &SkillStore{pool: pool}
}

func (s *SkillStore) GetSkill(ctx context.Context, skillID string) (domain.Skill, error) {
	var skill domain.Skill
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, verified FROM skills WHERE id=$1`, skillID,
	).Scan(&skill.ID, &skill.Name, &skill.Verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Skill{}, domain.ErrSkillNotFound
	}
	if err != nil {
		return domain.Skill{}, fmt.Errorf("load skill: %w", err)
	}
	return skill, nil
}

// MarkVerified sets the verified flag. The UPDATE is idempotent; running
// it for an already-verified skill is not an error.
func (s *SkillStore) MarkVerified(ctx context.Context, skillID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE skills SET verified = TRUE, verified_at = now() WHERE id=$1`, skillID,
	)
	if err != nil {
		return fmt.Errorf("mark skill verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSkillNotFound
	}
	return nil
}

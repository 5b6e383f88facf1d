package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
)

// ChallengeRepository implements repository.ChallengeRepository over a
// Querier, so it runs the same whether q is a pool or a transaction.
type ChallengeRepository struct {
	q Querier
}

var _ repository.ChallengeRepository = (*ChallengeRepository)(nil)

func NewChallengeRepository(q Querier) *ChallengeRepository {
	return &ChallengeRepository{q: q}
}

func (r *ChallengeRepository) Create(ctx context.Context, c entity.CSRChallenge) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO csr_challenges (token_hash, company_id, expires_at) VALUES ($1, $2, $3)`,
		c.TokenHash, c.CompanyID, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) FindUnexpiredUnused(ctx context.Context, companyID string) (entity.CSRChallenge, bool, error) {
	row := r.q.QueryRow(ctx,
		`SELECT token_hash, company_id, expires_at, used_at
		 FROM csr_challenges
		 WHERE company_id = $1 AND used_at IS NULL AND expires_at > now()
		 ORDER BY expires_at DESC LIMIT 1`,
		companyID,
	)

	var c entity.CSRChallenge
	var usedAt *time.Time
	if err := row.Scan(&c.TokenHash, &c.CompanyID, &c.ExpiresAt, &usedAt); err != nil {
		if err == pgx.ErrNoRows {
			return entity.CSRChallenge{}, false, nil
		}
		return entity.CSRChallenge{}, false, fmt.Errorf("postgres: find challenge: %w", err)
	}
	c.UsedAt = usedAt
	return c, true, nil
}

func (r *ChallengeRepository) MarkUsed(ctx context.Context, tokenHash []byte) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE csr_challenges SET used_at = now() WHERE token_hash = $1 AND used_at IS NULL`,
		tokenHash,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark challenge used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: challenge already used or not found")
	}
	return nil
}

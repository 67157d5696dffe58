package clickhouse

import (
	"context"
	"fmt"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

type profileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

const profileByIDQuery = `
	SELECT user_id, age, profession, interests
	FROM users
	WHERE user_id = ?
	LIMIT 1
`

func (r *profileRepository) GetByID(ctx context.Context, userID uint64) (*domain.UserProfile, error) {
	rows, err := r.db.Conn().Query(ctx, profileByIDQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user profile: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	var p domain.UserProfile
	if err := rows.Scan(&p.UserID, &p.Age, &p.Profession, &p.Interests); err != nil {
		return nil, fmt.Errorf("failed to scan user profile: %w", err)
	}

	return &p, nil
}

package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/repository/port"
)

// PgUserRepository reads the profile and application projections that the
// marketplace services maintain in Postgres.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var (
	_ repository.UserDirectory    = (*PgUserRepository)(nil)
	_ repository.ApplicationLinks = (*PgUserRepository)(nil)
)

func (r *PgUserRepository) Profiles(ctx context.Context, userIDs ...string) (map[string]chat.Profile, error) {
	out := make(map[string]chat.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, display_name, avatar_url
		FROM chat.user_profile
		WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p chat.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

func (r *PgUserRepository) PushEnabled(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx,
		"SELECT push_enabled FROM chat.user_profile WHERE user_id = $1", userID,
	).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	return enabled, err
}

func (r *PgUserRepository) Parties(ctx context.Context, applicationID string) (string, string, error) {
	var applicant, employer string
	err := r.pool.QueryRow(ctx,
		"SELECT applicant_id, employer_id FROM chat.application_link WHERE id = $1", applicationID,
	).Scan(&applicant, &employer)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", repository.ErrApplicationNotFound
	}
	return applicant, employer, err
}

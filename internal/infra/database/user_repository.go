package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const upsertUserQuery = `
	INSERT INTO users (id, name, email, role, is_active, team, last_synced_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		email = EXCLUDED.email,
		role = EXCLUDED.role,
		is_active = EXCLUDED.is_active,
		team = EXCLUDED.team,
		last_synced_at = EXCLUDED.last_synced_at
`

func (r *UserRepository) UpsertUsers(ctx context.Context, users []*entity.User) error {
	if len(users) == 0 {
		return nil
	}

	return inTx(ctx, r.DB, "users", upsertUserQuery, len(users), func(stmt *sql.Stmt, i int) error {
		u := users[i]
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email, u.Role, u.IsActive, u.Team, u.LastSyncedAt); err != nil {
			return fmt.Errorf("upsert user %d: %w", u.ID, err)
		}
		return nil
	})
}

// ListAdvisors returns the active users ordered by name, as stored by the last sync.
func (r *UserRepository) ListAdvisors(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, email, role, is_active, team, last_synced_at
		FROM users
		WHERE is_active
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list advisors: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var u entity.User
		var email, role, team sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &email, &role, &u.IsActive, &team, &u.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("scan advisor: %w", err)
		}
		u.Email = nullableString(email)
		u.Role = nullableString(role)
		u.Team = nullableString(team)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

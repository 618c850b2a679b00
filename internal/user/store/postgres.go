package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cat/internal/user/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// Postgres persists user profiles. Roles are stored as a text array; the
// deny_access role and its reason are written in one statement so the flag is
// never visible without the reason.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, roles, deny_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, pq.Array(rolesToStrings(user.Roles)),
		user.DenyReason, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return mapStoreErr(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, roles, deny_reason, created_at, updated_at
		FROM users WHERE id = $1
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, mapStoreErr(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *Postgres) List(ctx context.Context, req paging.Request) ([]*models.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, mapStoreErr(fmt.Errorf("count users: %w", err))
	}

	query := `
		SELECT id, name, email, roles, deny_reason, created_at, updated_at
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, req.Size, req.Offset())
	if err != nil {
		return nil, 0, mapStoreErr(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	users := make([]*models.User, 0, req.Size)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, mapStoreErr(fmt.Errorf("scan user: %w", err))
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapStoreErr(fmt.Errorf("list users: %w", err))
	}
	return users, total, nil
}

func (s *Postgres) SetDenyAccess(ctx context.Context, userID, reason string, now time.Time) error {
	query := `
		UPDATE users
		SET roles = array_append(array_remove(roles, 'deny_access'), 'deny_access'),
		    deny_reason = $2,
		    updated_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, userID, reason, now)
	if err != nil {
		return mapStoreErr(fmt.Errorf("deny access: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr(fmt.Errorf("deny access: %w", err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user  models.User
		roles pq.StringArray
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &roles,
		&user.DenyReason, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Roles = make([]models.Role, 0, len(roles))
	for _, r := range roles {
		user.Roles = append(user.Roles, models.Role(r))
	}
	return &user, nil
}

func rolesToStrings(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// mapStoreErr keeps deadline and connectivity failures distinguishable from
// domain facts so the service layer can surface them as retryable.
func mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return err
}

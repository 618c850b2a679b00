package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cat/internal/validation/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// Postgres stores validations in the validations table. The one-live-request
// invariant is enforced by a partial unique index over
// (user_id, organisation_id, organisation_source, actor_id) restricted to
// live statuses, so concurrent inserts cannot both succeed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const validationColumns = `id, user_id, organisation_id, organisation_source, organisation_name,
	organisation_role, organisation_website, actor_id, status, reviewed_by, reviewed_at,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, v *models.Validation) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO validations (user_id, organisation_id, organisation_source, organisation_name,
			organisation_role, organisation_website, actor_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		v.UserID, v.OrganisationID, v.OrganisationSource, v.OrganisationName,
		v.OrganisationRole, v.OrganisationWebsite, v.ActorID, v.Status, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return mapStoreErr("create validation", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Validation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+validationColumns+` FROM validations WHERE id = $1`, id)
	v, err := scanValidation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, mapStoreErr("find validation", err)
	}
	return v, nil
}

func (s *Postgres) List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Validation, int, error) {
	where, args := listClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validations`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapStoreErr("count validations", err)
	}

	query := fmt.Sprintf(`SELECT `+validationColumns+` FROM validations%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, req.Size, req.Offset())...)
	if err != nil {
		return nil, 0, mapStoreErr("list validations", err)
	}
	defer rows.Close()

	var items []*models.Validation
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, 0, mapStoreErr("scan validation", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapStoreErr("list validations", err)
	}
	return items, total, nil
}

func (s *Postgres) Update(ctx context.Context, v *models.Validation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE validations
		SET organisation_name = $2, organisation_role = $3, organisation_website = $4, updated_at = $5
		WHERE id = $1`,
		v.ID, v.OrganisationName, v.OrganisationRole, v.OrganisationWebsite, v.UpdatedAt)
	if err != nil {
		return mapStoreErr("update validation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr("update validation", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UpdateStatus transitions from -> to with a compare-and-swap on the status
// column. A transition into APPROVED additionally re-checks the live-request
// invariant inside the same transaction.
func (s *Postgres) UpdateStatus(ctx context.Context, id int64, from, to models.Status, reviewerID string, now time.Time) (*models.Validation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapStoreErr("update validation status", err)
	}
	defer tx.Rollback()

	if to == models.StatusApproved {
		var conflicting bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM validations v
				JOIN validations cur ON cur.id = $1
				WHERE v.id <> cur.id
				  AND v.user_id = cur.user_id
				  AND v.organisation_id = cur.organisation_id
				  AND v.organisation_source = cur.organisation_source
				  AND v.actor_id = cur.actor_id
				  AND v.status IN ('PENDING', 'REVIEW', 'APPROVED')
			)`, id).Scan(&conflicting)
		if err != nil {
			return nil, mapStoreErr("check live requests", err)
		}
		if conflicting {
			return nil, sentinel.ErrConflict
		}
	}

	now = now.UTC()
	row := tx.QueryRowContext(ctx, `
		UPDATE validations
		SET status = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+validationColumns,
		id, from, to, reviewerID, now)
	v, err := scanValidation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row either vanished or a concurrent reviewer moved it first.
			var exists bool
			if checkErr := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM validations WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
				return nil, mapStoreErr("update validation status", checkErr)
			}
			if !exists {
				return nil, sentinel.ErrNotFound
			}
			return nil, sentinel.ErrConflict
		}
		return nil, mapStoreErr("update validation status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreErr("update validation status", err)
	}
	return v, nil
}

func (s *Postgres) HasApproved(ctx context.Context, userID, orgID string, actorID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM validations
			WHERE user_id = $1 AND organisation_id = $2 AND actor_id = $3 AND status = 'APPROVED'
		)`, userID, orgID, actorID).Scan(&exists)
	if err != nil {
		return false, mapStoreErr("check approved validation", err)
	}
	return exists, nil
}

func listClause(filter models.ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidation(row rowScanner) (*models.Validation, error) {
	var (
		v          models.Validation
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.UserID, &v.OrganisationID, &v.OrganisationSource, &v.OrganisationName,
		&v.OrganisationRole, &v.OrganisationWebsite, &v.ActorID, &v.Status, &reviewedBy, &reviewedAt,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		v.ReviewedAt = &t
	}
	return &v, nil
}

func mapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

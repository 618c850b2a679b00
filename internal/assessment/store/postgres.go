package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cat/internal/assessment/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// Postgres stores assessments in the assessments table. The document tree is
// a jsonb column; the duplicate tuple is a unique index over
// (user_id, organisation_id, subject_id, type_id).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const assessmentColumns = `id, user_id, organisation_id, actor_id, type_id, type_name,
	subject_id, status, version, document, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, a *models.Assessment) error {
	doc, err := json.Marshal(a.Document)
	if err != nil {
		return fmt.Errorf("encode assessment document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, user_id, organisation_id, actor_id, type_id, type_name,
			subject_id, status, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.UserID, a.OrganisationID, a.ActorID, a.TypeID, a.TypeName,
		a.SubjectID, a.Status, a.Version, doc, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return mapStoreErr("create assessment", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, mapStoreErr("find assessment", err)
	}
	return a, nil
}

func (s *Postgres) List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Assessment, int, error) {
	where, args := listClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessments`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapStoreErr("count assessments", err)
	}

	query := fmt.Sprintf(`SELECT `+assessmentColumns+` FROM assessments%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, req.Size, req.Offset())...)
	if err != nil {
		return nil, 0, mapStoreErr("list assessments", err)
	}
	defer rows.Close()

	var items []*models.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, mapStoreErr("scan assessment", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapStoreErr("list assessments", err)
	}
	return items, total, nil
}

// Update writes the new document with a compare-and-swap on the version
// column, so two concurrent editors cannot both land on the same version.
// The status guard in the WHERE clause keeps published documents frozen
// even against an update racing the publish.
func (s *Postgres) Update(ctx context.Context, a *models.Assessment, expectedVersion int) error {
	doc, err := json.Marshal(a.Document)
	if err != nil {
		return fmt.Errorf("encode assessment document: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE assessments
		SET document = $3, version = $4, updated_at = $5
		WHERE id = $1 AND version = $2 AND status = $6`,
		a.ID, expectedVersion, doc, a.Version, a.UpdatedAt, models.StatusPrivate)
	if err != nil {
		return mapStoreErr("update assessment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr("update assessment", err)
	}
	if n == 0 {
		return s.classifyUpdateMiss(ctx, a.ID)
	}
	return nil
}

// Publish flips PRIVATE to PUBLISHED with a status guard in the WHERE
// clause. Re-publishing fails with sentinel.ErrInvalidState.
func (s *Postgres) Publish(ctx context.Context, id string, now time.Time) (*models.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE assessments
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+assessmentColumns,
		id, models.StatusPublished, now.UTC(), models.StatusPrivate)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if checkErr := s.db.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
				return nil, mapStoreErr("publish assessment", checkErr)
			}
			if !exists {
				return nil, sentinel.ErrNotFound
			}
			return nil, sentinel.ErrInvalidState
		}
		return nil, mapStoreErr("publish assessment", err)
	}
	return a, nil
}

// Delete removes a PRIVATE assessment; published records are kept.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM assessments WHERE id = $1 AND status = $2`, id, models.StatusPrivate)
	if err != nil {
		return mapStoreErr("delete assessment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapStoreErr("delete assessment", err)
	}
	if n == 0 {
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return mapStoreErr("delete assessment", checkErr)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// classifyUpdateMiss decides why the update CAS matched no row: the record
// is gone, it was published in the meantime, or a concurrent writer bumped
// the version first.
func (s *Postgres) classifyUpdateMiss(ctx context.Context, id string) error {
	var status models.Status
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM assessments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return mapStoreErr("update assessment", err)
	}
	if status != models.StatusPrivate {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrConflict
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
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		clauses = append(clauses, fmt.Sprintf("subject_id = $%d", len(args)))
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

func scanAssessment(row rowScanner) (*models.Assessment, error) {
	var (
		a   models.Assessment
		doc []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.OrganisationID, &a.ActorID, &a.TypeID, &a.TypeName,
		&a.SubjectID, &a.Status, &a.Version, &doc, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &a.Document); err != nil {
		return nil, fmt.Errorf("decode assessment document: %w", err)
	}
	return &a, nil
}

func mapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

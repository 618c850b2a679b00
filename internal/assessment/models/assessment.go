package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "cat/pkg/domain-errors"
)

// Status is the visibility state of an assessment. The only legal move is
// PRIVATE -> PUBLISHED, and it is one-way.
type Status string

const (
	StatusPrivate   Status = "PRIVATE"
	StatusPublished Status = "PUBLISHED"
)

// Assessment is an owner-scoped compliance self-assessment. The tuple
// (user, organisation, subject, type) is unique: one assessment per subject
// per role per owner.
type Assessment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	ActorID        int64     `json:"actor_id"`
	TypeID         int64     `json:"assessment_type_id"`
	TypeName       string    `json:"assessment_type_name,omitempty"`
	SubjectID      string    `json:"subject_id"`
	Status         Status    `json:"status"`
	Version        int       `json:"version"`
	Document       Document  `json:"assessment_doc"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAssessment builds a PRIVATE version-1 assessment and checks its
// invariants. The subject identity is taken from the document so the unique
// tuple and the stored body cannot drift apart.
func NewAssessment(userID string, typeID int64, typeName string, doc Document, now time.Time) (*Assessment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment owner must not be empty")
	}
	if typeID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment type id must be a positive identifier")
	}
	if strings.TrimSpace(doc.Name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment name must not be empty")
	}
	if strings.TrimSpace(doc.Organisation.ID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment organisation must not be empty")
	}
	if doc.Actor.ID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment actor must be a positive identifier")
	}
	if strings.TrimSpace(doc.Subject.ID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment subject must not be empty")
	}

	now = now.UTC()
	return &Assessment{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganisationID: doc.Organisation.ID,
		ActorID:        doc.Actor.ID,
		TypeID:         typeID,
		TypeName:       typeName,
		SubjectID:      doc.Subject.ID,
		Status:         StatusPrivate,
		Version:        1,
		Document:       doc,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsPublished reports whether the assessment is publicly visible.
func (a *Assessment) IsPublished() bool {
	return a.Status == StatusPublished
}

// ApplyDocument replaces the body and bumps the version. Subject and
// organisation identity are fixed at creation; a changed subject would
// silently escape the uniqueness tuple.
func (a *Assessment) ApplyDocument(doc Document, now time.Time) error {
	if strings.TrimSpace(doc.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "assessment name must not be empty")
	}
	if doc.Organisation.ID != a.OrganisationID {
		return dErrors.New(dErrors.CodeValidation, "assessment organisation cannot be changed")
	}
	if doc.Subject.ID != a.SubjectID {
		return dErrors.New(dErrors.CodeValidation, "assessment subject cannot be changed")
	}
	if doc.Actor.ID != a.ActorID {
		return dErrors.New(dErrors.CodeValidation, "assessment actor cannot be changed")
	}
	a.Document = doc
	a.Version++
	a.UpdatedAt = now.UTC()
	return nil
}

// ListFilter narrows an assessment listing. Zero values mean "no constraint".
type ListFilter struct {
	UserID    string
	Status    Status
	SubjectID string
}

// Matches reports whether a satisfies every set constraint.
func (f ListFilter) Matches(a *Assessment) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.SubjectID != "" && a.SubjectID != f.SubjectID {
		return false
	}
	return true
}

package models

import (
	"strings"
	"time"

	dErrors "cat/pkg/domain-errors"
)

const (
	maxOrganisationNameLength = 256
	maxOrganisationRoleLength = 128
)

// Validation is a promotion request: a user asking to act in a given role for
// an organisation. It moves through the PENDING/REVIEW/APPROVED/REJECTED
// state machine and, once approved, gates assessment creation for the
// (organisation, actor) pair it names.
type Validation struct {
	ID                  int64      `json:"id"`
	UserID              string     `json:"user_id"`
	OrganisationID      string     `json:"organisation_id"`
	OrganisationSource  string     `json:"organisation_source"`
	OrganisationName    string     `json:"organisation_name"`
	OrganisationRole    string     `json:"organisation_role,omitempty"`
	OrganisationWebsite string     `json:"organisation_website,omitempty"`
	ActorID             int64      `json:"actor_id"`
	Status              Status     `json:"status"`
	ReviewedBy          string     `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewValidation builds a new request in StatusPending and checks its
// invariants. The store assigns the ID on insert.
func NewValidation(userID, orgID, orgSource, orgName, orgRole, orgWebsite string, actorID int64, now time.Time) (*Validation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "validation user id must not be empty")
	}
	if strings.TrimSpace(orgID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organisation id must not be empty")
	}
	if strings.TrimSpace(orgSource) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organisation source must not be empty")
	}
	if strings.TrimSpace(orgName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organisation name must not be empty")
	}
	if len(orgName) > maxOrganisationNameLength {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "organisation name must not exceed %d characters", maxOrganisationNameLength)
	}
	if len(orgRole) > maxOrganisationRoleLength {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "organisation role must not exceed %d characters", maxOrganisationRoleLength)
	}
	if actorID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor id must be a positive identifier")
	}

	now = now.UTC()
	return &Validation{
		UserID:              userID,
		OrganisationID:      orgID,
		OrganisationSource:  orgSource,
		OrganisationName:    orgName,
		OrganisationRole:    orgRole,
		OrganisationWebsite: orgWebsite,
		ActorID:             actorID,
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// ApplyUpdate merges the non-nil descriptive fields of u into v. Status and
// identity fields are never touched here; status moves only through the
// store's compare-and-swap path.
func (v *Validation) ApplyUpdate(u UpdateRequest, now time.Time) error {
	if u.OrganisationName != nil {
		name := strings.TrimSpace(*u.OrganisationName)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "organisation name must not be empty")
		}
		if len(name) > maxOrganisationNameLength {
			return dErrors.Newf(dErrors.CodeValidation, "organisation name must not exceed %d characters", maxOrganisationNameLength)
		}
		v.OrganisationName = name
	}
	if u.OrganisationRole != nil {
		if len(*u.OrganisationRole) > maxOrganisationRoleLength {
			return dErrors.Newf(dErrors.CodeValidation, "organisation role must not exceed %d characters", maxOrganisationRoleLength)
		}
		v.OrganisationRole = *u.OrganisationRole
	}
	if u.OrganisationWebsite != nil {
		v.OrganisationWebsite = *u.OrganisationWebsite
	}
	v.UpdatedAt = now.UTC()
	return nil
}

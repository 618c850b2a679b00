// Package policy evaluates whether a caller may act on a resource. It is a
// pure component: no state of its own, no store access. Services resolve the
// caller and resource first, then ask policy for a decision.
//
// Rules, in order:
//  1. a caller flagged deny_access is rejected for every operation;
//  2. administrative operations require the admin role;
//  3. resource-owner operations require caller == owner OR the admin role;
//  4. everything else is denied (deny-by-default).
package policy

import (
	dErrors "cat/pkg/domain-errors"
)

// Caller is the resolved identity evaluated against the rules.
type Caller struct {
	ID     string
	Admin  bool
	Denied bool
}

// Resource describes the target of an owner-scoped operation.
type Resource struct {
	OwnerID string
}

// AuthorizeIdentified admits any non-denied caller. It guards operations that
// only require an established identity, such as creating a new record.
func AuthorizeIdentified(c Caller) error {
	if c.Denied {
		return deniedErr()
	}
	if c.ID == "" {
		return dErrors.New(dErrors.CodeForbidden, "caller identity is required")
	}
	return nil
}

// AuthorizeAdmin admits administrators only.
func AuthorizeAdmin(c Caller) error {
	if c.Denied {
		return deniedErr()
	}
	if !c.Admin {
		return dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}
	return nil
}

// AuthorizeOwner admits the resource owner or an administrator.
func AuthorizeOwner(c Caller, r Resource) error {
	if c.Denied {
		return deniedErr()
	}
	if c.Admin {
		return nil
	}
	if c.ID != "" && c.ID == r.OwnerID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is not the resource owner")
}

// AuthorizeOwnerOnly admits the resource owner exclusively; administrators are
// not exempt. Assessments are readable by their owner alone.
func AuthorizeOwnerOnly(c Caller, r Resource) error {
	if c.Denied {
		return deniedErr()
	}
	if c.ID != "" && c.ID == r.OwnerID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is not the resource owner")
}

func deniedErr() error {
	return dErrors.New(dErrors.CodeForbidden, "access to the API has been revoked for this user")
}

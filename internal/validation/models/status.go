package models

import (
	dErrors "cat/pkg/domain-errors"
)

// Status is the lifecycle state of a promotion request.
type Status string

const (
	// StatusPending is the initial state of every new request.
	StatusPending Status = "PENDING"
	// StatusReview marks a request picked up by an administrator.
	StatusReview Status = "REVIEW"
	// StatusApproved is terminal; the requested actor role is granted.
	StatusApproved Status = "APPROVED"
	// StatusRejected is terminal; re-application requires a new request.
	StatusRejected Status = "REJECTED"
)

// legalTransitions encodes the full state machine:
// PENDING -> {REVIEW, APPROVED, REJECTED}, REVIEW -> {APPROVED, REJECTED}.
// Terminal states have no outgoing edges; same-status transitions are illegal.
var legalTransitions = map[Status][]Status{
	StatusPending: {StatusReview, StatusApproved, StatusRejected},
	StatusReview:  {StatusApproved, StatusRejected},
}

// ParseStatus validates a boundary-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusReview, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown validation status %q", s)
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsLive reports whether the status counts against the one-live-request
// invariant: a user may hold at most one PENDING, REVIEW or APPROVED request
// per (organisation, source, actor) tuple.
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusReview || s == StatusApproved
}

// CanTransitionTo reports whether s -> target is a legal edge.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// LiveStatuses lists the states counting against the live-request invariant,
// in the order stores use for filter clauses.
func LiveStatuses() []Status {
	return []Status{StatusPending, StatusReview, StatusApproved}
}

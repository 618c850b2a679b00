package models

import (
	"testing"
	"time"

	dErrors "cat/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReview, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusReview, StatusApproved, true},
		{StatusReview, StatusRejected, true},
		{StatusReview, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusReview, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusApproved, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusClassification(t *testing.T) {
	if !StatusApproved.IsTerminal() || !StatusRejected.IsTerminal() {
		t.Error("APPROVED and REJECTED must be terminal")
	}
	if StatusPending.IsTerminal() || StatusReview.IsTerminal() {
		t.Error("PENDING and REVIEW must not be terminal")
	}
	if !StatusPending.IsLive() || !StatusReview.IsLive() || !StatusApproved.IsLive() {
		t.Error("PENDING, REVIEW and APPROVED count against the live-request invariant")
	}
	if StatusRejected.IsLive() {
		t.Error("REJECTED must not count against the live-request invariant")
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"PENDING", "REVIEW", "APPROVED", "REJECTED"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q): unexpected error %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "pending", "DONE", "approved"} {
		_, err := ParseStatus(invalid)
		if err == nil {
			t.Errorf("ParseStatus(%q): expected error", invalid)
		}
		if !dErrors.HasCode(err, dErrors.CodeValidation) {
			t.Errorf("ParseStatus(%q): expected validation error, got %v", invalid, err)
		}
	}
}

func TestNewValidationInvariants(t *testing.T) {
	now := time.Now()

	if _, err := NewValidation("alice", "org-1", "ror", "Org", "manager", "", 1, now); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name    string
		userID  string
		orgID   string
		source  string
		orgName string
		actorID int64
	}{
		{"empty user", "", "org-1", "ror", "Org", 1},
		{"empty org", "alice", "", "ror", "Org", 1},
		{"empty source", "alice", "org-1", "", "Org", 1},
		{"empty org name", "alice", "org-1", "ror", "", 1},
		{"zero actor", "alice", "org-1", "ror", "Org", 0},
		{"negative actor", "alice", "org-1", "ror", "Org", -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewValidation(tc.userID, tc.orgID, tc.source, tc.orgName, "", "", tc.actorID, now)
			if err == nil {
				t.Fatal("expected error")
			}
			if !dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				t.Fatalf("expected invariant violation, got %v", err)
			}
		})
	}
}

package policy

import (
	"testing"

	dErrors "cat/pkg/domain-errors"
)

var (
	owner   = Caller{ID: "alice"}
	other   = Caller{ID: "bob"}
	admin   = Caller{ID: "root", Admin: true}
	denied  = Caller{ID: "mallory", Denied: true}
	sneaky  = Caller{ID: "root", Admin: true, Denied: true}
	nobody  = Caller{}
	target  = Resource{OwnerID: "alice"}
	invalid = Resource{}
)

func assertForbidden(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected forbidden error, got nil")
	}
	if !dErrors.HasCode(err, dErrors.CodeForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestAuthorizeIdentified(t *testing.T) {
	if err := AuthorizeIdentified(owner); err != nil {
		t.Fatalf("identified caller rejected: %v", err)
	}
	assertForbidden(t, AuthorizeIdentified(denied))
	assertForbidden(t, AuthorizeIdentified(nobody))
}

func TestAuthorizeAdmin(t *testing.T) {
	if err := AuthorizeAdmin(admin); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	assertForbidden(t, AuthorizeAdmin(owner))
	// deny_access trumps every role, admin included
	assertForbidden(t, AuthorizeAdmin(sneaky))
}

func TestAuthorizeOwner(t *testing.T) {
	if err := AuthorizeOwner(owner, target); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if err := AuthorizeOwner(admin, target); err != nil {
		t.Fatalf("admin not exempt: %v", err)
	}
	assertForbidden(t, AuthorizeOwner(other, target))
	assertForbidden(t, AuthorizeOwner(denied, target))
	// empty caller never matches an empty owner
	assertForbidden(t, AuthorizeOwner(nobody, invalid))
}

func TestAuthorizeOwnerOnly(t *testing.T) {
	if err := AuthorizeOwnerOnly(owner, target); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	assertForbidden(t, AuthorizeOwnerOnly(admin, target))
	assertForbidden(t, AuthorizeOwnerOnly(other, target))
	assertForbidden(t, AuthorizeOwnerOnly(denied, target))
}

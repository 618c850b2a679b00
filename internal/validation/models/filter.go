package models

// ListFilter narrows a validation listing. Zero values mean "no constraint".
type ListFilter struct {
	// UserID restricts the listing to requests submitted by one user.
	UserID string
	// Status restricts the listing to a single lifecycle state.
	Status Status
}

// Matches reports whether v satisfies every set constraint.
func (f ListFilter) Matches(v *Validation) bool {
	if f.UserID != "" && v.UserID != f.UserID {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	return true
}

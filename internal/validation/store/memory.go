package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cat/internal/validation/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded validation store for tests and local runs. All
// invariant checks run under the single lock, so it gives the same atomicity
// guarantees as the Postgres store's partial unique index and CAS update.
type InMemory struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*models.Validation
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[int64]*models.Validation)}
}

// Create inserts v and assigns its ID. It fails with sentinel.ErrConflict
// when a live request already exists for the same
// (user, organisation, source, actor) tuple.
func (s *InMemory) Create(ctx context.Context, v *models.Validation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if s.sameTuple(existing, v) && existing.Status.IsLive() {
			return sentinel.ErrConflict
		}
	}

	s.seq++
	v.ID = s.seq
	s.items[v.ID] = cloneValidation(v)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id int64) (*models.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneValidation(v), nil
}

// List returns one page of validations matching filter, ordered by creation
// time then ID, together with the total match count.
func (s *InMemory) List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Validation, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Validation, 0, len(s.items))
	for _, v := range s.items {
		if filter.Matches(v) {
			matched = append(matched, cloneValidation(v))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	page, total := paging.Slice(matched, req)
	return page, total, nil
}

// Update replaces the stored record's descriptive fields. Status is never
// written here; UpdateStatus owns that column.
func (s *InMemory) Update(ctx context.Context, v *models.Validation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.OrganisationName = v.OrganisationName
	stored.OrganisationRole = v.OrganisationRole
	stored.OrganisationWebsite = v.OrganisationWebsite
	stored.UpdatedAt = v.UpdatedAt
	return nil
}

// UpdateStatus performs a compare-and-swap transition from -> to. It returns
// sentinel.ErrNotFound when the record does not exist and
// sentinel.ErrConflict when the current status no longer equals from, i.e.
// a concurrent reviewer won the race.
func (s *InMemory) UpdateStatus(ctx context.Context, id int64, from, to models.Status, reviewerID string, now time.Time) (*models.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if stored.Status != from {
		return nil, sentinel.ErrConflict
	}
	if to == models.StatusApproved {
		for _, other := range s.items {
			if other.ID != id && s.sameTuple(other, stored) && other.Status.IsLive() {
				return nil, sentinel.ErrConflict
			}
		}
	}

	now = now.UTC()
	stored.Status = to
	stored.ReviewedBy = reviewerID
	stored.ReviewedAt = &now
	stored.UpdatedAt = now
	return cloneValidation(stored), nil
}

// HasApproved reports whether an APPROVED request exists for the
// (user, organisation, actor) tuple. The assessment service uses this as its
// creation gate.
func (s *InMemory) HasApproved(ctx context.Context, userID, orgID string, actorID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.items {
		if v.UserID == userID && v.OrganisationID == orgID && v.ActorID == actorID && v.Status == models.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) sameTuple(a, b *models.Validation) bool {
	return a.UserID == b.UserID &&
		a.OrganisationID == b.OrganisationID &&
		a.OrganisationSource == b.OrganisationSource &&
		a.ActorID == b.ActorID
}

func cloneValidation(v *models.Validation) *models.Validation {
	c := *v
	if v.ReviewedAt != nil {
		t := *v.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}

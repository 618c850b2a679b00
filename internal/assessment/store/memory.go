package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cat/internal/assessment/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded assessment store for tests and local runs. Its
// per-operation critical sections mirror the Postgres store's unique index
// and compare-and-swap updates.
type InMemory struct {
	mu    sync.Mutex
	items map[string]*models.Assessment
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*models.Assessment)}
}

// Create inserts a. It fails with sentinel.ErrConflict when an assessment
// already exists for the same (user, organisation, subject, type) tuple.
func (s *InMemory) Create(ctx context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.UserID == a.UserID &&
			existing.OrganisationID == a.OrganisationID &&
			existing.SubjectID == a.SubjectID &&
			existing.TypeID == a.TypeID {
			return sentinel.ErrConflict
		}
	}
	s.items[a.ID] = cloneAssessment(a)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAssessment(a), nil
}

// List returns one page of assessments matching filter, ordered by creation
// time then ID, together with the total match count.
func (s *InMemory) List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Assessment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Assessment, 0, len(s.items))
	for _, a := range s.items {
		if filter.Matches(a) {
			matched = append(matched, cloneAssessment(a))
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

// Update replaces the document and bumps the stored version, but only while
// the record is still PRIVATE and the stored version still equals
// expectedVersion. A published record fails with sentinel.ErrInvalidState
// even when the version matches, so an update racing a publish cannot land.
// A concurrent writer who bumped the version first wins; the loser gets
// sentinel.ErrConflict.
func (s *InMemory) Update(ctx context.Context, a *models.Assessment, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPrivate {
		return sentinel.ErrInvalidState
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	stored.Document = a.Document
	stored.Version = a.Version
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

// Publish moves the assessment from PRIVATE to PUBLISHED. Publishing an
// already-published record fails with sentinel.ErrInvalidState.
func (s *InMemory) Publish(ctx context.Context, id string, now time.Time) (*models.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPrivate {
		return nil, sentinel.ErrInvalidState
	}
	stored.Status = models.StatusPublished
	stored.UpdatedAt = now.UTC()
	return cloneAssessment(stored), nil
}

// Delete removes a PRIVATE assessment. Published records are immutable
// history and fail with sentinel.ErrInvalidState.
func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPrivate {
		return sentinel.ErrInvalidState
	}
	delete(s.items, id)
	return nil
}

func cloneAssessment(a *models.Assessment) *models.Assessment {
	c := *a
	return &c
}

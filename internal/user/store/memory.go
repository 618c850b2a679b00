package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cat/internal/user/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// InMemory keeps user profiles in a mutex-guarded map. It backs unit tests
// and local development; production uses the Postgres store.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneUser(user), nil
}

// List returns profiles ordered by registration time, id as tie-break.
func (s *InMemory) List(_ context.Context, req paging.Request) ([]*models.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	page, total := paging.Slice(all, req)
	return page, total, nil
}

// SetDenyAccess flags a user in a single locked section so a concurrent read
// never observes the role without its reason.
func (s *InMemory) SetDenyAccess(_ context.Context, userID, reason string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Deny(reason, now)
	return nil
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.Roles = append([]models.Role(nil), u.Roles...)
	return &out
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cat/internal/user/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) newUser(id string) *models.User {
	user, err := models.NewUser(id, "Test User", id+"@example.org", time.Now())
	s.Require().NoError(err)
	return user
}

func (s *UserStoreSuite) TestCreateAndFind() {
	user := s.newUser("alice")
	s.Require().NoError(s.store.Create(s.ctx, user))

	found, err := s.store.FindByID(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.Email, found.Email)

	_, err = s.store.FindByID(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *UserStoreSuite) TestDuplicateRegistration() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("alice")))
	err := s.store.Create(s.ctx, s.newUser("alice"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *UserStoreSuite) TestSetDenyAccess() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("alice")))

	s.Require().NoError(s.store.SetDenyAccess(s.ctx, "alice", "abuse", time.Now()))

	found, err := s.store.FindByID(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(found.IsDenied())
	s.Equal("abuse", found.DenyReason)

	err = s.store.SetDenyAccess(s.ctx, "missing", "abuse", time.Now())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *UserStoreSuite) TestListIsOrderedAndPaged() {
	base := time.Now()
	for i, id := range []string{"carol", "alice", "bob"} {
		user := s.newUser(id)
		user.CreatedAt = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Create(s.ctx, user))
	}

	req, err := paging.NewRequest(1, 2, 20)
	s.Require().NoError(err)
	users, total, err := s.store.List(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(users, 2)
	s.Equal("carol", users[0].ID)
	s.Equal("alice", users[1].ID)
}

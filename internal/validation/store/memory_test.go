package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cat/internal/validation/models"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

type ValidationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ValidationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestValidationStoreSuite(t *testing.T) {
	suite.Run(t, new(ValidationStoreSuite))
}

func (s *ValidationStoreSuite) newValidation(userID, orgID string, actorID int64) *models.Validation {
	v, err := models.NewValidation(userID, orgID, "ror", "Test Org", "manager", "", actorID, time.Now())
	s.Require().NoError(err)
	return v
}

func (s *ValidationStoreSuite) TestCreateAssignsSequentialIDs() {
	first := s.newValidation("alice", "org-1", 1)
	second := s.newValidation("alice", "org-2", 1)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))

	s.Equal(int64(1), first.ID)
	s.Equal(int64(2), second.ID)
}

func (s *ValidationStoreSuite) TestLiveRequestConflicts() {
	s.Run("rejects second live request for the same tuple", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newValidation("alice", "org-1", 1)))

		err := s.store.Create(s.ctx, s.newValidation("alice", "org-1", 1))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows a new request after rejection", func() {
		v := s.newValidation("bob", "org-1", 1)
		s.Require().NoError(s.store.Create(s.ctx, v))
		_, err := s.store.UpdateStatus(s.ctx, v.ID, models.StatusPending, models.StatusRejected, "admin", time.Now())
		s.Require().NoError(err)

		s.Require().NoError(s.store.Create(s.ctx, s.newValidation("bob", "org-1", 1)))
	})

	s.Run("different actor does not conflict", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newValidation("carol", "org-1", 1)))
		s.Require().NoError(s.store.Create(s.ctx, s.newValidation("carol", "org-1", 2)))
	})
}

// TestConcurrentCreate verifies exactly one of many racing submissions for
// the same tuple wins.
func (s *ValidationStoreSuite) TestConcurrentCreate() {
	const goroutines = 50
	var wg sync.WaitGroup
	var created, conflicted atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(s.ctx, s.newValidation("alice", "org-1", 1))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), conflicted.Load())
}

func (s *ValidationStoreSuite) TestUpdateStatusCompareAndSwap() {
	v := s.newValidation("alice", "org-1", 1)
	s.Require().NoError(s.store.Create(s.ctx, v))

	s.Run("swaps when current status matches", func() {
		updated, err := s.store.UpdateStatus(s.ctx, v.ID, models.StatusPending, models.StatusReview, "admin", time.Now())
		s.Require().NoError(err)
		s.Equal(models.StatusReview, updated.Status)
		s.Equal("admin", updated.ReviewedBy)
		s.Require().NotNil(updated.ReviewedAt)
	})

	s.Run("conflicts when current status moved on", func() {
		_, err := s.store.UpdateStatus(s.ctx, v.ID, models.StatusPending, models.StatusApproved, "admin", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("not found for unknown id", func() {
		_, err := s.store.UpdateStatus(s.ctx, 9999, models.StatusPending, models.StatusReview, "admin", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ValidationStoreSuite) TestListFiltersAndPages() {
	for i := range 5 {
		v := s.newValidation("alice", "org-"+string(rune('a'+i)), 1)
		v.CreatedAt = v.CreatedAt.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Create(s.ctx, v))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.newValidation("bob", "org-z", 1)))

	req, err := paging.NewRequest(1, 3, 100)
	s.Require().NoError(err)

	s.Run("filters by user", func() {
		items, total, err := s.store.List(s.ctx, models.ListFilter{UserID: "alice"}, req)
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Len(items, 3)
	})

	s.Run("filters by status", func() {
		items, total, err := s.store.List(s.ctx, models.ListFilter{Status: models.StatusPending}, req)
		s.Require().NoError(err)
		s.Equal(6, total)
		s.Len(items, 3)
	})

	s.Run("second page holds the remainder", func() {
		page2, err := paging.NewRequest(2, 3, 100)
		s.Require().NoError(err)
		items, total, err := s.store.List(s.ctx, models.ListFilter{UserID: "alice"}, page2)
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Len(items, 2)
	})
}

func (s *ValidationStoreSuite) TestHasApproved() {
	v := s.newValidation("alice", "org-1", 1)
	s.Require().NoError(s.store.Create(s.ctx, v))

	ok, err := s.store.HasApproved(s.ctx, "alice", "org-1", 1)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.store.UpdateStatus(s.ctx, v.ID, models.StatusPending, models.StatusApproved, "admin", time.Now())
	s.Require().NoError(err)

	ok, err = s.store.HasApproved(s.ctx, "alice", "org-1", 1)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.HasApproved(s.ctx, "alice", "org-1", 2)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ValidationStoreSuite) TestMutationsDoNotLeakThroughReturnedCopies() {
	v := s.newValidation("alice", "org-1", 1)
	s.Require().NoError(s.store.Create(s.ctx, v))

	found, err := s.store.FindByID(s.ctx, v.ID)
	s.Require().NoError(err)
	found.OrganisationName = "mutated"

	again, err := s.store.FindByID(s.ctx, v.ID)
	s.Require().NoError(err)
	s.Equal("Test Org", again.OrganisationName)
}

package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cat/internal/policy"
	"cat/internal/validation/models"
	"cat/internal/validation/store"
	dErrors "cat/pkg/domain-errors"
)

var (
	alice = policy.Caller{ID: "alice"}
	bob   = policy.Caller{ID: "bob"}
	admin = policy.Caller{ID: "root", Admin: true}
)

type ValidationServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func (s *ValidationServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.ctx = context.Background()
}

func TestValidationServiceSuite(t *testing.T) {
	suite.Run(t, new(ValidationServiceSuite))
}

func createReq() models.CreateRequest {
	return models.CreateRequest{
		OrganisationID:     "org-1",
		OrganisationSource: "ror",
		OrganisationName:   "Example University",
		OrganisationRole:   "manager",
		ActorID:            4,
	}
}

func (s *ValidationServiceSuite) TestCreate() {
	s.Run("starts in PENDING", func() {
		v, err := s.service.Create(s.ctx, alice, createReq())
		s.Require().NoError(err)
		s.Equal(models.StatusPending, v.Status)
		s.Equal("alice", v.UserID)
	})

	s.Run("duplicate live request conflicts", func() {
		_, err := s.service.Create(s.ctx, alice, createReq())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("same tuple for another user is fine", func() {
		_, err := s.service.Create(s.ctx, bob, createReq())
		s.Require().NoError(err)
	})

	s.Run("missing fields rejected as validation errors", func() {
		req := createReq()
		req.OrganisationName = ""
		_, err := s.service.Create(s.ctx, alice, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("denied caller is rejected", func() {
		denied := policy.Caller{ID: "mallory", Denied: true}
		_, err := s.service.Create(s.ctx, denied, createReq())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ValidationServiceSuite) TestGetVisibility() {
	v, err := s.service.Create(s.ctx, alice, createReq())
	s.Require().NoError(err)

	s.Run("owner sees own request", func() {
		got, err := s.service.Get(s.ctx, alice, v.ID)
		s.Require().NoError(err)
		s.Equal(v.ID, got.ID)
	})

	s.Run("admin sees any request", func() {
		_, err := s.service.Get(s.ctx, admin, v.ID)
		s.Require().NoError(err)
	})

	s.Run("other users are forbidden", func() {
		_, err := s.service.Get(s.ctx, bob, v.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Get(s.ctx, admin, 9999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ValidationServiceSuite) TestListScopes() {
	_, err := s.service.Create(s.ctx, alice, createReq())
	s.Require().NoError(err)
	req := createReq()
	req.OrganisationID = "org-2"
	_, err = s.service.Create(s.ctx, bob, req)
	s.Require().NoError(err)

	s.Run("own listing excludes others", func() {
		page, err := s.service.List(s.ctx, alice, ListQuery{Page: 1, Size: 10})
		s.Require().NoError(err)
		s.Equal(1, page.Total)
		s.Equal("alice", page.Items[0].UserID)
	})

	s.Run("admin listing requires All", func() {
		page, err := s.service.List(s.ctx, admin, ListQuery{Page: 1, Size: 10, All: true})
		s.Require().NoError(err)
		s.Equal(2, page.Total)
	})

	s.Run("non-admin cannot list all", func() {
		_, err := s.service.List(s.ctx, alice, ListQuery{Page: 1, Size: 10, All: true})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("status filter must parse", func() {
		_, err := s.service.List(s.ctx, alice, ListQuery{Page: 1, Size: 10, Status: "bogus"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("page size is capped", func() {
		_, err := s.service.List(s.ctx, alice, ListQuery{Page: 1, Size: MaxPageSize + 1})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("page numbers are one-based", func() {
		_, err := s.service.List(s.ctx, alice, ListQuery{Page: 0, Size: 10})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ValidationServiceSuite) TestStatusLifecycle() {
	v, err := s.service.Create(s.ctx, alice, createReq())
	s.Require().NoError(err)

	s.Run("only admins review", func() {
		_, err := s.service.UpdateStatus(s.ctx, alice, v.ID, models.StatusReview)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("pending to review", func() {
		got, err := s.service.UpdateStatus(s.ctx, admin, v.ID, models.StatusReview)
		s.Require().NoError(err)
		s.Equal(models.StatusReview, got.Status)
		s.Equal("root", got.ReviewedBy)
	})

	s.Run("same-status transition is invalid", func() {
		_, err := s.service.UpdateStatus(s.ctx, admin, v.ID, models.StatusReview)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("review to approved", func() {
		got, err := s.service.UpdateStatus(s.ctx, admin, v.ID, models.StatusApproved)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, got.Status)
	})

	s.Run("terminal states are frozen", func() {
		_, err := s.service.UpdateStatus(s.ctx, admin, v.ID, models.StatusRejected)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ValidationServiceSuite) TestUpdateDescriptiveFields() {
	v, err := s.service.Create(s.ctx, alice, createReq())
	s.Require().NoError(err)

	s.Run("admin may rename", func() {
		name := "Renamed University"
		got, err := s.service.Update(s.ctx, admin, v.ID, models.UpdateRequest{OrganisationName: &name})
		s.Require().NoError(err)
		s.Equal(name, got.OrganisationName)
	})

	s.Run("non-admin is forbidden", func() {
		name := "Nope"
		_, err := s.service.Update(s.ctx, alice, v.ID, models.UpdateRequest{OrganisationName: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("terminal records reject updates by default", func() {
		_, err := s.service.UpdateStatus(s.ctx, admin, v.ID, models.StatusRejected)
		s.Require().NoError(err)

		name := "Too Late"
		_, err = s.service.Update(s.ctx, admin, v.ID, models.UpdateRequest{OrganisationName: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ValidationServiceSuite) TestTerminalUpdatesCanBeAllowed() {
	relaxed := New(s.store, WithTerminalUpdates(true), WithClock(time.Now))
	v, err := relaxed.Create(s.ctx, alice, createReq())
	s.Require().NoError(err)
	_, err = relaxed.UpdateStatus(s.ctx, admin, v.ID, models.StatusRejected)
	s.Require().NoError(err)

	name := "Corrected Name"
	got, err := relaxed.Update(s.ctx, admin, v.ID, models.UpdateRequest{OrganisationName: &name})
	s.Require().NoError(err)
	s.Equal(name, got.OrganisationName)
}

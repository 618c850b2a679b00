package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cat/internal/assessment/models"
	"cat/internal/assessment/service/mocks"
	"cat/internal/assessment/store"
	"cat/internal/policy"
	dErrors "cat/pkg/domain-errors"
)

var (
	alice = policy.Caller{ID: "alice"}
	bob   = policy.Caller{ID: "bob"}
	admin = policy.Caller{ID: "root", Admin: true}
)

type AssessmentServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	gate    *mocks.MockValidationGate
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func (s *AssessmentServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gate = mocks.NewMockValidationGate(s.ctrl)
	s.store = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, s.gate, WithLogger(logger))
	s.ctx = context.Background()
}

func (s *AssessmentServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAssessmentServiceSuite(t *testing.T) {
	suite.Run(t, new(AssessmentServiceSuite))
}

func createReq(subjectID string) models.CreateRequest {
	return models.CreateRequest{
		TypeID:   1,
		TypeName: "fair",
		Document: models.Document{
			Name:         "FAIR assessment",
			Actor:        models.Actor{ID: 4, Name: "PID Owner"},
			Organisation: models.Organisation{ID: "org-1", Name: "Example"},
			Subject:      models.Subject{ID: subjectID, Name: "dataset-1", Type: "dataset"},
		},
	}
}

func (s *AssessmentServiceSuite) allowGate() {
	s.gate.EXPECT().
		HasApproved(gomock.Any(), "alice", "org-1", int64(4)).
		Return(true, nil).
		AnyTimes()
}

func (s *AssessmentServiceSuite) TestCreateRequiresApprovedValidation() {
	s.Run("approved validation admits creation", func() {
		s.gate.EXPECT().
			HasApproved(gomock.Any(), "alice", "org-1", int64(4)).
			Return(true, nil)

		a, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
		s.Require().NoError(err)
		s.Equal(models.StatusPrivate, a.Status)
		s.Equal(1, a.Version)
	})

	s.Run("missing approval is forbidden", func() {
		s.gate.EXPECT().
			HasApproved(gomock.Any(), "bob", "org-1", int64(4)).
			Return(false, nil)

		_, err := s.service.Create(s.ctx, bob, createReq("subj-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("duplicate tuple conflicts", func() {
		s.gate.EXPECT().
			HasApproved(gomock.Any(), "alice", "org-1", int64(4)).
			Return(true, nil)

		_, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid document rejected before the gate", func() {
		req := createReq("subj-2")
		req.Document.Name = ""
		_, err := s.service.Create(s.ctx, alice, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AssessmentServiceSuite) TestOwnerOnlyVisibility() {
	s.allowGate()
	a, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
	s.Require().NoError(err)

	s.Run("owner reads", func() {
		_, err := s.service.Get(s.ctx, alice, a.ID)
		s.Require().NoError(err)
	})

	s.Run("other users are forbidden", func() {
		_, err := s.service.Get(s.ctx, bob, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("administrators are not exempt", func() {
		_, err := s.service.Get(s.ctx, admin, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *AssessmentServiceSuite) TestUpdateVersioning() {
	s.allowGate()
	a, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
	s.Require().NoError(err)

	doc := a.Document
	doc.Name = "revised"

	s.Run("matching version bumps", func() {
		got, err := s.service.Update(s.ctx, alice, a.ID, models.UpdateRequest{Version: 1, Document: doc})
		s.Require().NoError(err)
		s.Equal(2, got.Version)
		s.Equal("revised", got.Document.Name)
	})

	s.Run("stale version conflicts", func() {
		_, err := s.service.Update(s.ctx, alice, a.ID, models.UpdateRequest{Version: 1, Document: doc})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("subject cannot change", func() {
		moved := doc
		moved.Subject.ID = "subj-other"
		_, err := s.service.Update(s.ctx, alice, a.ID, models.UpdateRequest{Version: 2, Document: moved})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non-owner cannot edit", func() {
		_, err := s.service.Update(s.ctx, bob, a.ID, models.UpdateRequest{Version: 2, Document: doc})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("published document is frozen", func() {
		_, err := s.service.Publish(s.ctx, alice, a.ID)
		s.Require().NoError(err)

		doc.Name = "rewritten after publication"
		_, err = s.service.Update(s.ctx, alice, a.ID, models.UpdateRequest{Version: 2, Document: doc})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		got, err := s.service.Get(s.ctx, alice, a.ID)
		s.Require().NoError(err)
		s.Equal("revised", got.Document.Name)
		s.Equal(2, got.Version)
	})
}

func (s *AssessmentServiceSuite) TestPublishLifecycle() {
	s.allowGate()
	a, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
	s.Require().NoError(err)

	s.Run("owner publishes once", func() {
		got, err := s.service.Publish(s.ctx, alice, a.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPublished, got.Status)
	})

	s.Run("re-publish is an invalid transition", func() {
		_, err := s.service.Publish(s.ctx, alice, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *AssessmentServiceSuite) TestAdminDelete() {
	s.allowGate()
	private, err := s.service.Create(s.ctx, alice, createReq("subj-1"))
	s.Require().NoError(err)
	published, err := s.service.Create(s.ctx, alice, createReq("subj-2"))
	s.Require().NoError(err)
	_, err = s.service.Publish(s.ctx, alice, published.ID)
	s.Require().NoError(err)

	s.Run("owner cannot delete", func() {
		err := s.service.DeletePrivate(s.ctx, alice, private.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin deletes private", func() {
		s.Require().NoError(s.service.DeletePrivate(s.ctx, admin, private.ID))
	})

	s.Run("published cannot be deleted", func() {
		err := s.service.DeletePrivate(s.ctx, admin, published.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cat/internal/assessment/models"
	"cat/internal/assessment/store"
	userModels "cat/internal/user/models"
	userStore "cat/internal/user/store"
	"cat/pkg/platform/sentinel"
	"cat/pkg/testutil/containers"
)

type PostgresAssessmentSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	users    *userStore.Postgres
}

func TestPostgresAssessmentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAssessmentSuite))
}

func (s *PostgresAssessmentSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.users = userStore.NewPostgres(s.postgres.DB)
}

func (s *PostgresAssessmentSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "assessments", "users"))

	user, err := userModels.NewUser("alice", "Alice", "alice@example.org", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(ctx, user))
}

func (s *PostgresAssessmentSuite) newAssessment(subjectID string) *models.Assessment {
	doc := models.Document{
		Name:         "FAIR assessment",
		Actor:        models.Actor{ID: 4, Name: "PID Owner"},
		Organisation: models.Organisation{ID: "org-1", Name: "Example"},
		Subject:      models.Subject{ID: subjectID, Name: "dataset-1", Type: "dataset"},
	}
	a, err := models.NewAssessment("alice", 1, "fair", doc, time.Now())
	s.Require().NoError(err)
	return a
}

// TestVersionCompareAndSwap verifies the version clause in the UPDATE so a
// stale writer loses against one that already landed.
func (s *PostgresAssessmentSuite) TestVersionCompareAndSwap() {
	ctx := context.Background()
	a := s.newAssessment("subj-1")
	s.Require().NoError(s.store.Create(ctx, a))

	expected := a.Version
	doc := a.Document
	doc.Name = "revised"
	s.Require().NoError(a.ApplyDocument(doc, time.Now()))
	s.Require().NoError(s.store.Update(ctx, a, expected))

	err := s.store.Update(ctx, a, expected)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

// TestUpdateRejectsPublished verifies the status clause in the UPDATE keeps
// a published document frozen even when the caller presents the current
// version, which is what an update racing a publish looks like.
func (s *PostgresAssessmentSuite) TestUpdateRejectsPublished() {
	ctx := context.Background()
	a := s.newAssessment("subj-1")
	s.Require().NoError(s.store.Create(ctx, a))

	published, err := s.store.Publish(ctx, a.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(models.StatusPublished, published.Status)

	expected := a.Version
	doc := a.Document
	doc.Name = "rewritten"
	s.Require().NoError(a.ApplyDocument(doc, time.Now()))

	err = s.store.Update(ctx, a, expected)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(1, found.Version)
	s.Equal("FAIR assessment", found.Document.Name)
}

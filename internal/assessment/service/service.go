package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ValidationGate,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cat/internal/assessment/models"
	"cat/internal/audit"
	"cat/internal/platform/metrics"
	"cat/internal/platform/middleware"
	"cat/internal/policy"
	dErrors "cat/pkg/domain-errors"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// MaxPageSize caps assessment listings.
const MaxPageSize = 100

// Store describes persistence operations required by the assessment
// subsystem. Create must be atomic with respect to the duplicate tuple;
// Update and Publish are compare-and-swap.
type Store interface {
	Create(ctx context.Context, a *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Assessment, int, error)
	Update(ctx context.Context, a *models.Assessment, expectedVersion int) error
	Publish(ctx context.Context, id string, now time.Time) (*models.Assessment, error)
	Delete(ctx context.Context, id string) error
}

// ValidationGate answers whether the caller holds an approved promotion
// request for an organisation and actor. Creation is refused without one.
type ValidationGate interface {
	HasApproved(ctx context.Context, userID, orgID string, actorID int64) (bool, error)
}

// AuditPublisher records lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the assessment lifecycle: gated creation, owner-scoped reads
// and edits, one-way publication, and administrative deletion of private
// records.
type Service struct {
	store          Store
	gate           ValidationGate
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, gate ValidationGate, opts ...Option) *Service {
	s := &Service{store: store, gate: gate, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds a PRIVATE assessment for the caller. The caller must hold an
// APPROVED promotion request for the document's organisation and actor, and
// may not already have an assessment for the same subject and type.
func (s *Service) Create(ctx context.Context, caller policy.Caller, req models.CreateRequest) (*models.Assessment, error) {
	if err := policy.AuthorizeIdentified(caller); err != nil {
		return nil, err
	}

	a, err := models.NewAssessment(caller.ID, req.TypeID, req.TypeName, req.Document, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	approved, err := s.gate.HasApproved(ctx, caller.ID, a.OrganisationID, a.ActorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check validation approval")
	}
	if !approved {
		return nil, dErrors.New(dErrors.CodeForbidden,
			"an approved promotion request is required before creating an assessment for this organisation")
	}

	if err := s.store.Create(ctx, a); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict,
				"an assessment already exists for this organisation, subject and type")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assessment")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		Action:     audit.ActionAssessmentCreated,
		Resource:   "assessment",
		ResourceID: a.ID,
	})
	if s.metrics != nil {
		s.metrics.AssessmentsCreated.Inc()
	}
	return a, nil
}

// Get returns one assessment. Only the owner sees it; administrators are not
// exempt, the body is the owner's private working copy.
func (s *Service) Get(ctx context.Context, caller policy.Caller, id string) (*models.Assessment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeOwnerOnly(caller, policy.Resource{OwnerID: a.UserID}); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns a page of the caller's own assessments, optionally narrowed
// by subject.
func (s *Service) List(ctx context.Context, caller policy.Caller, page, size int, subjectID string) (paging.Page[*models.Assessment], error) {
	var empty paging.Page[*models.Assessment]
	if err := policy.AuthorizeIdentified(caller); err != nil {
		return empty, err
	}
	req, err := paging.NewRequest(page, size, MaxPageSize)
	if err != nil {
		return empty, err
	}

	filter := models.ListFilter{UserID: caller.ID, SubjectID: subjectID}
	items, total, err := s.store.List(ctx, filter, req)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return empty, dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		}
		return empty, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assessments")
	}
	return paging.NewPage(items, total, req), nil
}

// Update replaces the document and bumps the version. Owner only, and only
// while the record is still PRIVATE; published documents are frozen. The
// request must name the version it was based on; stale writers lose with a
// conflict.
func (s *Service) Update(ctx context.Context, caller policy.Caller, id string, req models.UpdateRequest) (*models.Assessment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeOwnerOnly(caller, policy.Resource{OwnerID: a.UserID}); err != nil {
		return nil, err
	}
	if a.IsPublished() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "published assessments are immutable")
	}
	if req.Version != a.Version {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"assessment was modified concurrently: expected version %d, found %d", req.Version, a.Version)
	}
	expected := a.Version
	if err := a.ApplyDocument(req.Document, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, a, expected); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "assessment was modified concurrently")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "published assessments are immutable")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update assessment")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		Action:     audit.ActionAssessmentUpdated,
		Resource:   "assessment",
		ResourceID: a.ID,
	})
	return a, nil
}

// Publish makes the assessment publicly visible. Owner only and one-way.
func (s *Service) Publish(ctx context.Context, caller policy.Caller, id string) (*models.Assessment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeOwnerOnly(caller, policy.Resource{OwnerID: a.UserID}); err != nil {
		return nil, err
	}

	published, err := s.store.Publish(ctx, id, s.now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "assessment is already published")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish assessment")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		Action:     audit.ActionAssessmentPublished,
		Resource:   "assessment",
		ResourceID: published.ID,
	})
	if s.metrics != nil {
		s.metrics.AssessmentsPublished.Inc()
	}
	return published, nil
}

// DeletePrivate removes a PRIVATE assessment; administrators only. Published
// assessments are permanent record and cannot be deleted.
func (s *Service) DeletePrivate(ctx context.Context, caller policy.Caller, id string) error {
	if err := policy.AuthorizeAdmin(caller); err != nil {
		return err
	}
	a, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "assessment not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeInvalidState, "published assessments cannot be deleted")
		case errors.Is(err, sentinel.ErrUnavailable):
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete assessment")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		SubjectID:  a.UserID,
		Action:     audit.ActionAssessmentDeletedByAdmin,
		Resource:   "assessment",
		ResourceID: id,
	})
	if s.metrics != nil {
		s.metrics.AssessmentsDeleted.Inc()
	}
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*models.Assessment, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "assessment store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
		}
	}
	return a, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	event.RequestID = middleware.GetRequestID(ctx)
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"actor_id", event.ActorID,
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
			"request_id", event.RequestID,
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "error", err, "action", event.Action)
	}
}

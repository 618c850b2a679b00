package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cat/internal/audit"
	"cat/internal/platform/metrics"
	"cat/internal/platform/middleware"
	"cat/internal/policy"
	"cat/internal/validation/models"
	dErrors "cat/pkg/domain-errors"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// MaxPageSize caps validation listings.
const MaxPageSize = 100

// Store describes persistence operations required by the validation
// subsystem. Create and UpdateStatus must be atomic with respect to the
// one-live-request invariant.
type Store interface {
	Create(ctx context.Context, v *models.Validation) error
	FindByID(ctx context.Context, id int64) (*models.Validation, error)
	List(ctx context.Context, filter models.ListFilter, req paging.Request) ([]*models.Validation, int, error)
	Update(ctx context.Context, v *models.Validation) error
	UpdateStatus(ctx context.Context, id int64, from, to models.Status, reviewerID string, now time.Time) (*models.Validation, error)
}

// AuditPublisher records lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the promotion-request lifecycle: submission, review listing,
// administrative amendment, and status transitions.
type Service struct {
	store                Store
	logger               *slog.Logger
	auditPublisher       AuditPublisher
	metrics              *metrics.Metrics
	allowTerminalUpdates bool
	now                  func() time.Time
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

// WithTerminalUpdates permits descriptive-field edits on APPROVED and
// REJECTED requests. Off by default; terminal records are a review trail.
func WithTerminalUpdates(allow bool) Option {
	return func(s *Service) { s.allowTerminalUpdates = allow }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create submits a new promotion request on behalf of the caller. The
// request starts in PENDING; a conflicting live request for the same
// (organisation, source, actor) tuple rejects the submission.
func (s *Service) Create(ctx context.Context, caller policy.Caller, req models.CreateRequest) (*models.Validation, error) {
	if err := policy.AuthorizeIdentified(caller); err != nil {
		return nil, err
	}

	v, err := models.NewValidation(caller.ID, req.OrganisationID, req.OrganisationSource,
		req.OrganisationName, req.OrganisationRole, req.OrganisationWebsite, req.ActorID, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Create(ctx, v); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			if s.metrics != nil {
				s.metrics.ValidationConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict,
				"a live promotion request already exists for this organisation and role")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create validation")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		Action:     audit.ActionValidationCreated,
		Resource:   "validation",
		ResourceID: formatID(v.ID),
	})
	if s.metrics != nil {
		s.metrics.ValidationsCreated.Inc()
	}
	return v, nil
}

// ListQuery narrows a listing. Status is optional; All requires admin.
type ListQuery struct {
	Page   int
	Size   int
	Status string
	All    bool
}

// List returns a page of validations. Regular callers see only their own
// requests; administrators may list everything.
func (s *Service) List(ctx context.Context, caller policy.Caller, q ListQuery) (paging.Page[*models.Validation], error) {
	var empty paging.Page[*models.Validation]

	filter := models.ListFilter{UserID: caller.ID}
	if q.All {
		if err := policy.AuthorizeAdmin(caller); err != nil {
			return empty, err
		}
		filter.UserID = ""
	} else if err := policy.AuthorizeIdentified(caller); err != nil {
		return empty, err
	}

	if q.Status != "" {
		status, err := models.ParseStatus(q.Status)
		if err != nil {
			return empty, err
		}
		filter.Status = status
	}

	req, err := paging.NewRequest(q.Page, q.Size, MaxPageSize)
	if err != nil {
		return empty, err
	}
	items, total, err := s.store.List(ctx, filter, req)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return empty, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		}
		return empty, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list validations")
	}
	return paging.NewPage(items, total, req), nil
}

// Get returns one validation. Visible to its submitter and administrators.
func (s *Service) Get(ctx context.Context, caller policy.Caller, id int64) (*models.Validation, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeOwner(caller, policy.Resource{OwnerID: v.UserID}); err != nil {
		return nil, err
	}
	return v, nil
}

// Update amends descriptive fields of a request; administrators only. Edits
// on terminal records are rejected unless the service was configured to
// allow them.
func (s *Service) Update(ctx context.Context, caller policy.Caller, id int64, req models.UpdateRequest) (*models.Validation, error) {
	if err := policy.AuthorizeAdmin(caller); err != nil {
		return nil, err
	}
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status.IsTerminal() && !s.allowTerminalUpdates {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"validation in status %s can no longer be updated", v.Status)
	}
	if err := v.ApplyUpdate(req, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, v); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "validation not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update validation")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		SubjectID:  v.UserID,
		Action:     audit.ActionValidationUpdated,
		Resource:   "validation",
		ResourceID: formatID(v.ID),
	})
	return v, nil
}

// UpdateStatus moves a request to target; administrators only. Illegal edges,
// including every move out of a terminal state and same-status moves, fail
// with an invalid-transition error. The swap itself is a compare-and-swap in
// the store, so a concurrent reviewer loses with a conflict instead of
// silently double-applying.
func (s *Service) UpdateStatus(ctx context.Context, caller policy.Caller, id int64, target models.Status) (*models.Validation, error) {
	if err := policy.AuthorizeAdmin(caller); err != nil {
		return nil, err
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition validation from %s to %s", current.Status, target)
	}

	updated, err := s.store.UpdateStatus(ctx, id, current.Status, target, caller.ID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "validation not found")
		case errors.Is(err, sentinel.ErrConflict):
			if s.metrics != nil {
				s.metrics.ValidationConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "validation status changed concurrently")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update validation status")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		SubjectID:  updated.UserID,
		Action:     audit.ActionValidationStatusChanged,
		Resource:   "validation",
		ResourceID: formatID(updated.ID),
		Reason:     fmt.Sprintf("%s -> %s", current.Status, target),
	})
	if s.metrics != nil {
		s.metrics.ValidationsReviewed.WithLabelValues(string(target)).Inc()
	}
	return updated, nil
}

func (s *Service) find(ctx context.Context, id int64) (*models.Validation, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "validation not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "validation store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load validation")
		}
	}
	return v, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
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

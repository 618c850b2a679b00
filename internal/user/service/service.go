package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cat/internal/audit"
	"cat/internal/platform/metrics"
	"cat/internal/platform/middleware"
	"cat/internal/policy"
	"cat/internal/user/cache"
	"cat/internal/user/models"
	dErrors "cat/pkg/domain-errors"
	"cat/pkg/paging"
	"cat/pkg/platform/sentinel"
)

// MaxPageSize caps user listings.
const MaxPageSize = 20

// Store describes persistence operations required by the user subsystem.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, req paging.Request) ([]*models.User, int, error)
	SetDenyAccess(ctx context.Context, userID, reason string, now time.Time) error
}

// AuditPublisher records administrative and lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns user registration, identity resolution, and the deny-access
// moderation path.
type Service struct {
	store          Store
	profiles       *cache.ProfileCache
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithProfileCache(profiles *cache.ProfileCache) Option {
	return func(s *Service) { s.profiles = profiles }
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the profile for an externally-authenticated identity.
// Conflict if the identity already registered.
func (s *Service) Register(ctx context.Context, userID, name, email string) (*models.User, error) {
	user, err := models.NewUser(userID, name, email, s.now())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "user is already registered")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
		}
	}

	s.logAudit(ctx, audit.Event{
		ActorID:    user.ID,
		Action:     audit.ActionUserRegistered,
		Resource:   "user",
		ResourceID: user.ID,
	})
	return user, nil
}

// Resolve loads the caller's profile and turns it into a policy caller. It is
// the single identity-resolution choke point used by the registration guard.
func (s *Service) Resolve(ctx context.Context, userID string) (policy.Caller, *models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return policy.Caller{}, nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	if cached := s.profiles.Get(ctx, userID); cached != nil {
		return callerFor(cached), cached, nil
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return policy.Caller{}, nil, dErrors.New(dErrors.CodeForbidden, "user is not registered")
		case errors.Is(err, sentinel.ErrUnavailable):
			return policy.Caller{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
		default:
			return policy.Caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve user")
		}
	}

	s.profiles.Set(ctx, user)
	return callerFor(user), user, nil
}

// Profile returns the caller's own registered profile.
func (s *Service) Profile(ctx context.Context, caller policy.Caller) (*models.User, error) {
	if err := policy.AuthorizeIdentified(caller); err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, caller.ID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
	}
	return user, nil
}

// List returns a page of registered users; administrators only.
func (s *Service) List(ctx context.Context, caller policy.Caller, page, size int) (paging.Page[*models.User], error) {
	var empty paging.Page[*models.User]
	if err := policy.AuthorizeAdmin(caller); err != nil {
		return empty, err
	}
	req, err := paging.NewRequest(page, size, MaxPageSize)
	if err != nil {
		return empty, err
	}
	users, total, err := s.store.List(ctx, req)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return empty, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
		}
		return empty, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return paging.NewPage(users, total, req), nil
}

// DenyAccess flags a user so every subsequent call is rejected at the
// authorization boundary. Administrators only; the reason is mandatory and
// recorded in the audit trail.
func (s *Service) DenyAccess(ctx context.Context, caller policy.Caller, userID, reason string) error {
	if err := policy.AuthorizeAdmin(caller); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	reason = strings.TrimSpace(reason)
	if userID == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a reason is required to deny access")
	}

	if err := s.store.SetDenyAccess(ctx, userID, reason, s.now()); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deny access")
		}
	}

	s.profiles.Invalidate(ctx, userID)
	s.logAudit(ctx, audit.Event{
		ActorID:    caller.ID,
		SubjectID:  userID,
		Action:     audit.ActionUserDenied,
		Resource:   "user",
		ResourceID: userID,
		Reason:     reason,
	})
	if s.metrics != nil {
		s.metrics.UsersDenied.Inc()
	}
	return nil
}

func callerFor(user *models.User) policy.Caller {
	return policy.Caller{
		ID:     user.ID,
		Admin:  user.IsAdmin(),
		Denied: user.IsDenied(),
	}
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

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cat/internal/platform/middleware"
	"cat/internal/policy"
	"cat/internal/user/models"
	"cat/pkg/paging"
	"cat/pkg/platform/httputil"
)

// Service defines the user operations the handler needs.
type Service interface {
	Register(ctx context.Context, userID, name, email string) (*models.User, error)
	Profile(ctx context.Context, caller policy.Caller) (*models.User, error)
	List(ctx context.Context, caller policy.Caller, page, size int) (paging.Page[*models.User], error)
	DenyAccess(ctx context.Context, caller policy.Caller, userID, reason string) error
}

// Handler wires user endpoints to the user service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the endpoints reachable with only an authenticated
// token, before the registration guard.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/users/register", h.HandleRegister)
}

// Register mounts the endpoints requiring a registered caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/profile", h.HandleProfile)
}

// RegisterAdmin mounts the moderation endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.HandleList)
	r.Put("/users/deny-access", h.HandleDenyAccess)
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleRegister handles POST /v1/users/register. The identity comes from
// the verified token, never from the body.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, userID, req.Name, req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// HandleProfile handles GET /v1/users/profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	user, err := h.service.Profile(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleList handles GET /v1/admin/users.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	page, err := h.service.List(ctx, caller, queryInt(r, "page", 1), queryInt(r, "size", 10))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

type denyAccessRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// HandleDenyAccess handles PUT /v1/admin/users/deny-access.
func (h *Handler) HandleDenyAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[denyAccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.DenyAccess(ctx, caller, req.UserID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user access denied",
		"request_id", requestID,
		"admin_id", caller.ID,
		"user_id", req.UserID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cat/internal/assessment/models"
	"cat/internal/platform/middleware"
	"cat/internal/policy"
	dErrors "cat/pkg/domain-errors"
	"cat/pkg/paging"
	"cat/pkg/platform/httputil"
)

// Service defines the assessment operations the handler needs.
type Service interface {
	Create(ctx context.Context, caller policy.Caller, req models.CreateRequest) (*models.Assessment, error)
	Get(ctx context.Context, caller policy.Caller, id string) (*models.Assessment, error)
	List(ctx context.Context, caller policy.Caller, page, size int, subjectID string) (paging.Page[*models.Assessment], error)
	Update(ctx context.Context, caller policy.Caller, id string, req models.UpdateRequest) (*models.Assessment, error)
	Publish(ctx context.Context, caller policy.Caller, id string) (*models.Assessment, error)
	DeletePrivate(ctx context.Context, caller policy.Caller, id string) error
}

// Handler wires assessment endpoints to the assessment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the owner-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assessments", h.HandleCreate)
	r.Get("/assessments", h.HandleList)
	r.Get("/assessments/{id}", h.HandleGet)
	r.Put("/assessments/{id}", h.HandleUpdate)
	r.Put("/assessments/{id}/publish", h.HandlePublish)
}

// RegisterAdmin mounts the moderation endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/assessments/{id}", h.HandleDelete)
}

// HandleCreate handles POST /v1/assessments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Create(ctx, caller, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assessment created",
		"request_id", requestID,
		"user_id", caller.ID,
		"assessment_id", a.ID,
	)
	w.Header().Set("Location", r.URL.Path+"/"+a.ID)
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// HandleList handles GET /v1/assessments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	page, err := h.service.List(ctx, caller,
		queryInt(r, "page", 1),
		queryInt(r, "size", 10),
		r.URL.Query().Get("subject_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleGet handles GET /v1/assessments/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(ctx, caller, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleUpdate handles PUT /v1/assessments/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Update(ctx, caller, id, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandlePublish handles PUT /v1/assessments/{id}/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Publish(ctx, caller, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assessment published",
		"request_id", requestID,
		"user_id", caller.ID,
		"assessment_id", a.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleDelete handles DELETE /v1/admin/assessments/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePrivate(ctx, caller, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assessment deleted",
		"request_id", requestID,
		"admin_id", caller.ID,
		"assessment_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "assessment id must be a valid UUID"))
		return "", false
	}
	return id, true
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

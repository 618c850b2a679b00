package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cat/internal/platform/middleware"
	"cat/internal/policy"
	"cat/internal/validation/models"
	vService "cat/internal/validation/service"
	dErrors "cat/pkg/domain-errors"
	"cat/pkg/paging"
	"cat/pkg/platform/httputil"
)

// Service defines the validation operations the handler needs.
type Service interface {
	Create(ctx context.Context, caller policy.Caller, req models.CreateRequest) (*models.Validation, error)
	List(ctx context.Context, caller policy.Caller, q vService.ListQuery) (paging.Page[*models.Validation], error)
	Get(ctx context.Context, caller policy.Caller, id int64) (*models.Validation, error)
	Update(ctx context.Context, caller policy.Caller, id int64, req models.UpdateRequest) (*models.Validation, error)
	UpdateStatus(ctx context.Context, caller policy.Caller, id int64, target models.Status) (*models.Validation, error)
}

// Handler wires validation endpoints to the validation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the submitter-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/validations", h.HandleCreate)
	r.Get("/validations", h.HandleList)
	r.Get("/validations/{id}", h.HandleGet)
}

// RegisterAdmin mounts the review endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/validations", h.HandleAdminList)
	r.Get("/validations/{id}", h.HandleGet)
	r.Put("/validations/{id}", h.HandleUpdate)
	r.Put("/validations/{id}/update-status", h.HandleUpdateStatus)
}

// HandleCreate handles POST /v1/validations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Create(ctx, caller, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "validation created",
		"request_id", requestID,
		"user_id", caller.ID,
		"validation_id", v.ID,
	)
	w.Header().Set("Location", r.URL.Path+"/"+strconv.FormatInt(v.ID, 10))
	httputil.WriteJSON(w, http.StatusCreated, v)
}

// HandleList handles GET /v1/validations: the caller's own requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// HandleAdminList handles GET /v1/admin/validations: every request.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, all bool) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	q := vService.ListQuery{
		Page:   queryInt(r, "page", 1),
		Size:   queryInt(r, "size", vService.MaxPageSize),
		Status: r.URL.Query().Get("status"),
		All:    all,
	}
	page, err := h.service.List(ctx, caller, q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleGet handles GET /v1/validations/{id} and its admin counterpart.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(ctx, caller, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleUpdate handles PUT /v1/admin/validations/{id}.
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

	v, err := h.service.Update(ctx, caller, id, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleUpdateStatus handles PUT /v1/admin/validations/{id}/update-status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)
	requestID := middleware.GetRequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.StatusUpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.UpdateStatus(ctx, caller, id, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "validation status updated",
		"request_id", requestID,
		"admin_id", caller.ID,
		"validation_id", v.ID,
		"status", v.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, v)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "validation id must be a positive integer"))
		return 0, false
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

package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assessmentHandler "cat/internal/assessment/handler"
	assessmentService "cat/internal/assessment/service"
	assessmentStore "cat/internal/assessment/store"
	"cat/internal/jwttoken"
	userHandler "cat/internal/user/handler"
	userModels "cat/internal/user/models"
	userService "cat/internal/user/service"
	userStore "cat/internal/user/store"
	validationHandler "cat/internal/validation/handler"
	validationService "cat/internal/validation/service"
	validationStore "cat/internal/validation/store"
)

type env struct {
	router http.Handler
	tokens *jwttoken.Service
	users  *userStore.InMemory
}

// newEnv stands up the full route tree on in-memory stores.
func newEnv(t *testing.T) *env {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewService("test-signing-key", "cat-service", "cat-api")

	users := userStore.NewInMemory()
	validations := validationStore.NewInMemory()
	assessments := assessmentStore.NewInMemory()

	usersSvc := userService.New(users, userService.WithLogger(log))
	validationsSvc := validationService.New(validations, validationService.WithLogger(log))
	assessmentsSvc := assessmentService.New(assessments, validations, assessmentService.WithLogger(log))

	router := NewRouter(Deps{
		Logger:      log,
		TokenCheck:  tokens,
		Resolver:    usersSvc,
		Users:       userHandler.New(usersSvc, log),
		Validations: validationHandler.New(validationsSvc, log),
		Assessments: assessmentHandler.New(assessmentsSvc, log),
	})
	return &env{router: router, tokens: tokens, users: users}
}

func (e *env) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (e *env) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) seedAdmin(t *testing.T, id string) {
	t.Helper()
	admin, err := userModels.NewUser(id, "Admin", id+"@example.org", time.Now())
	if err != nil {
		t.Fatalf("build admin: %v", err)
	}
	admin.Roles = append(admin.Roles, userModels.RoleAdmin)
	if err := e.users.Create(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/v1/users/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUnregisteredSubjectIsForbidden(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/v1/users/profile", e.token(t, "stranger"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHealthAndMetricsNeedNoToken(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

// TestFullLifecycle walks the happy path: registration, promotion request,
// admin approval, gated assessment creation, publication.
func TestFullLifecycle(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t, "root")
	alice := e.token(t, "alice")
	root := e.token(t, "root")

	rec := e.do(t, http.MethodPost, "/v1/users/register", alice,
		map[string]string{"name": "Alice", "email": "alice@example.org"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/v1/validations", alice, map[string]any{
		"organisation_id":     "org-1",
		"organisation_source": "ror",
		"organisation_name":   "Example University",
		"organisation_role":   "manager",
		"actor_id":            4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create validation: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Assessment creation is gated until the validation is approved.
	assessmentPayload := map[string]any{
		"assessment_type_id":   1,
		"assessment_type_name": "fair",
		"assessment_doc": map[string]any{
			"name":         "FAIR assessment",
			"actor":        map[string]any{"id": 4, "name": "PID Owner"},
			"organisation": map[string]any{"id": "org-1", "name": "Example"},
			"subject":      map[string]any{"id": "subj-1", "name": "dataset-1", "type": "dataset"},
		},
	}
	if rec := e.do(t, http.MethodPost, "/v1/assessments", alice, assessmentPayload); rec.Code != http.StatusForbidden {
		t.Fatalf("ungated assessment: expected 403, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodPut, "/v1/admin/validations/1/update-status", root,
		map[string]string{"status": "APPROVED"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/v1/assessments", alice, assessmentPayload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create assessment: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode assessment: %v", err)
	}

	rec = e.do(t, http.MethodPut, "/v1/assessments/"+created.ID+"/publish", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPut, "/v1/assessments/"+created.ID+"/publish", alice, nil); rec.Code != http.StatusConflict {
		t.Fatalf("re-publish: expected 409, got %d", rec.Code)
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	e := newEnv(t)
	alice := e.token(t, "alice")
	if rec := e.do(t, http.MethodPost, "/v1/users/register", alice,
		map[string]string{"name": "Alice", "email": "alice@example.org"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	rec := e.do(t, http.MethodGet, "/v1/admin/users", alice, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// TestDenyAccessTakesEffectImmediately mirrors the moderation scenario: once
// flagged, the user's very next request is rejected, on every route.
func TestDenyAccessTakesEffectImmediately(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t, "root")
	alice := e.token(t, "alice")
	root := e.token(t, "root")

	if rec := e.do(t, http.MethodPost, "/v1/users/register", alice,
		map[string]string{"name": "Alice", "email": "alice@example.org"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/v1/users/profile", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("profile before deny: expected 200, got %d", rec.Code)
	}

	rec := e.do(t, http.MethodPut, "/v1/admin/users/deny-access", root,
		map[string]string{"user_id": "alice", "reason": "terms violation"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deny-access: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := e.do(t, http.MethodGet, "/v1/users/profile", alice, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("profile after deny: expected 403, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/v1/validations", alice, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("validations after deny: expected 403, got %d", rec.Code)
	}
}

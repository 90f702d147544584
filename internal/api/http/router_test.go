package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/api/http/handlers"
	"github.com/spec-kit/ticketapp/internal/kv"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/service"
)

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := kv.NewMemoryStore()
	registry := service.NewWorkspaces(store, service.WorkspaceOptions{})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler("ticketapp", "test", "memory", registry),
		Auth:       handlers.NewAuthHandler(),
		Tickets:    handlers.NewTicketsHandler(),
		Dashboard:  handlers.NewDashboardHandler(),
		Workspaces: registry,
		Metrics:    metrics,
	})
	return &testServer{t: t, app: app}
}

func (s *testServer) do(method, path, workspace string, body any) (int, map[string]any) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if workspace != "" {
		req.Header.Set(handlers.WorkspaceHeader, workspace)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(s.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) signup(workspace string) {
	s.t.Helper()
	status, body := s.do(fiber.MethodPost, "/auth/signup", workspace, map[string]string{
		"name":            "Ann",
		"email":           "ann@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	require.Equal(s.t, fiber.StatusCreated, status, body)
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestSignupAndSession(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(fiber.MethodGet, "/auth/session", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	status, body = s.do(fiber.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Ann", user["name"])
	assert.NotContains(t, user, "password")

	status, body = s.do(fiber.MethodGet, "/auth/session", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["authenticated"])
	assert.True(t, strings.HasPrefix(body["token"].(string), "token_"))

	status, body = s.do(fiber.MethodGet, "/tickets", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestSignupFailures(t *testing.T) {
	s := newTestServer(t)
	s.signup("")

	status, body := s.do(fiber.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "An account with this email already exists", body["error"])

	status, body = s.do(fiber.MethodPost, "/auth/signup", "", map[string]string{
		"name": "", "email": "nope", "password": "123", "confirmPassword": "456",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "Name is required", fields["name"])
	assert.Equal(t, "Must be a valid email", fields["email"])
	assert.Equal(t, "Password must be at least 6 characters", fields["password"])
	assert.Equal(t, "Passwords must match", fields["confirmPassword"])
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.signup("")

	status, _ := s.do(fiber.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, body := s.do(fiber.MethodGet, "/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["error"])

	status, body = s.do(fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "secret1",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = s.do(fiber.MethodGet, "/dashboard/stats", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTicketEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.signup("")

	status, body := s.do(fiber.MethodPost, "/tickets", "", map[string]string{
		"title": "Printer jam", "description": "Third floor", "status": "open", "priority": "low",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "Printer jam", created["title"])

	status, body = s.do(fiber.MethodPost, "/tickets", "", map[string]string{"title": "", "status": "weird"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(fiber.MethodGet, "/tickets/"+id, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Third floor", body["data"].(map[string]any)["description"])

	status, body = s.do(fiber.MethodPatch, "/tickets/"+id, "", map[string]string{"status": "closed"})
	require.Equal(t, fiber.StatusOK, status)
	updated := body["data"].(map[string]any)
	assert.Equal(t, "closed", updated["status"])
	assert.Equal(t, "Printer jam", updated["title"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])

	status, body = s.do(fiber.MethodGet, "/tickets?status=open&q=LOGIN", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	list := body["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Fix login page responsive design", list[0].(map[string]any)["title"])

	status, body = s.do(fiber.MethodGet, "/dashboard/stats", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"total": 3.0, "open": 1.0, "inProgress": 1.0, "closed": 1.0}, body["data"])

	status, _ = s.do(fiber.MethodDelete, "/tickets/"+id, "", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(fiber.MethodDelete, "/tickets/"+id, "", nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body = s.do(fiber.MethodGet, "/tickets/"+id, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = s.do(fiber.MethodPatch, "/tickets/"+id, "", map[string]string{"title": "again"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestWorkspacesAreIsolated(t *testing.T) {
	s := newTestServer(t)
	s.signup("team-a")

	status, body := s.do(fiber.MethodGet, "/auth/session", "team-b", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	status, _ = s.do(fiber.MethodGet, "/tickets", "team-b", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// The same email is free in another workspace.
	s.signup("team-b")

	status, body = s.do(fiber.MethodGet, "/auth/session", "no spaces allowed", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(fiber.MethodGet, "/health/live", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"memory": "ok"}, body["dependencies"])

	status, _ = s.do(fiber.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ticketapp_http_requests_total")
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type testServer struct {
	app     *fiber.App
	authSvc *service.AuthService
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	tickets := repository.NewMemoryTicketRepository()
	users := repository.NewMemoryUserRepository()

	authSvc := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: bcrypt.MinCost}, service.AuthDependencies{
		UserRepo: users,
		Logger:   logger,
	})
	ticketSvc := service.NewTicketService(service.TicketDependencies{TicketRepo: tickets, UserRepo: users, Logger: logger})
	dashboardSvc := service.NewDashboardService(tickets, users, cache.Noop(), logger)
	metrics := observability.NewMetrics()

	app := NewServer("helpdesk-test", logger, metrics, 5*time.Second, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Dashboard:      handlers.NewDashboardHandler(dashboardSvc),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), users),
	})
	return &testServer{app: app, authSvc: authSvc, metrics: metrics}
}

// login creates an account with the given roles and returns a bearer token.
func (s *testServer) login(t *testing.T, email string, roles ...domain.Role) string {
	t.Helper()
	ctx := context.Background()
	if _, err := s.authSvc.CreateUser(ctx, service.UserInput{Email: email, Password: "password123"}, roles...); err != nil {
		t.Fatalf("create user: %v", err)
	}
	session, err := s.authSvc.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return session.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	if status != http.StatusOK || body["status"] != "alive" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("unconfigured dependencies should not fail readiness: %d %v", status, body)
	}
}

func TestRegisterAndMe(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":      "dana@example.com",
		"password":   "password123",
		"first_name": "Dana",
	})
	if status != http.StatusCreated {
		t.Fatalf("register: %d %v", status, body)
	}
	token, _ := data(body)["token"].(string)

	status, body = s.do(t, http.MethodGet, "/api/me", token, nil)
	if status != http.StatusOK || data(body)["email"] != "dana@example.com" {
		t.Fatalf("me: %d %v", status, body)
	}
	if _, leaked := data(body)["password_hash"]; leaked {
		t.Fatal("credential hash exposed")
	}

	status, body = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "dana@example.com", "password": "password123"})
	if status != http.StatusConflict || errorCode(body) != "CONFLICT" {
		t.Fatalf("duplicate register: %d %v", status, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/tickets", "", nil)
	if status != http.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %v", status, body)
	}
	status, _ = s.do(t, http.MethodGet, "/api/tickets", "garbage", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "user@example.com")
	tech := s.login(t, "tech@example.com", domain.RoleTechnician)
	admin := s.login(t, "admin@example.com", domain.RoleAdmin)

	status, body := s.do(t, http.MethodPost, "/api/tickets", user, map[string]any{
		"title":       "Printer offline",
		"description": "Third floor printer does not respond",
		"category":    "hardware",
	})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %v", status, body)
	}
	created := data(body)
	id, _ := created["id"].(string)
	if created["status"] != "open" || created["priority"] != "normal" {
		t.Fatalf("unexpected defaults %v", created)
	}

	status, body = s.do(t, http.MethodPost, "/api/tickets/"+id+"/assign", user, nil)
	if status != http.StatusForbidden || errorCode(body) != "FORBIDDEN" {
		t.Fatalf("user assign: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/tickets/"+id+"/assign", tech, nil)
	if status != http.StatusOK || data(body)["status"] != "in_progress" {
		t.Fatalf("assign: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPatch, "/api/tickets/"+id, user, map[string]any{"title": "still broken"})
	if status != http.StatusForbidden {
		t.Fatalf("creator edit after progress: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/tickets/"+id+"/status", tech, map[string]any{"status": "bogus"})
	if status != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("bogus status: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/api/tickets/"+id+"/status", tech, map[string]any{"status": "resolved"})
	if status != http.StatusOK || data(body)["resolved_at"] == nil {
		t.Fatalf("resolve: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/dashboard/stats", user, nil)
	if status != http.StatusForbidden {
		t.Fatalf("user dashboard: %d %v", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/api/dashboard/stats", tech, nil)
	if status != http.StatusOK || data(body)["total"] != float64(1) {
		t.Fatalf("dashboard: %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/tickets/"+id, user, nil)
	if status != http.StatusForbidden {
		t.Fatalf("user delete: %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/tickets/"+id, user, nil)
	if status != http.StatusOK {
		t.Fatalf("ticket missing after denied delete: %d", status)
	}
	status, _ = s.do(t, http.MethodDelete, "/api/tickets/"+id, admin, nil)
	if status != http.StatusNoContent {
		t.Fatalf("admin delete: %d", status)
	}
	status, body = s.do(t, http.MethodGet, "/api/tickets/"+id, admin, nil)
	if status != http.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("get after delete: %d %v", status, body)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "user@example.com")

	status, body := s.do(t, http.MethodPost, "/api/tickets", user, map[string]any{"title": "x", "category": "desk"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", status, body)
	}
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	if _, ok := details["category"]; !ok {
		t.Fatalf("missing category detail: %v", body)
	}
}

func TestQueuesAndDirectory(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "user@example.com")
	tech := s.login(t, "tech@example.com", domain.RoleTechnician)

	for _, priority := range []string{"low", "urgent"} {
		status, body := s.do(t, http.MethodPost, "/api/tickets", user, map[string]any{
			"title": priority + " issue", "description": "d", "category": "network", "priority": priority,
		})
		if status != http.StatusCreated {
			t.Fatalf("create: %d %v", status, body)
		}
	}

	status, _ := s.do(t, http.MethodGet, "/api/tickets/queues/open", user, nil)
	if status != http.StatusForbidden {
		t.Fatalf("user queue: %d", status)
	}

	status, body := s.do(t, http.MethodGet, "/api/tickets/queues/open", tech, nil)
	items, _ := body["data"].([]any)
	if status != http.StatusOK || len(items) != 2 {
		t.Fatalf("open queue: %d %v", status, body)
	}
	if first, _ := items[0].(map[string]any); first["priority"] != "urgent" {
		t.Fatalf("urgent ticket should lead the queue: %v", items)
	}

	status, body = s.do(t, http.MethodGet, "/api/tickets/search?q=URGENT", tech, nil)
	items, _ = body["data"].([]any)
	if status != http.StatusOK || len(items) != 1 {
		t.Fatalf("search: %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodGet, "/api/tickets/recent?days=abc", tech, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("recent with bad days: %d", status)
	}

	status, body = s.do(t, http.MethodGet, "/api/users/technicians", user, nil)
	items, _ = body["data"].([]any)
	if status != http.StatusOK || len(items) != 1 {
		t.Fatalf("technicians: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/tickets", user, nil)
	items, _ = body["data"].([]any)
	if status != http.StatusOK || len(items) != 2 {
		t.Fatalf("own list: %d %v", status, body)
	}
}

func TestUserDirectoryRoutes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	support := "Support"
	if _, err := s.authSvc.CreateUser(ctx, service.UserInput{Email: "eve@example.com", Password: "password123", FirstName: "Eve", LastName: "Garnier", Department: &support}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	user := s.login(t, "user@example.com")
	tech := s.login(t, "tech@example.com", domain.RoleTechnician)

	status, _ := s.do(t, http.MethodGet, "/api/users/search?q=garn", user, nil)
	if status != http.StatusForbidden {
		t.Fatalf("user search: %d", status)
	}

	status, body := s.do(t, http.MethodGet, "/api/users/search?q=garn", tech, nil)
	items, _ := body["data"].([]any)
	if status != http.StatusOK || len(items) != 1 {
		t.Fatalf("search: %d %v", status, body)
	}
	if first, _ := items[0].(map[string]any); first["email"] != "eve@example.com" {
		t.Fatalf("unexpected match %v", items)
	}

	status, body = s.do(t, http.MethodGet, "/api/users/department/Support", tech, nil)
	items, _ = body["data"].([]any)
	if status != http.StatusOK || len(items) != 1 {
		t.Fatalf("department: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/users/search", tech, nil)
	if status != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("blank search: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/dashboard/stats", tech, nil)
	if status != http.StatusOK || data(body)["technicians"] != float64(1) || data(body)["users"] != float64(3) {
		t.Fatalf("dashboard head counts: %d %v", status, body)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/nowhere", "", nil)
	if status != http.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

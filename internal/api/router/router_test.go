package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/lead-manager/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lead-manager/internal/http/middleware"
	"github.com/wolfman30/lead-manager/internal/leads"
	"github.com/wolfman30/lead-manager/internal/observability/metrics"
	"github.com/wolfman30/lead-manager/internal/users"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

type envelopeBody struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Summary json.RawMessage     `json:"summary"`
	Errors  map[string][]string `json:"errors"`
}

func newTestRouter(t *testing.T, mutate ...func(*Config)) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter(&bytes.Buffer{}, "error")
	reg := prometheus.NewRegistry()
	leadMetrics := metrics.NewLeadMetrics(reg)

	leadRepo := leads.NewInMemoryRepository()
	leadSvc := leads.NewService(leadRepo, leadMetrics, logger, leads.ServiceOptions{})
	userSvc := users.NewService(
		users.NewInMemoryRepository(),
		users.NewBcryptHasher(bcrypt.MinCost),
		users.NewTokenIssuer("router-test-secret", time.Hour, 24*time.Hour),
		users.NewMemoryBlacklist(),
		leadMetrics,
		logger,
	)

	cfg := &Config{
		Logger:         logger,
		AuthHandler:    users.NewHandler(userSvc, logger),
		LeadsHandler:   leads.NewHandler(leadSvc, leads.NewAggregator(leadRepo), logger),
		HealthHandler:  handlers.NewHealthHandler(nil, logger),
		Authenticator:  userSvc,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
	}
	for _, m := range mutate {
		m(cfg)
	}
	return New(cfg)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelopeBody) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelopeBody
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: failed to decode response: %v (%s)", method, path, err, rr.Body.String())
		}
	}
	return rr.Code, env
}

func register(t *testing.T, h http.Handler, username string) users.AuthResult {
	t.Helper()
	code, env := do(t, h, http.MethodPost, "/auth/register/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cure-pass",
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected status %d, got %d: %+v", username, http.StatusCreated, code, env)
	}
	var result users.AuthResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode register data: %v", err)
	}
	return result
}

func createLead(t *testing.T, h http.Handler, token, name, status string) int64 {
	t.Helper()
	body := map[string]string{
		"name":        name,
		"phone":       "+19876543210",
		"email":       strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		"lead_source": "website",
	}
	if status != "" {
		body["status"] = status
	}
	code, env := do(t, h, http.MethodPost, "/leads/", token, body)
	if code != http.StatusCreated {
		t.Fatalf("create lead: expected status %d, got %d: %+v", http.StatusCreated, code, env)
	}
	var lead struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	return lead.ID
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterLeadsRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/leads/", "/leads", "/leads/by-status/", "/leads/statistics/", "/leads/1/"} {
		code, env := do(t, router, http.MethodGet, path, "", nil)
		if code != http.StatusUnauthorized {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusUnauthorized, code)
		}
		if env.Success {
			t.Errorf("%s: expected success=false", path)
		}
	}

	code, _ := do(t, router, http.MethodGet, "/leads/", "not-a-token", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected status %d for a bad token, got %d", http.StatusUnauthorized, code)
	}
}

func TestRouterRejectsRefreshTokenAsBearer(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice")

	code, _ := do(t, router, http.MethodGet, "/leads/", alice.RefreshToken, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, code)
	}
}

func TestRouterLeadLifecycle(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice")
	token := alice.AccessToken

	id := createLead(t, router, token, "Jane Smith", "")
	createLead(t, router, token, "Sold Sam", "deal_done")
	createLead(t, router, token, "Sent Sue", "lead_sent")

	path := "/leads/" + itoa(id) + "/"
	code, env := do(t, router, http.MethodGet, path, token, nil)
	if code != http.StatusOK {
		t.Fatalf("get lead: expected status %d, got %d", http.StatusOK, code)
	}
	var lead map[string]any
	if err := json.Unmarshal(env.Data, &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if lead["status"] != "new_lead" || lead["created_by_name"] != "alice" || lead["lead_source_display"] != "Website" {
		t.Errorf("unexpected lead %v", lead)
	}

	code, _ = do(t, router, http.MethodPatch, "/leads/"+itoa(id)+"/status/", token, map[string]string{"status": "lead_sent"})
	if code != http.StatusOK {
		t.Fatalf("status patch: expected status %d, got %d", http.StatusOK, code)
	}

	code, env = do(t, router, http.MethodGet, "/leads/?status=lead_sent", token, nil)
	var listed []map[string]any
	if err := json.Unmarshal(env.Data, &listed); err != nil || code != http.StatusOK {
		t.Fatalf("list: %d %v", code, err)
	}
	if len(listed) != 2 {
		t.Errorf("expected 2 lead_sent leads, got %d", len(listed))
	}

	code, env = do(t, router, http.MethodGet, "/leads/by-status/", token, nil)
	if code != http.StatusOK {
		t.Fatalf("by-status: expected status %d, got %d", http.StatusOK, code)
	}
	var summary leads.Summary
	if err := json.Unmarshal(env.Summary, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary != (leads.Summary{TotalLeads: 3, NewLeads: 0, LeadsSent: 2, DealsDone: 1}) {
		t.Errorf("unexpected summary %+v", summary)
	}

	code, env = do(t, router, http.MethodGet, "/leads/statistics/", token, nil)
	var stats map[string]float64
	if err := json.Unmarshal(env.Data, &stats); err != nil || code != http.StatusOK {
		t.Fatalf("statistics: %d %v", code, err)
	}
	if stats["conversion_rate"] != 33.33 {
		t.Errorf("expected conversion rate 33.33, got %v", stats["conversion_rate"])
	}

	code, _ = do(t, router, http.MethodDelete, path, token, nil)
	if code != http.StatusNoContent {
		t.Fatalf("delete: expected status %d, got %d", http.StatusNoContent, code)
	}
	code, _ = do(t, router, http.MethodGet, path, token, nil)
	if code != http.StatusNotFound {
		t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, code)
	}
}

func TestRouterOwnerIsolation(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice")
	bob := register(t, router, "bob")

	id := createLead(t, router, alice.AccessToken, "Jane Smith", "")
	path := "/leads/" + itoa(id) + "/"

	code, env := do(t, router, http.MethodGet, path, bob.AccessToken, nil)
	if code != http.StatusNotFound || env.Message != "Not found." {
		t.Errorf("expected 404 Not found. for a foreign lead, got %d %q", code, env.Message)
	}
	code, _ = do(t, router, http.MethodDelete, path, bob.AccessToken, nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 deleting a foreign lead, got %d", code)
	}

	code, env = do(t, router, http.MethodGet, "/leads/", bob.AccessToken, nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("expected empty list for bob, got %d %s", code, env.Data)
	}

	code, _ = do(t, router, http.MethodGet, path, alice.AccessToken, nil)
	if code != http.StatusOK {
		t.Errorf("owner should still see the lead, got %d", code)
	}
}

func TestRouterLogoutRevokesRefresh(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice")

	code, _ := do(t, router, http.MethodPost, "/auth/logout/", alice.AccessToken, map[string]string{"refresh_token": alice.RefreshToken})
	if code != http.StatusOK {
		t.Fatalf("logout: expected status %d, got %d", http.StatusOK, code)
	}
	code, _ = do(t, router, http.MethodPost, "/auth/token/refresh/", "", map[string]string{"refresh": alice.RefreshToken})
	if code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: expected status %d, got %d", http.StatusUnauthorized, code)
	}
}

func TestRouterLoginAndVerify(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice")

	code, env := do(t, router, http.MethodPost, "/auth/login/", "", map[string]string{
		"email": "alice@example.com", "password": "s3cure-pass",
	})
	if code != http.StatusOK {
		t.Fatalf("login: expected status %d, got %d: %+v", http.StatusOK, code, env)
	}
	var result users.AuthResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	code, env = do(t, router, http.MethodPost, "/auth/token/verify/", result.AccessToken, nil)
	if code != http.StatusOK || env.Message != "Token is valid" {
		t.Errorf("verify: unexpected %d %+v", code, env)
	}
}

func TestRouterAuthRateLimit(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 2)
	t.Cleanup(limiter.Stop)
	router := newTestRouter(t, func(c *Config) { c.RateLimiter = limiter })

	var last int
	for i := 0; i < 3; i++ {
		last, _ = do(t, router, http.MethodPost, "/auth/login/", "", map[string]string{
			"username": "ghost", "password": "whatever-pass",
		})
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected status %d on the third attempt, got %d", http.StatusTooManyRequests, last)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"leadmanager_auth_events_total", "leadmanager_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s to be exported", name)
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	code, env := do(t, router, http.MethodGet, "/nope", "", nil)
	if code != http.StatusNotFound || env.Success {
		t.Errorf("expected 404 envelope, got %d %+v", code, env)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

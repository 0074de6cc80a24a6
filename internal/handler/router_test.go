package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/auth"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/calendar"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/journal"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/security"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

type failingChecker struct{}

func (failingChecker) PingContext(ctx context.Context) error {
	return errors.New("connection refused")
}

// fakeGateway は認証APIとメトリクス設定APIを模したテスト用サーバー。
type fakeGateway struct {
	server *httptest.Server

	authCalls     atomic.Int32
	settingsCalls atomic.Int32

	mu        sync.Mutex
	completed bool
	metrics   []string
}

const fakeUserID = "7d9b6c1e-2f4a-4e8b-9c3d-5a6b7c8d9e0f"

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		g.authCalls.Add(1)
		var req struct {
			Action   string `json:"action"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Token    string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Action == gateway.ActionVerify {
			if req.Token != "gateway-token" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"valid": true,
				"user":  map[string]string{"id": fakeUserID, "email": "user@example.com"},
			})
			return
		}
		if req.Password != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": "gateway-token",
			"user":  map[string]string{"id": fakeUserID, "email": req.Email},
		})
	})
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
		g.settingsCalls.Add(1)
		if r.Header.Get(gateway.AuthTokenHeader) != fakeUserID {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if r.Method == http.MethodPost {
			var body struct {
				Metrics []string `json:"metrics"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			g.metrics = body.Metrics
			g.completed = true
		}
		json.NewEncoder(w).Encode(map[string]any{
			"metrics":              g.metrics,
			"onboarding_completed": g.completed,
		})
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) savedMetrics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metrics
}

// newTestRouterDeps はインメモリの依存関係でRouterDepsを構成する。
func newTestRouterDeps(t *testing.T, gw *fakeGateway) *RouterDeps {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	collector := metrics.NopCollector{}

	authURL, settingsURL := "http://127.0.0.1:1/auth", "http://127.0.0.1:1/settings"
	if gw != nil {
		authURL, settingsURL = gw.server.URL+"/auth", gw.server.URL+"/settings"
	}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	sessions := repository.NewMemorySessionRepo()
	onboardingService := onboarding.NewService(
		gateway.NewMetricsClient(httpClient, logger, collector, settingsURL), logger)
	authService := auth.NewService(
		gateway.NewAuthClient(httpClient, logger, collector, authURL),
		onboardingService,
		sessions,
		workspace.NewManager(),
		collector,
		logger,
	)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	return &RouterDeps{
		SessionFinder: authService,
		RateLimiter:   limiter,
		Logger:        logger,
		Metrics:       collector,
		Renderer:      newTestRenderer(t),
		Journal: JournalConfig{
			WeekStart:  calendar.WeekStartMonday,
			StreakMode: journal.StreakPlaceholder,
		},
		AuthService:       authService,
		OnboardingService: onboardingService,
		Sanitizer:         security.NewNoteSanitizer(),
	}
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"チェッカーなし", nil, http.StatusOK, "ok"},
		{"DB疎通失敗", failingChecker{}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestRouterDeps(t, nil)
			deps.HealthChecker = tt.checker
			router := NewRouter(deps)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			json.NewDecoder(w.Body).Decode(&body)
			if body["status"] != tt.wantBody {
				t.Errorf("status = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	deps := newTestRouterDeps(t, nil)
	deps.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "diary_days_saved_total 0\n")
	})
	router := NewRouter(deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "diary_days_saved_total") {
		t.Errorf("status = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'none'") {
		t.Errorf("CSP = %q", csp)
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options should be DENY")
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t, nil))

	for _, path := range []string{"/api/stats", "/api/mosaic"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			var body middleware.ErrorResponseBody
			json.NewDecoder(w.Body).Decode(&body)
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q", body.Code)
			}
		})
	}
}

func TestRouter_PostWithoutCSRFToken(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t, nil))

	for _, path := range []string{"/auth/login", "/app/records", "/onboarding/complete", "/auth/logout"} {
		t.Run(path, func(t *testing.T) {
			form := url.Values{"email": {"user@example.com"}, "password": {"secret123"}}
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}

// --- エンドツーエンド ---

type flowClient struct {
	t      *testing.T
	client *http.Client
	base   string
	csrf   string
}

func newFlowClient(t *testing.T, base string) *flowClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &flowClient{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *flowClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.client.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

func (c *flowClient) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, c.csrf)
	resp, err := c.client.PostForm(c.base+path, form)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

// fetchCSRFToken はCSRFトークンを取得し、以降のフォーム送信に使う。
func (c *flowClient) fetchCSRFToken() {
	c.t.Helper()
	_, body := c.get("/api/csrf-token")
	var payload map[string]string
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload["token"] == "" {
		c.t.Fatalf("csrf token response = %q", body)
	}
	c.csrf = payload["token"]
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("%s %s: status = %d, want 303", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); !strings.HasPrefix(got, location) {
		t.Fatalf("%s %s: Location = %q, want prefix %q", resp.Request.Method, resp.Request.URL.Path, got, location)
	}
}

func TestRouter_EndToEndFlow(t *testing.T) {
	gw := newFakeGateway(t)
	srv := httptest.NewServer(NewRouter(newTestRouterDeps(t, gw)))
	defer srv.Close()

	c := newFlowClient(t, srv.URL)

	// 初回訪問はランディング
	resp, _ := c.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("landing status = %d", resp.StatusCode)
	}
	resp, _ = c.get("/")
	expectRedirect(t, resp, "/app")
	resp, _ = c.get("/app")
	expectRedirect(t, resp, "/auth")

	c.fetchCSRFToken()

	// 入力エラーは外部APIを呼ばない
	resp, body := c.post("/auth/login", url.Values{"email": {"bad@x"}, "password": {"12345"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid login status = %d, want 422", resp.StatusCode)
	}
	if code := errorCode(parseHTML(t, body)); code != model.ErrCodePasswordTooShort {
		t.Errorf("error code = %q", code)
	}
	if n := gw.authCalls.Load(); n != 0 {
		t.Fatalf("auth gateway calls = %d, want 0", n)
	}

	// 外部APIの拒否
	resp, body = c.post("/auth/login", url.Values{"email": {"user@example.com"}, "password": {"wrong-pass"}})
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body, "Invalid credentials") {
		t.Fatalf("rejected login status = %d", resp.StatusCode)
	}

	// ログイン成功: オンボーディング未完了
	resp, _ = c.post("/auth/login", url.Values{"email": {" User@Example.com "}, "password": {"secret123"}})
	expectRedirect(t, resp, "/onboarding")
	if n := gw.authCalls.Load(); n != 2 {
		t.Errorf("auth gateway calls = %d, want 2", n)
	}

	resp, _ = c.get("/app")
	expectRedirect(t, resp, "/onboarding")

	resp, body = c.get("/onboarding")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "user@example.com") {
		t.Fatalf("onboarding status = %d", resp.StatusCode)
	}

	resp, _ = c.post("/onboarding/toggle", url.Values{"metric": {"sleep"}})
	expectRedirect(t, resp, "/onboarding")

	resp, _ = c.post("/onboarding/complete", nil)
	expectRedirect(t, resp, "/app")
	if got := strings.Join(gw.savedMetrics(), ","); got != "mood,sleep,note" {
		t.Errorf("saved metrics = %q", got)
	}

	// ダッシュボードで記録
	resp, _ = c.get("/app")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}

	resp, _ = c.post("/app/records", url.Values{"mood": {"good"}, "note": {"散歩した"}})
	expectRedirect(t, resp, "/app?y=")

	resp, body = c.get("/api/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	var summary journal.Summary
	if err := json.Unmarshal([]byte(body), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalDays != 1 || summary.Streak != 1 {
		t.Errorf("summary = %+v", summary)
	}

	// ログアウト後はAPIに401、トップはダッシュボードへ
	resp, _ = c.post("/auth/logout", nil)
	expectRedirect(t, resp, "/")

	resp, _ = c.get("/api/stats")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("stats after logout status = %d, want 401", resp.StatusCode)
	}
	resp, _ = c.get("/app")
	expectRedirect(t, resp, "/auth")
}

func TestRouter_EndToEnd_CompletedUserSkipsOnboarding(t *testing.T) {
	gw := newFakeGateway(t)
	gw.mu.Lock()
	gw.completed = true
	gw.metrics = []string{"mood", "water"}
	gw.mu.Unlock()

	srv := httptest.NewServer(NewRouter(newTestRouterDeps(t, gw)))
	defer srv.Close()

	c := newFlowClient(t, srv.URL)
	c.fetchCSRFToken()

	resp, _ := c.post("/auth/register", url.Values{
		"email":            {"new@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	expectRedirect(t, resp, "/app")

	resp, body := c.get("/app")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	doc := parseHTML(t, body)
	if chips := findAll(doc, byClass("chip")); len(chips) != 2 {
		t.Errorf("tracked metric chips = %d, want 2", len(chips))
	}
}

func TestRouter_EndToEnd_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestRouterDeps(t, nil)))
	defer srv.Close()

	c := newFlowClient(t, srv.URL)
	c.fetchCSRFToken()

	resp, body := c.post("/auth/login", url.Values{"email": {"user@example.com"}, "password": {"secret123"}})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if code := errorCode(parseHTML(t, body)); code != model.ErrCodeGatewayUnavailable {
		t.Errorf("error code = %q", code)
	}
}

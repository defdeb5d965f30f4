// Package integration provides a reusable test harness for end-to-end
// testing of the callsheet server. It starts a full HTTP server with an
// in-memory item store and a test JWT issuer.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/callsheet/internal/config"
	"github.com/mediaops/callsheet/internal/engine"
	"github.com/mediaops/callsheet/internal/openapi"
	"github.com/mediaops/callsheet/internal/rules"
	"github.com/mediaops/callsheet/internal/store"
	"github.com/mediaops/callsheet/internal/transport"
	"github.com/mediaops/callsheet/model"
)

// TestHarness encapsulates a fully wired callsheet instance for
// integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server
	issuer *tokenIssuer

	// Internal components exposed for advanced test scenarios.
	Ruleset  *rules.Ruleset
	Store    *store.MemItemStore
	Service  *engine.Service
	Notifier *CaptureNotifier

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	ruleset        *rules.Ruleset
	handlerTimeout time.Duration
}

// WithRuleset replaces the default pipeline ruleset.
func WithRuleset(rs *rules.Ruleset) HarnessOption {
	return func(c *harnessConfig) {
		c.ruleset = rs
	}
}

// WithHandlerTimeout sets the per-request handler timeout.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.handlerTimeout = d
	}
}

// CaptureNotifier records emitted transition events for assertions.
type CaptureNotifier struct {
	mu     sync.Mutex
	events []model.TransitionEvent
}

func (c *CaptureNotifier) Emit(_ context.Context, event model.TransitionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

// Events returns a snapshot of the captured events.
func (c *CaptureNotifier) Events() []model.TransitionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.TransitionEvent, len(c.events))
	copy(out, c.events)
	return out
}

// WaitForEvents blocks until at least n events arrive or the deadline passes.
func (c *CaptureNotifier) WaitForEvents(t *testing.T, n int, timeout time.Duration) []model.TransitionEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		events := c.Events()
		if len(events) >= n {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	events := c.Events()
	t.Fatalf("got %d notification events, want at least %d", len(events), n)
	return events
}

// NewTestHarness creates and starts a full callsheet test instance. The
// server is automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		handlerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}
	if hc.ruleset == nil {
		hc.ruleset = rules.Default()
	}

	h := &TestHarness{
		t:        t,
		issuer:   newTokenIssuer(t),
		Ruleset:  hc.ruleset,
		Store:    store.NewMemItemStore(),
		Notifier: &CaptureNotifier{},
	}

	h.Service = engine.NewService(h.Ruleset, h.Store, h.Notifier, zap.NewNop(), nil, 2*time.Second)

	h.cfg = config.Defaults()
	h.cfg.Server.HandlerTimeout = hc.handlerTimeout
	h.cfg.Observability.Metrics.Enabled = false
	h.cfg.Identity = config.IdentityConfig{
		Issuer:       h.issuer.Issuer(),
		Audience:     h.issuer.Audience(),
		JWKSURL:      h.issuer.JWKSURL(),
		JWKSCacheTTL: 1 * time.Hour,
		Algorithms:   []string{"RS256"},
	}

	jwks := transport.NewJWKSClient(h.issuer.JWKSURL(), 1*time.Hour, zap.NewNop())

	router := transport.NewRouter(transport.Dependencies{
		Config:       h.cfg,
		Logger:       zap.NewNop(),
		Service:      h.Service,
		Authenticate: transport.JWTAuthenticator(h.cfg.Identity, jwks),
		OpenAPI:      openapi.Handler(),
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// GenerateToken creates a valid JWT token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.issuer.GenerateToken(claims)
}

// GenerateExpiredToken creates a JWT that has already expired.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.issuer.GenerateExpiredToken(claims)
}

// --- HTTP client helpers ---

// GET performs an authenticated GET request.
func (h *TestHarness) GET(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, token)
}

// POST performs an authenticated POST request with a JSON body.
func (h *TestHarness) POST(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token)
}

// DELETE performs an authenticated DELETE request.
func (h *TestHarness) DELETE(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("DELETE", path, nil, token)
}

func (h *TestHarness) doRequest(method, path string, body any, token string) *http.Response {
	h.t.Helper()

	url := h.server.URL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Item helpers ---

// ItemView is the wire shape of an item as returned by the API.
type ItemView struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	Series     string `json:"series"`
	Status     string `json:"status"`
	Assignee   string `json:"assignee"`
	Marker     string `json:"marker"`
	Restricted bool   `json:"restricted"`
}

// ErrorBody is the wire shape of an error response.
type ErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateItem creates an item through the API as the admin user.
func (h *TestHarness) CreateItem(t *testing.T, title string) ItemView {
	t.Helper()
	resp := h.POST("/api/items", map[string]any{
		"project_id": "proj-1",
		"title":      title,
		"series":     "series-a",
	}, h.GenerateToken(AdminClaims()))

	var item ItemView
	h.AssertJSON(t, resp, http.StatusCreated, &item)
	return item
}

// Transition posts a transition request and returns the raw response.
func (h *TestHarness) Transition(t *testing.T, itemID, from, to string, claim bool, token string) *http.Response {
	t.Helper()
	return h.POST(fmt.Sprintf("/api/items/%s/transition", itemID), map[string]any{
		"from":  from,
		"to":    to,
		"claim": claim,
	}, token)
}

// --- Default test claims ---

// AdminClaims returns TestClaims for an admin user.
func AdminClaims() TestClaims {
	return TestClaims{SubjectID: "user-admin", Roles: []string{"admin"}}
}

// OptimizerClaims returns TestClaims for an optimizer user.
func OptimizerClaims(id string) TestClaims {
	return TestClaims{SubjectID: id, Roles: []string{"optimizer"}}
}

// ReviewerClaims returns TestClaims for a reviewer user.
func ReviewerClaims() TestClaims {
	return TestClaims{SubjectID: "user-reviewer", Roles: []string{"reviewer"}}
}

// ContentReviewerClaims returns TestClaims for a content reviewer user.
func ContentReviewerClaims() TestClaims {
	return TestClaims{SubjectID: "user-content", Roles: []string{"content_reviewer"}}
}

// UploaderClaims returns TestClaims for an uploader user.
func UploaderClaims(id string) TestClaims {
	return TestClaims{SubjectID: id, Roles: []string{"uploader"}}
}

// MediaReviewerClaims returns TestClaims for a media reviewer user.
func MediaReviewerClaims() TestClaims {
	return TestClaims{SubjectID: "user-media", Roles: []string{"media_reviewer"}}
}

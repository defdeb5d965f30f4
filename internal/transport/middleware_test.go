package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mediaops/callsheet/internal/config"
	"github.com/mediaops/callsheet/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// claimsMiddleware injects verified claims, standing in for JWTAuthenticator.
func claimsMiddleware(claims map[string]any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func TestBuildActor(t *testing.T) {
	cases := []struct {
		name       string
		claims     map[string]any
		wantStatus int
		wantActor  model.Actor
	}{
		{
			name:       "single role",
			claims:     map[string]any{"sub": "user-1", "roles": []any{"optimizer"}},
			wantStatus: http.StatusOK,
			wantActor:  model.Actor{ID: "user-1", Role: model.RoleOptimizer},
		},
		{
			name:       "first known role wins",
			claims:     map[string]any{"sub": "user-2", "roles": []any{"janitor", "uploader", "admin"}},
			wantStatus: http.StatusOK,
			wantActor:  model.Actor{ID: "user-2", Role: model.RoleUploader},
		},
		{
			name:       "role is case insensitive",
			claims:     map[string]any{"sub": "user-3", "roles": []any{" Admin "}},
			wantStatus: http.StatusOK,
			wantActor:  model.Actor{ID: "user-3", Role: model.RoleAdmin},
		},
		{
			name:       "missing subject",
			claims:     map[string]any{"roles": []any{"optimizer"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no recognized role",
			claims:     map[string]any{"sub": "user-4", "roles": []any{"janitor"}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no roles claim",
			claims:     map[string]any{"sub": "user-5"},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got model.Actor
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = model.MustActor(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := claimsMiddleware(tc.claims)(BuildActor(inner))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/items", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			if tc.wantStatus == http.StatusOK && got != tc.wantActor {
				t.Errorf("actor = %+v, want %+v", got, tc.wantActor)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = CorrelationIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequestID(inner).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if fromCtx == "" {
			t.Error("no correlation id in context")
		}
		if hdr := w.Header().Get("X-Correlation-Id"); hdr != fromCtx {
			t.Errorf("header %q != context %q", hdr, fromCtx)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Correlation-Id", "corr-123")
		w := httptest.NewRecorder()
		RequestID(inner).ServeHTTP(w, req)
		if fromCtx != "corr-123" {
			t.Errorf("correlation id = %q, want corr-123", fromCtx)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if v := w.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", v)
	}
	if v := w.Header().Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("X-Frame-Options = %q", v)
	}
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler blew up")
	})
	w := httptest.NewRecorder()
	Recovery(zap.NewNop())(panicky).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != model.ErrInternalError {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrInternalError)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: []string{"https://studio.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         600,
	}
	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	CORS(cfg)(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}

package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

type fakeVerifier struct {
	token *auth.Token
	err   error
}

func (f *fakeVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func okHandler(gotUID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUID = UID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAdminOnly(t *testing.T) {
	adminToken := &auth.Token{UID: "u1", Claims: map[string]interface{}{AdminClaim: true}}
	userToken := &auth.Token{UID: "u2", Claims: map[string]interface{}{}}

	tests := []struct {
		name     string
		verifier TokenVerifier
		static   string
		header   string
		status   int
		uid      string
	}{
		{"unconfigured", nil, "", "Bearer x", http.StatusForbidden, ""},
		{"missing_header", nil, "secret", "", http.StatusUnauthorized, ""},
		{"malformed_header", nil, "secret", "Token secret", http.StatusUnauthorized, ""},
		{"static_token", nil, "secret", "Bearer secret", http.StatusNoContent, staticAdminUID},
		{"static_token_wrong", nil, "secret", "Bearer nope", http.StatusUnauthorized, ""},
		{"firebase_admin", &fakeVerifier{token: adminToken}, "", "Bearer id", http.StatusNoContent, "u1"},
		{"firebase_not_admin", &fakeVerifier{token: userToken}, "", "Bearer id", http.StatusForbidden, ""},
		{"firebase_invalid", &fakeVerifier{err: errors.New("expired")}, "", "Bearer id", http.StatusUnauthorized, ""},
		{"static_before_firebase", &fakeVerifier{err: errors.New("unused")}, "secret", "bearer secret", http.StatusNoContent, staticAdminUID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uid string
			h := NewMiddleware(tt.verifier, tt.static).AdminOnly(okHandler(&uid))

			req := httptest.NewRequest(http.MethodGet, "/cache", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if uid != tt.uid {
				t.Fatalf("expected uid %q, got %q", tt.uid, uid)
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	var fromCtx *slog.Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.FromContext(r.Context())
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusTeapot)
	})
	h := chimiddleware.RequestID(NewLoggerMiddleware(log).LoggerMiddleware(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart.png", nil))

	if fromCtx == nil || fromCtx == slog.Default() {
		t.Fatal("expected request-scoped logger in context")
	}
	out := buf.String()
	for _, want := range []string{"request completed", "status=418", "path=/chart.png", "cache=HIT", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

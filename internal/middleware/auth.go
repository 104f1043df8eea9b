package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

// AdminClaim is the Firebase custom claim that grants access to the admin surface.
const AdminClaim = "admin"

const staticAdminUID = "static-admin"

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type Middleware struct {
	verifier   TokenVerifier
	adminToken string
}

// NewMiddleware builds the admin check. Either argument may be empty; with
// neither configured every admin request is refused.
func NewMiddleware(verifier TokenVerifier, adminToken string) *Middleware {
	return &Middleware{verifier: verifier, adminToken: adminToken}
}

// context key
type contextKey string

const UIDKey contextKey = "uid"

// AdminOnly admits requests carrying either the static admin token or a
// Firebase ID token with the admin claim.
func (m *Middleware) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.verifier == nil && m.adminToken == "" {
			http.Error(w, "admin access is not configured", http.StatusForbidden)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "invalid Authorization header", http.StatusUnauthorized)
			return
		}
		tokenStr := parts[1]

		if m.adminToken != "" && subtle.ConstantTimeCompare([]byte(tokenStr), []byte(m.adminToken)) == 1 {
			next.ServeHTTP(w, r.WithContext(withUID(r.Context(), staticAdminUID)))
			return
		}

		if m.verifier == nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		// Verify ID Token
		token, err := m.verifier.VerifyIDToken(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if isAdmin, _ := token.Claims[AdminClaim].(bool); !isAdmin {
			logger.FromContext(r.Context()).Warn("admin access denied", "uid", token.UID)
			http.Error(w, "admin privileges required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUID(r.Context(), token.UID)))
	})
}

func withUID(ctx context.Context, uid string) context.Context {
	_, ctx = logger.With(ctx, "uid", uid)
	return context.WithValue(ctx, UIDKey, uid)
}

// Helper to extract UID
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(UIDKey).(string)
	return uid
}

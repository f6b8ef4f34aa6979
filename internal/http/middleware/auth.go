package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/internal/http/response"
	"github.com/diagnosis/cardlink/internal/platform/session"
	"github.com/diagnosis/cardlink/pkg/auth"
	"github.com/diagnosis/cardlink/pkg/logger"
)

type ctxKey string

const (
	ctxClaims ctxKey = "claims"
	ctxToken  ctxKey = "token"
)

type Auth struct {
	secret   string
	sessions *session.Registry
}

func NewAuth(secret string, sessions *session.Registry) *Auth {
	return &Auth{secret: secret, sessions: sessions}
}

// RequireAuth validates the bearer token signature and checks the session
// registry, so a logged-out or reset account is rejected even while its
// token signature would still verify.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Fail(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")

		claims, err := auth.Parse(raw, a.secret)
		if err != nil {
			response.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if !a.sessions.Validate(raw) {
			response.Fail(w, http.StatusUnauthorized, "Session is no longer valid")
			return
		}

		ctx := context.WithValue(r.Context(), logger.AccountIDKey, claims.Sub)
		ctx = context.WithValue(ctx, ctxClaims, claims)
		ctx = context.WithValue(ctx, ctxToken, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must be mounted after RequireAuth.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r)
		if claims == nil || claims.Role != domain.RoleAdmin {
			response.Fail(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(ctxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}

func Token(r *http.Request) string {
	v := r.Context().Value(ctxToken)
	if v == nil {
		return ""
	}
	return v.(string)
}

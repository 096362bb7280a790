package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	ctxUserID   ctxKey = "auth_user_id"
	ctxUserTier ctxKey = "auth_user_tier"
)

// UserID returns the authenticated caller id placed by the auth middleware.
func UserID(ctx context.Context) string {
	if v := ctx.Value(ctxUserID); v != nil {
		return v.(string)
	}
	return ""
}

// UserTier returns the caller's plan tier as asserted by the token issuer.
// Empty when the token carries no tier claim; the planner treats that as
// the free tier.
func UserTier(ctx context.Context) string {
	if v := ctx.Value(ctxUserTier); v != nil {
		return v.(string)
	}
	return ""
}

// authClaims is the token payload: the registered subject plus the plan
// tier the issuer resolved at sign-in. The tier rides in the signed token
// so callers cannot self-promote their scheduling defaults.
type authClaims struct {
	Tier string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates a Bearer HS256 JWT and exposes its subject as
// the caller's user id. Authentication itself (issuing tokens) lives
// outside this service.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, "Unauthorized: malformed token", http.StatusUnauthorized)
				return
			}

			claims := authClaims{}
			token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.Subject)
			ctx = context.WithValue(ctx, ctxUserTier, claims.Tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP strips the port; X-Forwarded-For wins when a proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

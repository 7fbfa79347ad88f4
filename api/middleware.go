/*
middleware.go - Authentication and request logging middleware

PURPOSE:
  Authenticate maps a verified bearer token to an access.Principal and
  stores it in the request context. The engine treats credential
  verification as an external collaborator: this middleware verifies the
  token signature and expiry, then trusts the claims.

TOKEN CLAIMS:
  sub          Principal ID
  role         "admin" | "manager" | "employee"
  employee_id  Bound employee, required when role=employee

SEE ALSO:
  - access/principal.go: The Principal type
  - server.go: Middleware ordering
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/payroll"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims is the JWT payload the transport layer issues and verifies.
type Claims struct {
	Role       string `json:"role"`
	EmployeeID string `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate extracts and verifies the bearer token, then attaches the
// resulting Principal to the request context. Requests without a valid
// token get 401; authorization (403) is the gate's job, not ours.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token claims", nil)
				return
			}
			role := access.Role(claims.Role)
			if !role.Valid() {
				writeError(w, http.StatusUnauthorized, "unknown role", nil)
				return
			}
			if role == access.RoleEmployee && claims.EmployeeID == "" {
				writeError(w, http.StatusUnauthorized, "employee token without employee_id", nil)
				return
			}

			principal := access.Principal{
				ID:         claims.Subject,
				Role:       role,
				EmployeeID: payroll.EmployeeID(claims.EmployeeID),
			}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principalFrom returns the authenticated principal set by Authenticate.
func principalFrom(r *http.Request) (access.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(access.Principal)
	return p, ok
}

// IssueToken mints a token for a principal. Used by the seed tooling and
// tests; a real deployment issues tokens from its identity provider.
func IssueToken(secret []byte, p access.Principal, ttl time.Duration) (string, error) {
	claims := &Claims{
		Role:       string(p.Role),
		EmployeeID: string(p.EmployeeID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// RequestLogger logs method, path, status and latency through zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

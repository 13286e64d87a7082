// Package auth consumes access tokens issued by the auth service. This
// service never issues or refreshes tokens; it only verifies them and
// exposes the caller's identity to handlers.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type ctxKeyIdentity struct{}

// Identity is the registered-user identity carried by a verified token.
type Identity struct {
	UserID  int64
	Premium bool
}

// IdentityFromContext reports the verified registered user, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

// WithIdentity injects an identity into context. Useful for testing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

type Claims struct {
	jwt.RegisteredClaims
	Premium bool `json:"premium,omitempty"`
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// OptionalUser validates a Bearer token when present and injects the
// identity into context. Requests without a token, or with one that does
// not verify, pass through anonymously; engagement endpoints fall back to
// session tracking for those.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromRequest(verifier, r)
			if ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that do not carry a valid Bearer token.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromRequest(verifier, r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func identityFromRequest(verifier JWTVerifier, r *http.Request) (Identity, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return Identity{}, false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, false
	}
	claims, err := verifier.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return Identity{}, false
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, false
	}
	return Identity{UserID: uid, Premium: claims.Premium}, true
}

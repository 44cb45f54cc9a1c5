package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the auth service. Only user_id is
// required here; the rest is carried through for logging.
type Claims struct {
	TokenType string `json:"token_type,omitempty"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey int

const claimsKey ctxKey = iota

// claimsFrom returns the authenticated claims stored by requireAuth.
func claimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// tokenFromRequest extracts the raw JWT. Clients send it either in a bare
// "token" header or as a standard Authorization bearer token.
func tokenFromRequest(r *http.Request) string {
	if tok := r.Header.Get("token"); tok != "" {
		return tok
	}
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return rest
	}
	return ""
}

// requireAuth validates the request token and injects the claims into the
// request context. Requests without a valid HS256 token get a 401.
func (h *Handlers) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
			}
			return h.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.UserID == "" {
			writeError(w, http.StatusUnauthorized, "token missing user_id")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

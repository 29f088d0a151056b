package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/outbox"
)

type subjectKey struct{}

// Subject returns the token subject stored by NewBearerAuth, or "".
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// NewBearerAuth returns a middleware that requires an HS256 bearer token
// minted by outbox.JWTSource with secret. Requests without a valid token get
// 401 and never reach next.
func NewBearerAuth(secret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sync"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			subject, err := outbox.VerifyToken(secret, strings.TrimSpace(raw))
			if err != nil {
				log.Warn("rejected bearer token", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="sync", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
		})
	}
}

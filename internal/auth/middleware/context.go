package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-rubrics/internal/rbac"
)

type subjectKey struct{}

// WithClaims stores the token subject and puts its role where rbac looks.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = WithSubject(ctx, c.Sub)
	return rbac.WithRole(ctx, c.Role)
}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext is the workspace user id, or "" outside JWTMiddleware.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter used by EventSource clients.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

package middleware

import (
	"context"
	"net/http"

	"github.com/minutes/internal/session"
)

type contextKey string

const contextKeySession contextKey = "session"

// Session loads the caller's in-memory state, issuing a cookie for new
// visitors, and stores it in the request context.
func Session(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := sessions.Load(w, r)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), st)))
		})
	}
}

// WithSession returns a copy of ctx carrying st.
func WithSession(ctx context.Context, st *session.State) context.Context {
	return context.WithValue(ctx, contextKeySession, st)
}

// SessionFromContext returns the state stored by Session, or nil.
func SessionFromContext(ctx context.Context) *session.State {
	st, _ := ctx.Value(contextKeySession).(*session.State)
	return st
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// SessionCookie is the cookie the web interface keeps its token in.
const SessionCookie = "session"

type contextKey int

const userContextKey contextKey = iota

// UserFromContext gets the authenticated user set by Middleware.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey).(User)
	return user, ok
}

// ContextWithUser is used by tests to inject an authenticated user.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Middleware authenticates requests by bearer token or session cookie and
// rejects those without a valid user.
func Middleware(store *Store, tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
			token := bearerToken(req)
			if token == "" {
				writeUnauthorized(res)
				return
			}
			userID, err := tokens.Verify(token)
			if err != nil {
				writeUnauthorized(res)
				return
			}
			user, err := store.UserByID(req.Context(), userID)
			if err != nil {
				writeUnauthorized(res)
				return
			}
			next.ServeHTTP(res, req.WithContext(ContextWithUser(req.Context(), user)))
		})
	}
}

func bearerToken(req *http.Request) string {
	if h := req.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := req.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func writeUnauthorized(res http.ResponseWriter) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(res).Encode(map[string]interface{}{
		"error": ErrUnauthorized.Error(),
	})
}

package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

// UserKey is the context key for the authenticated user
const UserKey ContextKey = "user"

// Authenticate returns a middleware that resolves the bearer token to an
// identity user. Missing or rejected tokens get 401; an unreachable
// identity provider gets 500.
func Authenticate(verifier auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if err != nil {
				utils.WriteError(w, unauthorized(err))
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			switch {
			case stderrors.Is(err, auth.ErrMissingToken), stderrors.Is(err, auth.ErrInvalidToken):
				utils.WriteError(w, unauthorized(err))
				return
			case err != nil:
				log.WithFields(map[string]interface{}{
					"request_id": GetRequestID(r),
					"path":       r.URL.Path,
				}).ErrorWithErr(err, "Identity provider lookup failed")
				utils.WriteError(w, errors.Internal("Failed to verify token", err))
				return
			}

			AddLogField(w, "user_id", user.ID)

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(err error) *errors.AppError {
	if stderrors.Is(err, auth.ErrMissingToken) {
		return errors.Unauthorized("No authorization header")
	}
	return errors.Unauthorized("Invalid token")
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser extracts the authenticated user from the request context
func GetUser(r *http.Request) (*auth.User, bool) {
	user, ok := r.Context().Value(UserKey).(*auth.User)
	return user, ok && user != nil
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(r *http.Request) (string, bool) {
	user, ok := GetUser(r)
	if !ok {
		return "", false
	}
	return user.ID, true
}

package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"kbweb/pkg/auth"
	"kbweb/pkg/common"
	apperrors "kbweb/pkg/errors"
)

// Authenticate resolves the request user, applies the per-user rate limit
// and stores the user in the request context. A nil limiter disables limiting.
func Authenticate(
	authenticator *auth.Authenticator,
	limiter *auth.UserRateLimiter,
	errHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Debug("Authentication failed",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				errHandler.Handle(w, r, apperrors.NewUnauthorizedError(unauthorizedMessage(err)))
				return
			}

			if limiter != nil {
				allowed, err := limiter.Allow(r.Context(), user.UserID)
				if err != nil {
					errHandler.Handle(w, r, apperrors.NewInternalError("rate limiter failed").WithCause(err))
					return
				}
				if !allowed {
					errHandler.Handle(w, r, apperrors.NewRateLimitError(limiter.Limit(), "minute"))
					return
				}
			}

			ctx := auth.SetUserInContext(r.Context(), user)
			ctx = common.WithUserID(ctx, user.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/textproto"

	"courier/internal/auth/models"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/httputil"
	"courier/pkg/requestcontext"
)

// DefaultTokenHeader carries the credential on protected routes.
const DefaultTokenHeader = "x-access-token"

// Authenticator resolves a credential header to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, present bool) (*models.Principal, error)
}

type contextKeyPrincipal struct{}

// PrincipalFrom returns the principal attached by RequireAuth.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(*models.Principal)
	return p, ok && p != nil
}

// WithPrincipal attaches principal to ctx. Useful for handler tests that skip the middleware.
func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	ctx = context.WithValue(ctx, contextKeyPrincipal{}, principal)
	ctx = requestcontext.WithUserID(ctx, principal.ID)
	return requestcontext.WithIdentity(ctx, principal.Identity)
}

// RequireAuth gates next behind the credential in header. Rejections are
// already recorded by the authenticator, so only non-auth failures log here.
func RequireAuth(auth Authenticator, header string, logger *slog.Logger) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultTokenHeader
	}
	key := textproto.CanonicalMIMEHeaderKey(header)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			values, present := r.Header[key]
			token := ""
			if len(values) > 0 {
				token = values[0]
			}

			principal, err := auth.Authenticate(ctx, token, present)
			if err != nil {
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.ErrorContext(ctx, "failed to authenticate request",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/yln-platform/mentorship-backend/api/responses"
	"github.com/yln-platform/mentorship-backend/api/validators"
	"github.com/yln-platform/mentorship-backend/internal/sessions"
	"github.com/yln-platform/mentorship-backend/internal/users"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

type sessionValidator interface {
	Validate(ctx context.Context, token string) (*sessions.Session, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Auth validates the bearer session token and seeds the request context
// with the account's identity and role.
func Auth(sessionSvc sessionValidator, userSvc userLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			session, err := sessionSvc.Validate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			user, err := userSvc.GetByID(r.Context(), session.UserID)
			if err != nil {
				// The account behind a live session is gone; treat the
				// token as revoked rather than surfacing a 404.
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}

			ctx := WithUserID(r.Context(), user.ID)
			ctx = WithRole(ctx, user.Role)
			ctx = WithSessionToken(ctx, token)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    strconv.FormatInt(user.ID, 10),
					"actor_role": string(user.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/yln-platform/mentorship-backend/api/middleware"
	"github.com/yln-platform/mentorship-backend/api/responses"
	"github.com/yln-platform/mentorship-backend/api/validators"
	"github.com/yln-platform/mentorship-backend/internal/users"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

// AdminUserList returns every account. Admin only.
func AdminUserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AdminUserDelete removes an account and its dependent rows. Admins
// cannot delete themselves through this surface.
func AdminUserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if id == middleware.UserIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "cannot delete the account you are logged in with"))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "account removed"})
	}
}

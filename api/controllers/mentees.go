package controllers

import (
	"context"
	"net/http"

	"github.com/yln-platform/mentorship-backend/api/middleware"
	"github.com/yln-platform/mentorship-backend/api/responses"
	"github.com/yln-platform/mentorship-backend/api/validators"
	"github.com/yln-platform/mentorship-backend/internal/mentees"
	"github.com/yln-platform/mentorship-backend/internal/users"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

type accountLookup interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// MenteeCreateProfile creates the calling user's mentee profile.
func MenteeCreateProfile(svc mentees.Service, accounts accountLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body mentees.CreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := accounts.GetByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mentee, err := svc.Create(r.Context(), userID, account.Email, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, mentee)
	}
}

// MenteeMyProfile returns the calling user's mentee profile.
func MenteeMyProfile(svc mentees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		mentee, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, mentee)
	}
}

// MenteeUpdateMyProfile updates the calling user's mentee profile.
func MenteeUpdateMyProfile(svc mentees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body mentees.UpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mentee, err := svc.Update(r.Context(), current.ID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, mentee)
	}
}

// MenteeList returns every mentee profile. Admin only.
func MenteeList(svc mentees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func MenteeGet(svc mentees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "menteeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mentee, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, mentee)
	}
}

func MenteeDelete(svc mentees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "menteeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "mentee profile removed"})
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ticketbooth-backend/api/middleware"
	"github.com/angelmondragon/ticketbooth-backend/api/responses"
	"github.com/angelmondragon/ticketbooth-backend/api/validators"
	"github.com/angelmondragon/ticketbooth-backend/internal/theaters"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
)

func theatersUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "theater service unavailable")
}

// TheaterCreateWithManager creates a theater together with a brand-new manager account.
func TheaterCreateWithManager(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		var body theaters.CreateTheaterAndManagerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateTheaterAndManager(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "theater and manager created", result)
	}
}

// TheaterCreate creates a theater with an optional system and an optional, possibly existing, manager.
func TheaterCreate(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		var body theaters.CreateTheaterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateTheater(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "theater created", result)
	}
}

func TheaterUpdate(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		var body theaters.UpdateTheaterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		theater, err := svc.UpdateTheater(r.Context(), chi.URLParam(r, "id"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "theater updated", theater)
	}
}

func TheaterDelete(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		if err := svc.DeleteTheater(r.Context(), chi.URLParam(r, "id")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "theater deleted", nil)
	}
}

func TheaterList(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func TheaterGet(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		theater, err := svc.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, theater)
	}
}

// TheaterGetByManager returns the theater a manager runs. Managers may only read their own.
func TheaterGetByManager(svc theaters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, theatersUnavailable())
			return
		}

		managerID := strings.TrimSpace(chi.URLParam(r, "managerId"))
		if middleware.RoleFromContext(r.Context()) == string(enums.UserRoleTheaterManager) {
			if !strings.EqualFold(managerID, middleware.UserIDFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "managers may only read their own theater"))
				return
			}
		}

		theater, err := svc.GetByManagerID(r.Context(), managerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, theater)
	}
}

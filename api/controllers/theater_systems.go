package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ticketbooth-backend/api/responses"
	"github.com/angelmondragon/ticketbooth-backend/api/validators"
	"github.com/angelmondragon/ticketbooth-backend/internal/theatersystems"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
)

func systemsUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "theater system service unavailable")
}

func TheaterSystemCreate(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
			return
		}

		var body theatersystems.CreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		system, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "theater system created", system)
	}
}

func TheaterSystemUpdate(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
			return
		}

		var body theatersystems.UpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		system, err := svc.Update(r.Context(), chi.URLParam(r, "id"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "theater system updated", system)
	}
}

// TheaterSystemDelete hard-deletes a system. Dependent theaters are only touched when the cascade policy is on.
func TheaterSystemDelete(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
			return
		}

		result, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "theater system deleted", result)
	}
}

func TheaterSystemList(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
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

// TheaterSystemGet accepts either the system id or its code in the path.
func TheaterSystemGet(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
			return
		}

		system, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, system)
	}
}

func TheaterSystemAddTheater(svc theatersystems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, systemsUnavailable())
			return
		}

		var body theatersystems.AddTheaterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddTheater(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "theater added to system", result)
	}
}

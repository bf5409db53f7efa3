package controllers

import (
	"net/http"

	"github.com/angelmondragon/ticketbooth-backend/api/responses"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
)

// AdminListManagers pages through every theater-manager account.
func AdminListManagers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListManagers(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

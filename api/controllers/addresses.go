package controllers

import (
	"net/http"
	"strings"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/validators"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

type resolveAddressRequest struct {
	PlaceID string `json:"placeId" validate:"required"`
}

// AddressSuggest returns place suggestions for the delivery address typed so far.
func AddressSuggest(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		suggestions, err := svc.Suggest(r.Context(), address.SuggestRequest{
			Query:    strings.TrimSpace(query.Get("q")),
			Country:  query.Get("country"),
			Language: query.Get("lang"),
			Session:  query.Get("session"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

// AddressResolve geocodes a picked suggestion into a delivery address.
func AddressResolve(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body resolveAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resolved, err := svc.Resolve(r.Context(), address.ResolveRequest{PlaceID: body.PlaceID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

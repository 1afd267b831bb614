// Package address validates delivery addresses and geocodes them through Places.
package address

import (
	"context"
	"strings"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/maps"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// Places is the Google Places surface used for suggestions and geocoding.
type Places interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

type Service interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Resolve(ctx context.Context, req ResolveRequest) (types.Address, error)
	Normalize(ctx context.Context, raw types.Address) (types.Address, error)
}

type SuggestRequest struct {
	Query    string
	Country  string
	Language string
	Session  string
}

type ResolveRequest struct {
	PlaceID string
}

type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

type service struct {
	places Places
}

// NewService accepts a nil Places; Normalize then only cleans and validates input.
func NewService(places Places) Service {
	return &service{places: places}
}

var errNoPlaces = errors.New(errors.CodeDependency, "maps client unavailable")

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s.places == nil {
		return nil, errNoPlaces
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New(errors.CodeValidation, "query is required")
	}

	ask := maps.AutocompleteRequest{
		Input:        query,
		LanguageCode: strings.TrimSpace(req.Language),
		SessionToken: strings.TrimSpace(req.Session),
	}
	if country := strings.ToUpper(strings.TrimSpace(req.Country)); country != "" {
		ask.IncludedRegionCodes = []string{country}
	}
	found, err := s.places.Autocomplete(ctx, ask)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, len(found))
	for i, f := range found {
		out[i] = Suggestion{PlaceID: f.PlaceID, Description: f.Description}
	}
	return out, nil
}

func (s *service) Resolve(ctx context.Context, req ResolveRequest) (types.Address, error) {
	if s.places == nil {
		return types.Address{}, errNoPlaces
	}
	placeID := strings.TrimSpace(req.PlaceID)
	if placeID == "" {
		return types.Address{}, errors.New(errors.CodeValidation, "place_id is required")
	}
	details, err := s.places.ResolvePlace(ctx, placeID)
	if err != nil {
		return types.Address{}, err
	}
	return fromPlace(details)
}

// Normalize trims the submitted address. With a place id and a configured Places
// client the geocoded place replaces it, keeping the buyer's own line2.
func (s *service) Normalize(ctx context.Context, raw types.Address) (types.Address, error) {
	addr := trimmed(raw)

	if addr.PlaceID != "" && s.places != nil {
		geocoded, err := s.Resolve(ctx, ResolveRequest{PlaceID: addr.PlaceID})
		if err != nil {
			return types.Address{}, err
		}
		if geocoded.Line2 == nil {
			geocoded.Line2 = addr.Line2
		}
		geocoded.PlaceID = addr.PlaceID
		addr = geocoded
	}

	if err := addr.Validate(); err != nil {
		return types.Address{}, errors.Wrap(errors.CodeValidation, err, "invalid delivery address").
			WithDetails(map[string]any{"address": err.Error()})
	}
	return addr, nil
}

func trimmed(raw types.Address) types.Address {
	out := raw
	out.Line1 = strings.TrimSpace(raw.Line1)
	out.City = strings.TrimSpace(raw.City)
	out.Region = strings.TrimSpace(raw.Region)
	out.PostalCode = strings.TrimSpace(raw.PostalCode)
	out.Country = strings.ToUpper(strings.TrimSpace(raw.Country))
	out.PlaceID = strings.TrimSpace(raw.PlaceID)
	out.Line2 = nil
	if raw.Line2 != nil {
		out.Line2 = nonEmpty(strings.TrimSpace(*raw.Line2))
	}
	return out
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

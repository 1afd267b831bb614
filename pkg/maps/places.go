package maps

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
)

const (
	autocompleteMask = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	placeDetailsMask = "id,formattedAddress,location,addressComponents"
)

var errNotConfigured = pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")

// AutocompleteRequest is the body of places:autocomplete. SessionToken groups
// the keystrokes of one address entry with the details call that ends it.
type AutocompleteRequest struct {
	Input               string   `json:"input"`
	IncludedRegionCodes []string `json:"includedRegionCodes,omitempty"`
	LanguageCode        string   `json:"languageCode,omitempty"`
	SessionToken        string   `json:"sessionToken,omitempty"`
}

type AutocompleteSuggestion struct {
	PlaceID     string
	Description string
}

type PlaceDetails struct {
	PlaceID           string
	FormattedAddress  string
	Location          LatLng
	AddressComponents []AddressComponent
}

type LatLng struct {
	Latitude  float64
	Longitude float64
}

type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if c == nil {
		return nil, errNotConfigured
	}
	if req.Input = strings.TrimSpace(req.Input); req.Input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}
	if len(req.IncludedRegionCodes) == 0 {
		req.IncludedRegionCodes = c.regions
	}
	if req.LanguageCode == "" {
		req.LanguageCode = c.language
	}

	var out struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	if err := c.do(ctx, "autocomplete", http.MethodPost, "places:autocomplete", autocompleteMask, req, &out); err != nil {
		return nil, err
	}

	suggestions := make([]AutocompleteSuggestion, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		if s.Prediction.PlaceID == "" {
			continue
		}
		suggestions = append(suggestions, AutocompleteSuggestion{PlaceID: s.Prediction.PlaceID, Description: s.Prediction.Text.Text})
	}
	return suggestions, nil
}

func (c *Client) ResolvePlace(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if c == nil {
		return nil, errNotConfigured
	}
	if placeID = strings.TrimSpace(placeID); placeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place ID is required")
	}

	var out struct {
		ID               string `json:"id"`
		FormattedAddress string `json:"formattedAddress"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		AddressComponents []struct {
			LongText  string   `json:"longText"`
			ShortText string   `json:"shortText"`
			Types     []string `json:"types"`
		} `json:"addressComponents"`
	}
	if err := c.do(ctx, "place_details", http.MethodGet, "places/"+url.PathEscape(placeID), placeDetailsMask, nil, &out); err != nil {
		return nil, err
	}

	details := &PlaceDetails{
		PlaceID:           out.ID,
		FormattedAddress:  out.FormattedAddress,
		Location:          LatLng{Latitude: out.Location.Latitude, Longitude: out.Location.Longitude},
		AddressComponents: make([]AddressComponent, 0, len(out.AddressComponents)),
	}
	for _, comp := range out.AddressComponents {
		details.AddressComponents = append(details.AddressComponents, AddressComponent{LongName: comp.LongText, ShortName: comp.ShortText, Types: comp.Types})
	}
	return details, nil
}

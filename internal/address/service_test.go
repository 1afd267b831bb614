package address

import (
	"context"
	"math"
	"testing"

	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/maps"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type stubPlaces struct {
	details  *maps.PlaceDetails
	resolved []string
	asked    []maps.AutocompleteRequest
}

func (s *stubPlaces) Autocomplete(_ context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	s.asked = append(s.asked, req)
	return []maps.AutocompleteSuggestion{{PlaceID: "p1", Description: req.Input + ", Almaty"}}, nil
}

func (s *stubPlaces) ResolvePlace(_ context.Context, placeID string) (*maps.PlaceDetails, error) {
	s.resolved = append(s.resolved, placeID)
	return s.details, nil
}

func almatyDetails() *maps.PlaceDetails {
	return &maps.PlaceDetails{
		PlaceID:          "ChIJ-almaty",
		FormattedAddress: "12 Abay Ave, Almaty 050000, Kazakhstan",
		Location:         maps.LatLng{Latitude: 43.2383, Longitude: 76.9454},
		AddressComponents: []maps.AddressComponent{
			{LongName: "12", Types: []string{"street_number"}},
			{LongName: "Abay Ave", Types: []string{"route"}},
			{LongName: "Unit 4", Types: []string{"subpremise"}},
			{LongName: "Almaty", Types: []string{"locality"}},
			{LongName: "Almaty Region", Types: []string{"administrative_area_level_1"}},
			{LongName: "050000", Types: []string{"postal_code"}},
			{LongName: "Kazakhstan", ShortName: "KZ", Types: []string{"country"}},
		},
	}
}

func TestMapPlaceDetails(t *testing.T) {
	result, err := fromPlace(almatyDetails())
	if err != nil {
		t.Fatalf("fromPlace failed: %v", err)
	}
	if result.Line1 != "12 Abay Ave" {
		t.Fatalf("unexpected line1 %q", result.Line1)
	}
	if result.Line2 == nil || *result.Line2 != "Unit 4" {
		t.Fatalf("unexpected line2 %v", result.Line2)
	}
	if result.City != "Almaty" || result.Region != "Almaty Region" {
		t.Fatalf("unexpected locality %+v", result)
	}
	if result.PostalCode != "050000" || result.Country != "KZ" {
		t.Fatalf("unexpected postal/country %+v", result)
	}
	if result.PlaceID != "ChIJ-almaty" {
		t.Fatalf("unexpected place id %q", result.PlaceID)
	}
}

func TestMapPlaceDetailsMissingCity(t *testing.T) {
	details := almatyDetails()
	details.AddressComponents = details.AddressComponents[:2]
	if _, err := fromPlace(details); err == nil {
		t.Fatal("expected error when city missing")
	}
}

func TestMapPlaceDetailsWithoutRegionOrPostalCode(t *testing.T) {
	details := almatyDetails()
	details.AddressComponents = []maps.AddressComponent{
		{LongName: "Abay Ave", Types: []string{"route"}},
		{LongName: "Almaty", Types: []string{"locality"}},
	}
	result, err := fromPlace(details)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Region != "" || result.PostalCode != "" {
		t.Fatalf("expected empty optional fields, got %+v", result)
	}
}

func TestFromPlaceFallbacks(t *testing.T) {
	details := almatyDetails()
	details.AddressComponents = []maps.AddressComponent{
		{LongName: "Leeds", Types: []string{"postal_town"}},
		{LongName: "United Kingdom", ShortName: "United Kingdom", Types: []string{"country"}},
	}
	details.FormattedAddress = "Unit 9 Depot Park, Leeds LS1, UK"

	result, err := fromPlace(details)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Line1 != "Unit 9 Depot Park" || result.City != "Leeds" || result.Country != "United Kingdom" {
		t.Fatalf("fallbacks not applied: %+v", result)
	}
	if result.Line2 != nil {
		t.Fatalf("expected no line2, got %q", *result.Line2)
	}

	details.Location = maps.LatLng{}
	if _, err := fromPlace(details); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error without location, got %v", err)
	}
}

func TestNormalizeCleansWithoutPlaces(t *testing.T) {
	svc := NewService(nil)
	line2 := "  "
	out, err := svc.Normalize(context.Background(), types.Address{
		Line1:   "  7 Tole Bi  ",
		Line2:   &line2,
		City:    " Almaty",
		Country: "kz",
		Lat:     43.25,
		Lng:     76.92,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Line1 != "7 Tole Bi" || out.City != "Almaty" || out.Country != "KZ" {
		t.Fatalf("address not cleaned: %+v", out)
	}
	if out.Line2 != nil {
		t.Fatalf("expected blank line2 dropped, got %q", *out.Line2)
	}
}

func TestNormalizeRejectsIncompleteAddress(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Normalize(context.Background(), types.Address{City: "Almaty"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeGeocodesPlaceID(t *testing.T) {
	places := &stubPlaces{details: almatyDetails()}
	places.details.AddressComponents = places.details.AddressComponents[:1:1]
	places.details.AddressComponents = append(places.details.AddressComponents,
		maps.AddressComponent{LongName: "Abay Ave", Types: []string{"route"}},
		maps.AddressComponent{LongName: "Almaty", Types: []string{"locality"}},
	)
	svc := NewService(places)
	gate := "Gate 3"

	out, err := svc.Normalize(context.Background(), types.Address{PlaceID: "ChIJ-almaty", Line2: &gate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places.resolved) != 1 {
		t.Fatalf("expected one resolve call, got %d", len(places.resolved))
	}
	if out.Line2 == nil || *out.Line2 != "Gate 3" {
		t.Fatalf("expected buyer line2 kept, got %v", out.Line2)
	}
	if !out.HasCoordinates() {
		t.Fatal("expected coordinates from geocoding")
	}
}

func TestSuggestRequiresPlaces(t *testing.T) {
	if _, err := NewService(nil).Suggest(context.Background(), SuggestRequest{Query: "Abay"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	places := &stubPlaces{}
	got, err := NewService(places).Suggest(context.Background(), SuggestRequest{Query: "Abay", Country: "kz", Session: " s-1 "})
	if err != nil || len(got) != 1 || got[0].PlaceID != "p1" {
		t.Fatalf("unexpected suggestions %+v err=%v", got, err)
	}
	if ask := places.asked[0]; ask.IncludedRegionCodes[0] != "KZ" || ask.SessionToken != "s-1" {
		t.Fatalf("unexpected autocomplete request %+v", ask)
	}
}

func TestResolveTrimsPlaceID(t *testing.T) {
	places := &stubPlaces{details: almatyDetails()}
	svc := NewService(places)

	if _, err := svc.Resolve(context.Background(), ResolveRequest{PlaceID: "  "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out, err := svc.Resolve(context.Background(), ResolveRequest{PlaceID: " ChIJ-almaty "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places.resolved) != 1 || places.resolved[0] != "ChIJ-almaty" {
		t.Fatalf("unexpected resolve calls %v", places.resolved)
	}
	if out.City != "Almaty" || out.Line1 != "12 Abay Ave" {
		t.Fatalf("unexpected address %+v", out)
	}
}

func TestDistanceKm(t *testing.T) {
	// Almaty to Astana is roughly 970 km.
	d := DistanceKm(43.2383, 76.9454, 51.1605, 71.4704)
	if math.Abs(d-970) > 30 {
		t.Fatalf("unexpected distance %.1f", d)
	}
	if DistanceKm(10, 10, 10, 10) != 0 {
		t.Fatal("expected zero distance for identical points")
	}
}

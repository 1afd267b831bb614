package address

import (
	"strings"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/maps"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// cityKinds lists the component types that can stand in for a city, most specific first.
var cityKinds = []string{"locality", "postal_town", "administrative_area_level_2"}

// components indexes a place's address components by type; the first one wins.
type components map[string]maps.AddressComponent

func indexComponents(list []maps.AddressComponent) components {
	idx := components{}
	for _, c := range list {
		if c.LongName == "" {
			continue
		}
		for _, kind := range c.Types {
			if _, seen := idx[kind]; !seen {
				idx[kind] = c
			}
		}
	}
	return idx
}

func (c components) long(kinds ...string) string {
	for _, kind := range kinds {
		if comp, ok := c[kind]; ok {
			return comp.LongName
		}
	}
	return ""
}

// country prefers the ISO code Places reports as the short name.
func (c components) country() string {
	comp, ok := c["country"]
	switch {
	case !ok:
		return ""
	case len(comp.ShortName) == 2:
		return strings.ToUpper(comp.ShortName)
	default:
		return comp.LongName
	}
}

func fromPlace(details *maps.PlaceDetails) (types.Address, error) {
	if details == nil {
		return types.Address{}, errors.New(errors.CodeDependency, "place details missing")
	}
	if details.Location.Latitude == 0 && details.Location.Longitude == 0 {
		return types.Address{}, errors.New(errors.CodeDependency, "place location missing")
	}
	idx := indexComponents(details.AddressComponents)

	line1 := strings.TrimSpace(strings.Join([]string{idx.long("street_number"), idx.long("route")}, " "))
	if line1 == "" {
		// fall back to the first segment of the formatted address
		first, _, _ := strings.Cut(details.FormattedAddress, ",")
		line1 = strings.TrimSpace(first)
	}
	if line1 == "" {
		return types.Address{}, errors.New(errors.CodeDependency, "address line1 missing")
	}
	city := idx.long(cityKinds...)
	if city == "" {
		return types.Address{}, errors.New(errors.CodeDependency, "city missing")
	}

	return types.Address{
		Line1:      line1,
		Line2:      nonEmpty(idx.long("subpremise")),
		City:       city,
		Region:     idx.long("administrative_area_level_1"),
		PostalCode: idx.long("postal_code"),
		Country:    idx.country(),
		Lat:        details.Location.Latitude,
		Lng:        details.Location.Longitude,
		PlaceID:    details.PlaceID,
	}, nil
}

package enums

import "fmt"

// OfferFilter selects the ranking mode applied to a request's offers.
type OfferFilter string

const (
	OfferFilterNone     OfferFilter = ""
	OfferFilterPrice    OfferFilter = "PRICE"
	OfferFilterDelivery OfferFilter = "DELIVERY"
)

// ParseOfferFilter accepts an empty value as no filter.
func ParseOfferFilter(value string) (OfferFilter, error) {
	switch OfferFilter(value) {
	case OfferFilterNone, OfferFilterPrice, OfferFilterDelivery:
		return OfferFilter(value), nil
	}
	return "", fmt.Errorf("invalid offer filter %q", value)
}

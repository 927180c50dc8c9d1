package enrich

import (
	"strings"

	"github.com/hotelbdd/agente-bdd/pkg/places"
)

// ParsedAddress is the flattened address extracted from Google Places
// address components, keyed the way the CRM properties are.
type ParsedAddress struct {
	Address string
	City    string
	State   string
	Zip     string
	Country string
	Plaza   string
}

func findComponent(components []places.AddressComponent, kind string) (long, short string) {
	for _, c := range components {
		for _, t := range c.Types {
			if t == kind {
				return c.LongText, c.ShortText
			}
		}
	}
	return "", ""
}

// ParseAddressComponents maps Places address components onto the CRM address
// fields. The street line combines street number and route; plaza falls back
// to the second-level administrative area when no locality is present.
func ParseAddressComponents(components []places.AddressComponent) ParsedAddress {
	var parsed ParsedAddress

	number, _ := findComponent(components, "street_number")
	route, _ := findComponent(components, "route")
	parsed.Address = strings.TrimSpace(number + " " + route)

	if locality, _ := findComponent(components, "locality"); locality != "" {
		parsed.City = locality
	} else if sublocality, _ := findComponent(components, "sublocality"); sublocality != "" {
		parsed.City = sublocality
	}

	parsed.State, _ = findComponent(components, "administrative_area_level_1")
	parsed.Zip, _ = findComponent(components, "postal_code")
	parsed.Country, _ = findComponent(components, "country")

	parsed.Plaza = parsed.City
	if parsed.Plaza == "" {
		parsed.Plaza, _ = findComponent(components, "administrative_area_level_2")
	}
	return parsed
}

// Package enrich holds the enrichment core: field merging against the CRM
// record, identity-conflict resolution, market-fit classification, and the
// concurrent lookup fan-out.
package enrich

import (
	"regexp"
	"strconv"
)

// Market-fit tiers by room count.
const (
	FitNone     = "No es FIT"
	FitHormiga  = "Hormiga"
	FitConejo   = "Conejo"
	FitElefante = "Elefante"
)

// ValidMarketFits is the closed set of tier labels accepted from any source.
var ValidMarketFits = map[string]bool{
	FitNone:     true,
	FitHormiga:  true,
	FitConejo:   true,
	FitElefante: true,
}

// Company types exempt from the <5 rooms cutoff.
var hostelTypes = map[string]bool{
	"Hostel":             true,
	"Bed and breakfasts": true,
}

// ValidTipoEmpresa is the closed set of company-type labels.
var ValidTipoEmpresa = map[string]bool{
	"Hotel":                 true,
	"Apart hotel":           true,
	"Hostel":                true,
	"Resort":                true,
	"Boutique hotel":        true,
	"Motel":                 true,
	"Bed and breakfasts":    true,
	"Campamento / Glamping": true,
	"Cadena hotelera":       true,
	"Agencia de viaje":      true,
	"Otro":                  true,
}

// Classify maps a room count to its market-fit tier:
// <5 rooms are out, 5-13 Hormiga, 14-27 Conejo, 28+ Elefante.
func Classify(rooms int) string {
	switch {
	case rooms < 5:
		return FitNone
	case rooms <= 13:
		return FitHormiga
	case rooms <= 27:
		return FitConejo
	default:
		return FitElefante
	}
}

// ClassifyWithType applies booking-presence validation and the Hostel/B&B
// exception on top of Classify. A hotel without a Booking.com listing is
// never a fit; a small Hostel or B&B still counts as Hormiga.
func ClassifyWithType(rooms *int, tipoDeEmpresa string, hasBooking bool) string {
	if !hasBooking {
		return FitNone
	}
	if rooms == nil {
		return FitNone
	}
	if *rooms < 5 && hostelTypes[tipoDeEmpresa] {
		return FitHormiga
	}
	return Classify(*rooms)
}

var firstIntRE = regexp.MustCompile(`\d+`)

// ParseRoomCount extracts the first integer from a free-form room count
// string ("24 habitaciones" → 24).
func ParseRoomCount(raw string) (int, bool) {
	m := firstIntRE.FindString(raw)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

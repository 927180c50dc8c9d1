// Package model holds the value types shared between the flows, the
// enrichment core, and the provider clients.
package model

// Lookup identifies one optional enrichment lookup.
type Lookup string

const (
	LookupWebsite    Lookup = "website"
	LookupReputation Lookup = "reputation"
	LookupBooking    Lookup = "booking"
	LookupRooms      Lookup = "rooms"
)

// EnrichmentOutcome is the per-source result of a parallel enrichment
// lookup. A failed lookup carries Error and a zero payload; it never aborts
// its siblings.
type EnrichmentOutcome struct {
	Lookup Lookup `json:"lookup"`
	Source string `json:"source"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`

	Web        *WebContact     `json:"web,omitempty"`
	Reputation *Reputation     `json:"reputation,omitempty"`
	Booking    *BookingListing `json:"booking,omitempty"`
	Rooms      string          `json:"rooms,omitempty"`
}

// WebContact holds contact data extracted from a hotel website.
type WebContact struct {
	Phones       []string `json:"phones,omitempty"`        // E.164, priority-ordered
	WhatsApp     string   `json:"whatsapp,omitempty"`      // E.164
	Emails       []string `json:"emails,omitempty"`        // preference-ranked
	InstagramURL string   `json:"instagram_url,omitempty"` // profile URL found on the site
	SourceURL    string   `json:"source_url,omitempty"`
}

// Reputation holds multi-platform review ratings for a hotel.
type Reputation struct {
	GoogleRating           *float64 `json:"google_rating,omitempty"` // /5
	GoogleReviewCount      *int     `json:"google_review_count,omitempty"`
	TripAdvisorRating      *float64 `json:"tripadvisor_rating,omitempty"` // /5
	TripAdvisorReviewCount *int     `json:"tripadvisor_review_count,omitempty"`
	BookingRating          *float64 `json:"booking_rating,omitempty"` // /10
	BookingReviewCount     *int     `json:"booking_review_count,omitempty"`
	Summary                string   `json:"summary,omitempty"`
}

// BookingListing holds data scraped or searched from a Booking.com listing.
type BookingListing struct {
	URL         string   `json:"url,omitempty"`
	Rating      *float64 `json:"rating,omitempty"` // 1-10 scale
	ReviewCount *int     `json:"review_count,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`
	HotelName   string   `json:"hotel_name,omitempty"` // name on Booking, may differ
}

// Empty reports whether the reputation lookup produced any usable data.
func (r *Reputation) Empty() bool {
	if r == nil {
		return true
	}
	return r.GoogleRating == nil && r.TripAdvisorRating == nil &&
		r.BookingRating == nil && r.Summary == ""
}

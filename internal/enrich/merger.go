package enrich

import (
	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/places"
)

// MergeInput collects everything the merger may write into a company record:
// the authoritative Places result plus the optional lookup payloads.
type MergeInput struct {
	Place         *places.Place
	Parsed        ParsedAddress
	Web           *model.WebContact
	Booking       *model.BookingListing
	Rooms         string
	TripAdvisorID string
}

// Merger computes the property updates for a company from freshly fetched
// enrichment data. Identity fields are always overwritten from the Places
// result; everything else only fills gaps in the existing record.
type Merger struct {
	updates map[string]string
	changes []model.FieldChange
}

// MergeFields returns the CRM property updates and the change log for a
// company. The update map contains only fields whose value actually changes.
func MergeFields(current hubspot.CompanyProperties, in MergeInput) (map[string]string, []model.FieldChange) {
	m := &Merger{updates: map[string]string{}}

	if in.Place != nil {
		// Identity fields track the authoritative source even when the
		// record already has a value.
		m.force("id_hotel", current.IDHotel, in.Place.ID)
		m.force("name", current.Name, in.Place.DisplayName.Text)
		m.force("city", current.City, in.Parsed.City)
		m.force("state", current.State, in.Parsed.State)
		m.force("plaza", current.Plaza, in.Parsed.Plaza)

		m.fill("address", current.Address, in.Parsed.Address)
		m.fill("zip", current.Zip, in.Parsed.Zip)
		m.fill("country", current.Country, in.Parsed.Country)
		m.fill("phone", current.Phone, in.Place.Phone())
		m.fill("website", current.Website, in.Place.WebsiteURI)
	}

	if in.Web != nil {
		if len(in.Web.Phones) > 0 {
			m.fill("phone", m.value("phone", current.Phone), in.Web.Phones[0])
		}
		m.fill("website", m.value("website", current.Website), in.Web.SourceURL)
	}

	if in.Booking != nil {
		m.fill("booking_url", current.BookingURL, in.Booking.URL)
	}

	m.fill("cantidad_de_habitaciones", current.CantidadDeHabitaciones, in.Rooms)
	m.fill("id_tripadvisor", current.IDTripAdvisor, in.TripAdvisorID)

	return m.updates, m.changes
}

// value returns the pending update for a field if one exists, the current
// record value otherwise. Keeps later fills from clobbering earlier ones.
func (m *Merger) value(field, current string) string {
	if v, ok := m.updates[field]; ok {
		return v
	}
	return current
}

func (m *Merger) force(field, old, next string) {
	if next == "" || next == old {
		return
	}
	m.set(field, old, next)
}

func (m *Merger) fill(field, old, next string) {
	if next == "" || old != "" {
		return
	}
	m.set(field, old, next)
}

func (m *Merger) set(field, old, next string) {
	m.updates[field] = next
	m.changes = append(m.changes, model.FieldChange{
		Field:    field,
		OldValue: old,
		NewValue: next,
	})
}

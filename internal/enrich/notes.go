package enrich

import (
	"fmt"
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// BuildEnrichmentNote renders the plain-text summary note attached to the
// company after a successful enrichment.
func BuildEnrichmentNote(companyName string, changes []model.FieldChange, outcomes []model.EnrichmentOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enrichment Summary - %s\n", companyName)

	if len(changes) > 0 {
		b.WriteString("\nCampos actualizados:\n")
		for _, change := range changes {
			if change.OldValue == "" {
				fmt.Fprintf(&b, "- %s: %s\n", change.Field, change.NewValue)
			} else {
				fmt.Fprintf(&b, "- %s: %s (antes: %s)\n", change.Field, change.NewValue, change.OldValue)
			}
		}
	} else {
		b.WriteString("\nSin cambios en los campos del registro.\n")
	}

	for _, outcome := range outcomes {
		if line := describeOutcome(outcome); line != "" {
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeOutcome(outcome model.EnrichmentOutcome) string {
	if !outcome.OK {
		return fmt.Sprintf("Búsqueda fallida (%s): %s", outcome.Lookup, outcome.Error)
	}

	switch outcome.Lookup {
	case model.LookupWebsite:
		if outcome.Web == nil {
			return ""
		}
		var parts []string
		if n := len(outcome.Web.Phones); n > 0 {
			parts = append(parts, fmt.Sprintf("%d teléfono(s)", n))
		}
		if n := len(outcome.Web.Emails); n > 0 {
			parts = append(parts, fmt.Sprintf("%d email(s)", n))
		}
		if outcome.Web.WhatsApp != "" {
			parts = append(parts, "WhatsApp "+outcome.Web.WhatsApp)
		}
		if outcome.Web.InstagramURL != "" {
			parts = append(parts, "Instagram "+outcome.Web.InstagramURL)
		}
		if len(parts) == 0 {
			return ""
		}
		return fmt.Sprintf("Sitio web (%s): %s", outcome.Source, strings.Join(parts, ", "))

	case model.LookupBooking:
		if outcome.Booking == nil || outcome.Booking.URL == "" {
			return ""
		}
		line := fmt.Sprintf("Booking.com (%s): %s", outcome.Source, outcome.Booking.URL)
		if outcome.Booking.Rating != nil {
			line += fmt.Sprintf(", rating %.1f/10", *outcome.Booking.Rating)
		}
		if outcome.Booking.ReviewCount != nil {
			line += fmt.Sprintf(" (%d reseñas)", *outcome.Booking.ReviewCount)
		}
		return line

	case model.LookupRooms:
		if outcome.Rooms == "" {
			return ""
		}
		return fmt.Sprintf("Habitaciones (%s): %s", outcome.Source, outcome.Rooms)

	case model.LookupReputation:
		if outcome.Reputation.Empty() {
			return ""
		}
		var parts []string
		if outcome.Reputation.GoogleRating != nil {
			parts = append(parts, ratingLine("Google", *outcome.Reputation.GoogleRating, 5, outcome.Reputation.GoogleReviewCount))
		}
		if outcome.Reputation.TripAdvisorRating != nil {
			parts = append(parts, ratingLine("TripAdvisor", *outcome.Reputation.TripAdvisorRating, 5, outcome.Reputation.TripAdvisorReviewCount))
		}
		if outcome.Reputation.BookingRating != nil {
			parts = append(parts, ratingLine("Booking", *outcome.Reputation.BookingRating, 10, outcome.Reputation.BookingReviewCount))
		}
		line := fmt.Sprintf("Reputación (%s): %s", outcome.Source, strings.Join(parts, ", "))
		if outcome.Reputation.Summary != "" {
			line += "\n" + outcome.Reputation.Summary
		}
		return line
	}
	return ""
}

func ratingLine(platform string, rating float64, scale int, reviews *int) string {
	line := fmt.Sprintf("%s %.1f/%d", platform, rating, scale)
	if reviews != nil {
		line += fmt.Sprintf(" (%d reseñas)", *reviews)
	}
	return line
}

// BuildErrorNote renders the note attached when an enrichment run fails
// before producing updates.
func BuildErrorNote(companyName, message string) string {
	return fmt.Sprintf("Enrichment Error - %s\n\n%s", companyName, message)
}

package call

import (
	"fmt"
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

var statusEmoji = map[string]string{
	"connected": "✅",
	"busy":      "☎️",
	"no_answer": "☎️",
	"failed":    "❌",
	"error":     "⚠️",
}

// BuildProspeccionNote renders the HTML audit note for an outbound call run:
// one line per attempt, then the extracted data and the transcript when the
// call connected.
func BuildProspeccionNote(companyName string, attempts []model.CallAttempt, extracted *model.ExtractedCallData, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Llamada de Prospección - %s</strong></p>", companyName)

	if len(attempts) > 0 {
		b.WriteString("<p><strong>Intentos:</strong></p><ul>")
		for _, attempt := range attempts {
			emoji := statusEmoji[attempt.Status]
			if emoji == "" {
				emoji = "⚠️"
			}
			fmt.Fprintf(&b, "<li>%s %s (%s) - intento %d: %s",
				emoji, attempt.PhoneNumber, FriendlySource(attempt.Source), attempt.Attempt, attempt.Status)
			if attempt.Error != "" {
				fmt.Fprintf(&b, " - %s", attempt.Error)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}

	if extracted != nil && extracted.HasData() {
		b.WriteString("<p><strong>Datos obtenidos:</strong></p><ul>")
		if extracted.DecisionMakerName != "" {
			fmt.Fprintf(&b, "<li>Contacto: %s</li>", extracted.DecisionMakerName)
		}
		if extracted.DecisionMakerPhone != "" {
			fmt.Fprintf(&b, "<li>Teléfono: %s</li>", extracted.DecisionMakerPhone)
		}
		if extracted.DecisionMakerEmail != "" {
			fmt.Fprintf(&b, "<li>Email: %s</li>", extracted.DecisionMakerEmail)
		}
		if extracted.NumRooms != "" {
			fmt.Fprintf(&b, "<li>Habitaciones: %s</li>", extracted.NumRooms)
		}
		if extracted.DateAndTime != "" {
			fmt.Fprintf(&b, "<li>Disponibilidad demo: %s</li>", extracted.DateAndTime)
		}
		b.WriteString("</ul>")
	}

	if transcript != "" {
		b.WriteString("<p><strong>Transcripción:</strong></p>")
		fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(transcript, "\n", "<br>"))
	}
	return b.String()
}

// BuildCallEngagement assembles the properties for the CRM call record of a
// finished conversation.
func BuildCallEngagement(companyName, toNumber string, extracted *model.ExtractedCallData, recordingURL string, durationMillis int64, timestamp string) map[string]string {
	var bodyParts []string
	if extracted != nil {
		if extracted.HotelName != "" {
			bodyParts = append(bodyParts, "Hotel: "+extracted.HotelName)
		}
		if extracted.NumRooms != "" {
			bodyParts = append(bodyParts, "Habitaciones: "+extracted.NumRooms)
		}
		if extracted.DecisionMakerName != "" {
			bodyParts = append(bodyParts, "Contacto: "+extracted.DecisionMakerName)
		}
		if extracted.DateAndTime != "" {
			bodyParts = append(bodyParts, "Disponibilidad demo: "+extracted.DateAndTime)
		}
	}

	properties := map[string]string{
		"hs_call_title":     "Llamada de Prospeccion - " + companyName,
		"hs_call_body":      strings.Join(bodyParts, ". "),
		"hs_call_status":    "COMPLETED",
		"hs_call_direction": "OUTBOUND",
		"hs_call_to_number": toNumber,
		"hs_timestamp":      timestamp,
	}
	if recordingURL != "" {
		properties["hs_call_recording_url"] = recordingURL
	}
	if durationMillis > 0 {
		properties["hs_call_duration"] = fmt.Sprintf("%d", durationMillis)
	}
	return properties
}

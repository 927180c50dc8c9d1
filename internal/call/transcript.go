package call

import (
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// FormatTranscript renders a conversation transcript as readable dialogue,
// repairing mojibake in each turn. Empty turns are dropped.
func FormatTranscript(transcript []model.TranscriptEntry) string {
	var lines []string
	for _, entry := range transcript {
		message := strings.TrimSpace(FixDoubleEncoding(entry.Message))
		if message == "" {
			continue
		}
		speaker := "Hotel"
		if entry.Role == "agent" {
			speaker = "Agente"
		}
		lines = append(lines, speaker+": "+message)
	}
	return strings.Join(lines, "\n")
}

// ExtractCallData pulls the structured prospección fields out of the call
// analysis, repairing mojibake in free-text values.
func ExtractCallData(analysis map[string]string) model.ExtractedCallData {
	get := func(key string) string {
		return strings.TrimSpace(FixDoubleEncoding(analysis[key]))
	}
	return model.ExtractedCallData{
		HotelName:          get("hotel_name"),
		NumRooms:           get("num_rooms"),
		DecisionMakerName:  get("decision_maker_name"),
		DecisionMakerPhone: get("decision_maker_phone"),
		DecisionMakerEmail: get("decision_maker_email"),
		DateAndTime:        get("date_and_time"),
	}
}

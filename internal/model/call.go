package model

// PhoneCandidate is one deduplicated phone number to try on an outbound
// call, with its provenance for audit notes.
type PhoneCandidate struct {
	Number string `json:"number"` // E.164
	Source string `json:"source"` // "company" | "contact:{id}:{phone|mobile}"
}

// CallAttempt is one entry in the outbound-call audit log.
type CallAttempt struct {
	PhoneNumber    string `json:"phone_number"`
	Source         string `json:"source"`
	Attempt        int    `json:"attempt"` // 1-based attempt index for this number
	ConversationID string `json:"conversation_id,omitempty"`
	Status         string `json:"status"` // "connected" | "busy" | "failed" | "error"
	Error          string `json:"error,omitempty"`
}

// TranscriptEntry is a single turn of a finished conversation.
type TranscriptEntry struct {
	Role    string `json:"role"` // "agent" | "user"
	Message string `json:"message"`
}

// CallResult is the usable outcome of the first connected call attempt.
type CallResult struct {
	ConversationID string            `json:"conversation_id"`
	Transcript     []TranscriptEntry `json:"transcript"`
	Analysis       map[string]string `json:"analysis,omitempty"` // collected key/value pairs
	DurationMillis int64             `json:"duration_millis,omitempty"`
}

// ExtractedCallData holds the structured fields pulled from a call analysis.
type ExtractedCallData struct {
	HotelName          string `json:"hotel_name,omitempty"`
	NumRooms           string `json:"num_rooms,omitempty"`
	DecisionMakerName  string `json:"decision_maker_name,omitempty"`
	DecisionMakerPhone string `json:"decision_maker_phone,omitempty"`
	DecisionMakerEmail string `json:"decision_maker_email,omitempty"`
	DateAndTime        string `json:"date_and_time,omitempty"`
}

// HasData reports whether any decision-maker field was captured.
func (e ExtractedCallData) HasData() bool {
	return e.DecisionMakerName != "" || e.DecisionMakerPhone != "" || e.DecisionMakerEmail != ""
}

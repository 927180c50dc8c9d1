package perplexity

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// jsonObjectRE finds a flat JSON object when the model wraps it in prose.
var jsonObjectRE = regexp.MustCompile(`\{[^{}]*\}`)

// extractJSONObject parses content as a JSON object, tolerating surrounding
// text and markdown fences.
func extractJSONObject(content string) map[string]any {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}

	if m := jsonObjectRE.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), &parsed); err == nil {
			return parsed
		}
	}
	return nil
}

func parseBookingListing(content string) *model.BookingListing {
	listing := &model.BookingListing{}
	parsed := extractJSONObject(content)
	if parsed == nil {
		return listing
	}

	if url, ok := parsed["url"].(string); ok && strings.Contains(strings.ToLower(url), "booking.com") {
		listing.URL = url
	}
	listing.Rating = floatField(parsed, "rating")
	listing.ReviewCount = intField(parsed, "review_count")
	if name, ok := parsed["hotel_name"].(string); ok {
		listing.HotelName = name
	}
	return listing
}

func parseReputation(content string) *model.Reputation {
	reputation := &model.Reputation{}
	parsed := extractJSONObject(content)
	if parsed == nil {
		return reputation
	}

	reputation.GoogleRating = floatField(parsed, "google_rating")
	reputation.GoogleReviewCount = intField(parsed, "google_review_count")
	reputation.TripAdvisorRating = floatField(parsed, "tripadvisor_rating")
	reputation.TripAdvisorReviewCount = intField(parsed, "tripadvisor_review_count")
	reputation.BookingRating = floatField(parsed, "booking_rating")
	reputation.BookingReviewCount = intField(parsed, "booking_review_count")
	if summary, ok := parsed["summary"].(string); ok {
		reputation.Summary = summary
	}
	return reputation
}

// floatField reads a numeric field that may arrive as a number or string.
func floatField(parsed map[string]any, key string) *float64 {
	switch v := parsed[key].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
			return &f
		}
	}
	return nil
}

func intField(parsed map[string]any, key string) *int {
	switch v := parsed[key].(type) {
	case float64:
		n := int(v)
		return &n
	case string:
		if n, err := strconv.Atoi(strings.ReplaceAll(v, ",", "")); err == nil {
			return &n
		}
	}
	return nil
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

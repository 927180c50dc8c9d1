package tavily

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// Rating and review-count patterns keyed to each platform's name appearing
// near the number. Booking ratings are on a /10 scale.
var (
	googleRatingRE  = regexp.MustCompile(`(?i)google.{0,80}?(\d[.,]\d)\s*/?\s*5`)
	taRatingRE      = regexp.MustCompile(`(?i)tripadvisor.{0,80}?(\d[.,]\d)\s*/?\s*5`)
	bookingRatingRE = regexp.MustCompile(`(?i)booking.{0,80}?(\d[.,]\d)\s*/?\s*10`)

	googleReviewsRE  = regexp.MustCompile(`(?i)google.{0,120}?(\d[\d,. ]*\d)\s*(?:review|rese)`)
	taReviewsRE      = regexp.MustCompile(`(?i)tripadvisor.{0,120}?(\d[\d,. ]*\d)\s*(?:review|rese)`)
	bookingReviewsRE = regexp.MustCompile(`(?i)booking.{0,120}?(\d[\d,. ]*\d)\s*(?:review|rese)`)

	ratingOutOfTenRE = regexp.MustCompile(`(\d[.,]\d)\s*/\s*10`)
	labeledRatingRE  = regexp.MustCompile(`(?i)(?:rating|puntuaci|calificaci|score)[^\d]*(\d[.,]\d)`)
	reviewCountRE    = regexp.MustCompile(`(?i)(\d[\d,. ]+)\s*(?:review|rese|opinion|comentario)`)
)

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(s string) *int {
	cleaned := strings.NewReplacer(",", "", ".", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}

// parseBookingRating finds a /10 rating, falling back to a labeled rating.
func parseBookingRating(text string) *float64 {
	if m := ratingOutOfTenRE.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1])
	}
	if m := labeledRatingRE.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1])
	}
	return nil
}

func parseReviewCount(text string) *int {
	if m := reviewCountRE.FindStringSubmatch(text); m != nil {
		return parseInt(m[1])
	}
	return nil
}

// parseReputation pulls per-platform ratings and counts out of mixed review
// search text.
func parseReputation(text string) *model.Reputation {
	reputation := &model.Reputation{}

	if m := googleRatingRE.FindStringSubmatch(text); m != nil {
		reputation.GoogleRating = parseFloat(m[1])
	}
	if m := googleReviewsRE.FindStringSubmatch(text); m != nil {
		reputation.GoogleReviewCount = parseInt(m[1])
	}
	if m := taRatingRE.FindStringSubmatch(text); m != nil {
		reputation.TripAdvisorRating = parseFloat(m[1])
	}
	if m := taReviewsRE.FindStringSubmatch(text); m != nil {
		reputation.TripAdvisorReviewCount = parseInt(m[1])
	}
	if m := bookingRatingRE.FindStringSubmatch(text); m != nil {
		reputation.BookingRating = parseFloat(m[1])
	}
	if m := bookingReviewsRE.FindStringSubmatch(text); m != nil {
		reputation.BookingReviewCount = parseInt(m[1])
	}
	return reputation
}

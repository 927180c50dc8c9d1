package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReputation(t *testing.T) {
	text := "En Google tiene 4,5/5 con 320 reviews. TripAdvisor: 4.0/5 (85 reseñas). " +
		"Booking.com le da 8.7/10 basado en 1,204 reviews."

	reputation := parseReputation(text)
	require.NotNil(t, reputation.GoogleRating)
	assert.InDelta(t, 4.5, *reputation.GoogleRating, 0.001)
	require.NotNil(t, reputation.GoogleReviewCount)
	assert.Equal(t, 320, *reputation.GoogleReviewCount)
	require.NotNil(t, reputation.TripAdvisorRating)
	assert.InDelta(t, 4.0, *reputation.TripAdvisorRating, 0.001)
	require.NotNil(t, reputation.BookingRating)
	assert.InDelta(t, 8.7, *reputation.BookingRating, 0.001)
	require.NotNil(t, reputation.BookingReviewCount)
	assert.Equal(t, 1204, *reputation.BookingReviewCount)
}

func TestParseReputation_NoData(t *testing.T) {
	reputation := parseReputation("un hotel agradable en el centro de la ciudad")
	assert.True(t, reputation.Empty())
}

func TestSearchBookingData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))

		var payload searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload.Query, "Hotel Sol")
		assert.Equal(t, []string{"booking.com"}, payload.IncludeDomains)

		_, _ = w.Write([]byte(`{"results": [
			{"title": "Hotel Sol | Booking.com", "url": "https://www.booking.com/hotel/mx/sol.html",
			 "content": "Puntuación 8.7/10 según 1204 reviews de huéspedes"},
			{"title": "otro", "url": "https://www.booking.com/x", "content": ""}
		]}`))
	}))
	defer server.Close()

	client := NewClient("tvly-key", WithBaseURL(server.URL))
	listing, err := client.SearchBookingData(context.Background(), "Hotel Sol", "Cancun", "Mexico")
	require.NoError(t, err)
	assert.Equal(t, "https://www.booking.com/hotel/mx/sol.html", listing.URL)
	require.NotNil(t, listing.Rating)
	assert.InDelta(t, 8.7, *listing.Rating, 0.001)
	require.NotNil(t, listing.ReviewCount)
	assert.Equal(t, 1204, *listing.ReviewCount)
	assert.Equal(t, "Hotel Sol", listing.HotelName)
}

func TestSearchRoomCount_PrefersAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.True(t, payload.IncludeAnswer)
		_, _ = w.Write([]byte(`{
			"answer": "El Hotel Sol cuenta con 24 habitaciones.",
			"results": [{"content": "un resort de 500 rooms en la misma zona"}]
		}`))
	}))
	defer server.Close()

	client := NewClient("tvly-key", WithBaseURL(server.URL))
	rooms, err := client.SearchRoomCount(context.Background(), "Hotel Sol", "Cancun", "Mexico")
	require.NoError(t, err)
	assert.Equal(t, "24", rooms)
}

func TestSearchRoomCount_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer": "", "results": [{"content": "hotel boutique"}]}`))
	}))
	defer server.Close()

	client := NewClient("tvly-key", WithBaseURL(server.URL))
	rooms, err := client.SearchRoomCount(context.Background(), "Hotel Sol", "", "")
	require.NoError(t, err)
	assert.Equal(t, "", rooms)
}

func TestExtractWebsite_ContactPageFallback(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract", r.URL.Path)
		var payload extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.URLs, 1)

		calls++
		if calls == 1 {
			assert.Equal(t, "https://hotelsol.mx", payload.URLs[0])
			_, _ = w.Write([]byte(`{"results": [{"raw_content": "Hotel Sol. Tel +52 998 123 4567. https://instagram.com/hotelsol"}]}`))
			return
		}
		assert.Equal(t, "https://hotelsol.mx/contacto", payload.URLs[0])
		_, _ = w.Write([]byte(`{"results": [{"raw_content": "reservas@hotelsol.mx"}]}`))
	}))
	defer server.Close()

	client := NewClient("tvly-key", WithBaseURL(server.URL))
	contact, err := client.ExtractWebsite(context.Background(), "https://hotelsol.mx")
	require.NoError(t, err)
	assert.Equal(t, []string{"+529981234567"}, contact.Phones)
	assert.Equal(t, []string{"reservas@hotelsol.mx"}, contact.Emails)
	assert.Equal(t, "https://instagram.com/hotelsol", contact.InstagramURL)
	assert.Equal(t, 2, calls)
}

func TestSearchReputation_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer": "", "results": []}`))
	}))
	defer server.Close()

	client := NewClient("tvly-key", WithBaseURL(server.URL))
	reputation, err := client.SearchReputation(context.Background(), "Hotel Sol", "", "")
	require.NoError(t, err)
	assert.Nil(t, reputation)
}

package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery(t *testing.T) {
	assert.Equal(t, "Hotel Sol, Cancun, Mexico", BuildSearchQuery("Hotel Sol", "Cancun", "Mexico"))
	assert.Equal(t, "Hotel Sol", BuildSearchQuery("Hotel Sol", "", ""))
	assert.Equal(t, "Hotel Sol, Mexico", BuildSearchQuery("Hotel Sol", "  ", "Mexico"))
	assert.Equal(t, "", BuildSearchQuery("", "", ""))
}

func TestTextSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/places:searchText", r.URL.Path)
		require.Equal(t, "key-123", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.addressComponents")

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Hotel Sol, Cancun, Mexico", payload["textQuery"])

		_, _ = w.Write([]byte(`{"places": [{
			"id": "ChIJabc123",
			"displayName": {"text": "Hotel Sol"},
			"formattedAddress": "Av. Kukulcan 10, Cancun",
			"internationalPhoneNumber": "+52 998 123 4567",
			"websiteUri": "https://hotelsol.mx",
			"location": {"latitude": 21.16, "longitude": -86.85},
			"addressComponents": [
				{"longText": "Cancun", "shortText": "Cancun", "types": ["locality"]},
				{"longText": "Quintana Roo", "shortText": "Q.R.", "types": ["administrative_area_level_1"]}
			]
		}]}`))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	place, err := client.TextSearch(context.Background(), "Hotel Sol, Cancun, Mexico")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "ChIJabc123", place.ID)
	assert.Equal(t, "Hotel Sol", place.DisplayName.Text)
	assert.Equal(t, "+52 998 123 4567", place.Phone())
	require.NotNil(t, place.Location)
	assert.InDelta(t, 21.16, place.Location.Latitude, 0.001)
}

func TestTextSearch_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	place, err := client.TextSearch(context.Background(), "Nonexistent Hotel")
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestGetPlaceDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/places/ChIJabc123", r.URL.Path)
		assert.NotContains(t, r.Header.Get("X-Goog-FieldMask"), "places.")
		_, _ = w.Write([]byte(`{"id": "ChIJabc123", "displayName": {"text": "Hotel Sol"}, "nationalPhoneNumber": "998 123 4567"}`))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	place, err := client.GetPlaceDetails(context.Background(), "ChIJabc123")
	require.NoError(t, err)
	assert.Equal(t, "Hotel Sol", place.DisplayName.Text)
	assert.Equal(t, "998 123 4567", place.Phone())
}

func TestGetPlaceDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"message": "not found"}}`))
	}))
	defer server.Close()

	client := NewClient("key-123", WithBaseURL(server.URL))
	_, err := client.GetPlaceDetails(context.Background(), "ChIJmissing")
	assert.Error(t, err)
}

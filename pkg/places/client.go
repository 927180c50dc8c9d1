// Package places is a Google Places API (New) client used as the
// authoritative source for hotel identity and address data.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

const searchFieldMask = "places.id," +
	"places.displayName," +
	"places.formattedAddress," +
	"places.nationalPhoneNumber," +
	"places.internationalPhoneNumber," +
	"places.websiteUri," +
	"places.location," +
	"places.addressComponents"

// detailsFieldMask is the per-place variant (no "places." prefix).
var detailsFieldMask = strings.ReplaceAll(searchFieldMask, "places.", "")

// Client performs Google Places operations.
type Client interface {
	TextSearch(ctx context.Context, query string) (*Place, error)
	GetPlaceDetails(ctx context.Context, placeID string) (*Place, error)
}

// AddressComponent is one structured component of a place address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is a place returned by search or details.
type Place struct {
	ID                       string             `json:"id"`
	DisplayName              DisplayName        `json:"displayName"`
	FormattedAddress         string             `json:"formattedAddress"`
	NationalPhoneNumber      string             `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string             `json:"internationalPhoneNumber"`
	WebsiteURI               string             `json:"websiteUri"`
	Location                 *LatLng            `json:"location,omitempty"`
	AddressComponents        []AddressComponent `json:"addressComponents"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// Phone returns the international phone number, falling back to national.
func (p *Place) Phone() string {
	if p.InternationalPhoneNumber != "" {
		return p.InternationalPhoneNumber
	}
	return p.NationalPhoneNumber
}

// BuildSearchQuery joins name, city, and country into a text search query,
// skipping empty parts.
func BuildSearchQuery(name, city, country string) string {
	var parts []string
	for _, p := range []string{name, city, country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Google Places client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
}

// TextSearch returns the top match for the query, or nil when there are no
// results.
func (c *httpClient) TextSearch(ctx context.Context, query string) (*Place, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "places: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", searchFieldMask)
		return c.send(req)
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Places []Place `json:"places"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}
	if len(result.Places) == 0 {
		return nil, nil
	}
	return &result.Places[0], nil
}

// GetPlaceDetails fetches a place by its id.
func (c *httpClient) GetPlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+placeID, nil)
		if err != nil {
			return nil, eris.Wrap(err, "places: create request")
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", detailsFieldMask)
		return c.send(req)
	})
	if err != nil {
		return nil, err
	}

	var place Place
	if err := json.Unmarshal(respBody, &place); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal place")
	}
	return &place, nil
}

func (c *httpClient) send(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}
	return respBody, nil
}

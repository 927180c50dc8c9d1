// Package tripadvisor is a TripAdvisor Content API client used to enrich
// hotels with ratings and ranking data.
package tripadvisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

const defaultBaseURL = "https://api.content.tripadvisor.com/api/v1"

// Client performs TripAdvisor Content API operations.
type Client interface {
	Search(ctx context.Context, query, latLong string) (string, error)
	GetDetails(ctx context.Context, locationID string) (*Location, error)
	SearchAndGetDetails(ctx context.Context, query, latLong string) (*Location, error)
}

// Location is a TripAdvisor location details payload.
type Location struct {
	LocationID  string           `json:"location_id"`
	Name        string           `json:"name"`
	Rating      string           `json:"rating"`
	NumReviews  string           `json:"num_reviews"`
	RankingData map[string]any   `json:"ranking_data"`
	PriceLevel  string           `json:"price_level"`
	Category    map[string]any   `json:"category"`
	Subcategory []map[string]any `json:"subcategory"`
	WebURL      string           `json:"web_url"`
}

// RankingString returns the human-readable ranking line, if present.
func (l *Location) RankingString() string {
	if l.RankingData == nil {
		return ""
	}
	s, _ := l.RankingData["ranking_string"].(string)
	return s
}

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// CleanName normalizes a company name for location search: parenthetical
// qualifiers are dropped and whitespace collapsed.
func CleanName(name string) string {
	cleaned := parenthetical.ReplaceAllString(name, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
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

// NewClient creates a TripAdvisor client.
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

// Search returns the location_id of the best match for the query, or "" when
// there are no results. latLong ("lat,long") biases the search when set.
func (c *httpClient) Search(ctx context.Context, query, latLong string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("searchQuery", query)
	params.Set("category", "hotels")
	params.Set("language", "es")
	if latLong != "" {
		params.Set("latLong", latLong)
	}

	respBody, err := c.get(ctx, "/location/search?"+params.Encode())
	if err != nil {
		return "", err
	}

	var result struct {
		Data []struct {
			LocationID string `json:"location_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "tripadvisor: unmarshal search response")
	}
	if len(result.Data) == 0 {
		return "", nil
	}
	return result.Data[0].LocationID, nil
}

// GetDetails fetches location details by id.
func (c *httpClient) GetDetails(ctx context.Context, locationID string) (*Location, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("language", "es")

	respBody, err := c.get(ctx, "/location/"+locationID+"/details?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var location Location
	if err := json.Unmarshal(respBody, &location); err != nil {
		return nil, eris.Wrap(err, "tripadvisor: unmarshal details")
	}
	return &location, nil
}

// SearchAndGetDetails searches and resolves the top match to full details,
// returning nil when nothing matches.
func (c *httpClient) SearchAndGetDetails(ctx context.Context, query, latLong string) (*Location, error) {
	locationID, err := c.Search(ctx, query, latLong)
	if err != nil {
		return nil, err
	}
	if locationID == "" {
		return nil, nil
	}
	return c.GetDetails(ctx, locationID)
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, eris.Wrap(err, "tripadvisor: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "tripadvisor: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "tripadvisor: read response")
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := eris.Errorf("tripadvisor: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return nil, apiErr
		}
		return respBody, nil
	})
}

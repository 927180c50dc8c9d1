// Package tavily is a Tavily Search/Extract API client. It serves as the
// primary provider for the optional enrichment lookups: website contact
// extraction, Booking.com listing search, room count, and reputation.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/internal/resilience"
	"github.com/hotelbdd/agente-bdd/pkg/webscrape"
)

const defaultBaseURL = "https://api.tavily.com"

// Client performs Tavily operations.
type Client interface {
	ExtractWebsite(ctx context.Context, siteURL string) (*model.WebContact, error)
	SearchBookingData(ctx context.Context, hotelName, city, country string) (*model.BookingListing, error)
	SearchRoomCount(ctx context.Context, hotelName, city, country string) (string, error)
	SearchReputation(ctx context.Context, hotelName, city, country string) (*model.Reputation, error)
	SearchHotelesData(ctx context.Context, hotelName, city, country string) (string, error)
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

// NewClient creates a Tavily client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeAnswer  bool     `json:"include_answer,omitempty"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

func (r *searchResponse) allContent() string {
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, res.Content)
	}
	return strings.Join(parts, " ")
}

type extractRequest struct {
	URLs []string `json:"urls"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

func (r *extractResponse) content() string {
	if len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].RawContent
}

// Paths probed when the landing page yields no email.
var contactPaths = []string{"/contacto", "/contact"}

// ExtractWebsite extracts phones, emails, WhatsApp, and an Instagram profile
// from the hotel website. When the landing page yields no email, common
// contact pages are probed too.
func (c *httpClient) ExtractWebsite(ctx context.Context, siteURL string) (*model.WebContact, error) {
	content, err := c.extract(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	contact := &model.WebContact{
		Phones:       webscrape.ExtractPhones(content),
		WhatsApp:     webscrape.ExtractWhatsApp(content),
		Emails:       webscrape.ExtractEmails(content),
		InstagramURL: webscrape.ExtractInstagramURL(content),
		SourceURL:    siteURL,
	}

	if len(contact.Emails) == 0 {
		base := strings.TrimSuffix(siteURL, "/")
		for _, path := range contactPaths {
			contactContent, err := c.extract(ctx, base+path)
			if err != nil {
				zap.L().Debug("tavily extract failed for contact page",
					zap.String("url", base+path),
					zap.Error(err),
				)
				continue
			}
			contact.Emails = webscrape.ExtractEmails(contactContent)
			if len(contact.Phones) == 0 {
				contact.Phones = webscrape.ExtractPhones(contactContent)
			}
			if contact.WhatsApp == "" {
				contact.WhatsApp = webscrape.ExtractWhatsApp(contactContent)
			}
			if len(contact.Emails) > 0 {
				break
			}
		}
	}
	return contact, nil
}

// SearchBookingData finds the hotel's Booking.com listing and pulls rating
// and review data out of the search snippets.
func (c *httpClient) SearchBookingData(ctx context.Context, hotelName, city, country string) (*model.BookingListing, error) {
	query := strings.TrimSpace(hotelName + " " + joinLocation(city, country) + " booking.com")

	resp, err := c.search(ctx, searchRequest{
		Query:          query,
		IncludeDomains: []string{"booking.com"},
		MaxResults:     3,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &model.BookingListing{}, nil
	}

	listing := &model.BookingListing{}
	first := resp.Results[0]
	if strings.Contains(strings.ToLower(first.URL), "booking.com") {
		listing.URL = first.URL
	}

	content := resp.allContent()
	if rating := parseBookingRating(content); rating != nil {
		listing.Rating = rating
	}
	if count := parseReviewCount(content); count != nil {
		listing.ReviewCount = count
	}
	if first.Title != "" {
		listing.HotelName = cleanTitle(first.Title)
	}
	return listing, nil
}

// SearchRoomCount searches for the hotel's room count, preferring the LLM
// answer over snippet matches. Returns "" when nothing is found.
func (c *httpClient) SearchRoomCount(ctx context.Context, hotelName, city, country string) (string, error) {
	query := strings.TrimSpace(`"` + hotelName + `" ` + joinLocation(city, country) + " habitaciones rooms cantidad")

	resp, err := c.search(ctx, searchRequest{
		Query:         query,
		MaxResults:    5,
		IncludeAnswer: true,
	})
	if err != nil {
		return "", err
	}

	if rooms := webscrape.ExtractRoomCount(resp.Answer); rooms != "" {
		return rooms, nil
	}
	for _, r := range resp.Results {
		if rooms := webscrape.ExtractRoomCount(r.Content); rooms != "" {
			return rooms, nil
		}
	}
	return "", nil
}

// SearchReputation pulls multi-platform ratings from review search snippets.
// Returns nil when no platform yields data.
func (c *httpClient) SearchReputation(ctx context.Context, hotelName, city, country string) (*model.Reputation, error) {
	query := strings.TrimSpace(`"` + hotelName + `" ` + joinLocation(city, country) + " reviews rating opiniones")

	resp, err := c.search(ctx, searchRequest{
		Query:         query,
		MaxResults:    5,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, err
	}

	reputation := parseReputation(resp.Answer + " " + resp.allContent())
	if resp.Answer != "" {
		reputation.Summary = truncate(resp.Answer, 500)
	}
	if reputation.Empty() {
		return nil, nil
	}
	return reputation, nil
}

// SearchHotelesData returns combined hoteles.com search snippets about the
// hotel for LLM context, or "" when nothing matched.
func (c *httpClient) SearchHotelesData(ctx context.Context, hotelName, city, country string) (string, error) {
	query := strings.TrimSpace(hotelName + " " + joinLocation(city, country) + " hoteles.com")

	resp, err := c.search(ctx, searchRequest{
		Query:          query,
		IncludeDomains: []string{"hoteles.com"},
		MaxResults:     3,
		IncludeAnswer:  true,
	})
	if err != nil {
		return "", err
	}

	var parts []string
	if resp.Answer != "" {
		parts = append(parts, resp.Answer)
	}
	for _, r := range resp.Results {
		if r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (c *httpClient) search(ctx context.Context, payload searchRequest) (*searchResponse, error) {
	respBody, err := c.post(ctx, "/search", payload)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, eris.Wrap(err, "tavily: unmarshal search response")
	}
	return &resp, nil
}

func (c *httpClient) extract(ctx context.Context, pageURL string) (string, error) {
	respBody, err := c.post(ctx, "/extract", extractRequest{URLs: []string{pageURL}})
	if err != nil {
		return "", err
	}
	var resp extractResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", eris.Wrap(err, "tavily: unmarshal extract response")
	}
	return resp.content(), nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "tavily: marshal request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "tavily: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "tavily: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "tavily: read response")
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := eris.Errorf("tavily: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return nil, apiErr
		}
		return respBody, nil
	})
}

func joinLocation(city, country string) string {
	var parts []string
	for _, p := range []string{city, country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func cleanTitle(title string) string {
	name, _, _ := strings.Cut(title, "|")
	name, _, _ = strings.Cut(name, "-")
	return strings.TrimSpace(name)
}

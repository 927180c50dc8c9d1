// Package perplexity is a Perplexity chat-completions client used as the
// fallback provider for Booking.com listing, reputation, and room-count
// lookups.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar-pro"
)

// Client answers hotel data questions through Perplexity search completions.
type Client interface {
	SearchBookingData(ctx context.Context, hotelName, city, country string) (*model.BookingListing, error)
	SearchRoomCount(ctx context.Context, hotelName, city, country string) (string, error)
	SearchReputation(ctx context.Context, hotelName, city, country string) (*model.Reputation, error)
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(m string) Option {
	return func(c *httpClient) {
		c.model = m
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
	model   string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Perplexity client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
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

const systemPrompt = "You are a hotel data extraction assistant. " +
	"Return ONLY valid JSON, no markdown fences, no explanation."

// SearchBookingData asks for the hotel's Booking.com listing.
func (c *httpClient) SearchBookingData(ctx context.Context, hotelName, city, country string) (*model.BookingListing, error) {
	prompt := `Find the Booking.com listing for the hotel "` + hotelName + `"` + locationClause(city, country) + `. ` +
		`Return a JSON object with exactly these fields: ` +
		`"url" (the full Booking.com URL or null), ` +
		`"rating" (number out of 10 or null), ` +
		`"review_count" (integer or null), ` +
		`"hotel_name" (name as listed on Booking.com or null). ` +
		`If you cannot find a Booking.com listing, return all nulls.`

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseBookingListing(content), nil
}

// SearchRoomCount asks for the hotel's room count. Returns "" when unknown.
func (c *httpClient) SearchRoomCount(ctx context.Context, hotelName, city, country string) (string, error) {
	prompt := `How many rooms does the hotel "` + hotelName + `"` + locationClause(city, country) + ` have? ` +
		`Return a JSON object with exactly one field: "rooms" (the number of rooms as a string, or null if unknown).`

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	parsed := extractJSONObject(content)
	if parsed == nil {
		return "", nil
	}
	rooms, _ := parsed["rooms"].(string)
	if rooms == "" {
		if n, ok := parsed["rooms"].(float64); ok && n > 0 {
			return formatInt(int(n)), nil
		}
	}
	return rooms, nil
}

// SearchReputation asks for the hotel's ratings on the major review
// platforms. Returns nil when nothing is known.
func (c *httpClient) SearchReputation(ctx context.Context, hotelName, city, country string) (*model.Reputation, error) {
	prompt := `What are the review ratings for the hotel "` + hotelName + `"` + locationClause(city, country) + `? ` +
		`Return a JSON object with exactly these fields: ` +
		`"google_rating" (number out of 5 or null), "google_review_count" (integer or null), ` +
		`"tripadvisor_rating" (number out of 5 or null), "tripadvisor_review_count" (integer or null), ` +
		`"booking_rating" (number out of 10 or null), "booking_review_count" (integer or null), ` +
		`"summary" (one short sentence in Spanish about overall guest sentiment, or null).`

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	reputation := parseReputation(content)
	if reputation.Empty() {
		return nil, nil
	}
	return reputation, nil
}

func (c *httpClient) complete(ctx context.Context, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "perplexity: marshal request")
	}

	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "perplexity: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "perplexity: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "perplexity: read response")
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := eris.Errorf("perplexity: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return nil, apiErr
		}
		return respBody, nil
	})
	if err != nil {
		return "", err
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", eris.Wrap(err, "perplexity: unmarshal response")
	}
	if len(chat.Choices) == 0 {
		return "", eris.New("perplexity: response has no choices")
	}
	return chat.Choices[0].Message.Content, nil
}

func locationClause(city, country string) string {
	var parts []string
	for _, p := range []string{city, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := " in " + parts[0]
	if len(parts) == 2 {
		out += ", " + parts[1]
	}
	return out
}

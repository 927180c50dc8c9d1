// Package anthropic wraps the Anthropic SDK for the lead-qualification
// analysis step: one system+user prompt in, one parsed JSON object out.
package anthropic

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const defaultModel = "claude-sonnet-4-20250514"

// Client performs structured analysis through the Anthropic API.
type Client interface {
	Analyze(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error)
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithBaseURL overrides the API base URL, for tests.
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.baseURL = url
	}
}

type sdkClient struct {
	client  sdk.Client
	model   string
	baseURL string
}

// NewClient creates an Anthropic client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{model: defaultModel}
	for _, o := range opts {
		o(c)
	}

	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(c.baseURL))
	}
	c.client = sdk.NewClient(sdkOpts...)
	return c
}

// Analyze sends the prompts and parses the reply as a JSON object. A reply
// that contains no parseable object yields a nil map and no error, since the
// model occasionally answers in prose.
func (c *sdkClient) Analyze(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 1024,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ParseJSONObject(text.String()), nil
}

var (
	fenceRE      = regexp.MustCompile("```(?:json)?\\s*")
	jsonObjectRE = regexp.MustCompile(`\{[^{}]*\}`)
)

// ParseJSONObject extracts a JSON object from model output, stripping
// markdown fences and tolerating surrounding prose. Returns nil when no
// object can be parsed.
func ParseJSONObject(text string) map[string]any {
	stripped := fenceRE.ReplaceAllString(text, "")
	stripped = strings.TrimRight(strings.TrimSpace(stripped), "`")

	var parsed map[string]any
	if err := json.Unmarshal([]byte(stripped), &parsed); err == nil {
		return parsed
	}

	if m := jsonObjectRE.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &parsed); err == nil {
			return parsed
		}
	}
	return nil
}

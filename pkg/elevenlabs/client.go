// Package elevenlabs is an ElevenLabs Conversational AI client for placing
// SIP outbound calls and retrieving conversation results.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/resilience"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Client performs ElevenLabs Conversational AI operations.
type Client interface {
	StartOutboundCall(ctx context.Context, toNumber string, dynamicVariables map[string]string) (*OutboundCall, error)
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	GetConversationAudio(ctx context.Context, conversationID string) ([]byte, error)
}

// OutboundCall is the response to an outbound call start.
type OutboundCall struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	SIPCallID      string `json:"sip_call_id"`
}

// TranscriptEntry is one turn of a conversation.
type TranscriptEntry struct {
	Role    string `json:"role"` // "agent" | "user"
	Message string `json:"message"`
}

// Analysis holds the agent's post-call data collection.
type Analysis struct {
	ExtractedData         map[string]any `json:"extracted_data"`
	DataCollectionResults map[string]any `json:"data_collection_results"`
}

// Conversation is the state of one conversation.
// Status progresses initiated → in-progress → processing → done | failed.
type Conversation struct {
	ConversationID string            `json:"conversation_id"`
	Status         string            `json:"status"`
	Transcript     []TranscriptEntry `json:"transcript"`
	Analysis       *Analysis         `json:"analysis"`
	Metadata       map[string]any    `json:"metadata"`
}

// HasAnalysisData reports whether the post-call analysis is populated.
func (c *Conversation) HasAnalysisData() bool {
	return c.Analysis != nil &&
		(len(c.Analysis.DataCollectionResults) > 0 || len(c.Analysis.ExtractedData) > 0)
}

// DurationMillis derives the call duration from conversation metadata, or 0.
func (c *Conversation) DurationMillis() int64 {
	if c.Metadata == nil {
		return 0
	}
	start, okStart := c.Metadata["start_time_unix_secs"].(float64)
	end, okEnd := c.Metadata["end_time_unix_secs"].(float64)
	if !okStart || !okEnd {
		return 0
	}
	return int64((end - start) * 1000)
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
	apiKey        string
	agentID       string
	phoneNumberID string
	baseURL       string
	http          *http.Client
	retry         resilience.RetryConfig
}

// NewClient creates an ElevenLabs client bound to one agent and one SIP
// phone number.
func NewClient(apiKey, agentID, phoneNumberID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		agentID:       agentID,
		phoneNumberID: phoneNumberID,
		baseURL:       defaultBaseURL,
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

type outboundCallRequest struct {
	AgentID              string                `json:"agent_id"`
	AgentPhoneNumberID   string                `json:"agent_phone_number_id"`
	ToNumber             string                `json:"to_number"`
	ClientInitiationData *clientInitiationData `json:"conversation_initiation_client_data,omitempty"`
}

type clientInitiationData struct {
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

// StartOutboundCall places an outbound SIP call with the agent. The dynamic
// variables seed the agent's conversation context.
func (c *httpClient) StartOutboundCall(ctx context.Context, toNumber string, dynamicVariables map[string]string) (*OutboundCall, error) {
	payload := outboundCallRequest{
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.phoneNumberID,
		ToNumber:           toNumber,
	}
	if len(dynamicVariables) > 0 {
		payload.ClientInitiationData = &clientInitiationData{DynamicVariables: dynamicVariables}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: marshal request")
	}

	respBody, err := c.do(ctx, http.MethodPost, "/v1/convai/sip-trunk/outbound-call", body)
	if err != nil {
		return nil, err
	}

	var call OutboundCall
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal outbound call")
	}
	return &call, nil
}

// GetConversation fetches the conversation state by id.
func (c *httpClient) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/v1/convai/conversations/"+conversationID, nil)
	if err != nil {
		return nil, err
	}

	var conversation Conversation
	if err := json.Unmarshal(respBody, &conversation); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: unmarshal conversation")
	}
	return &conversation, nil
}

// GetConversationAudio downloads the call recording.
func (c *httpClient) GetConversationAudio(ctx context.Context, conversationID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/v1/convai/conversations/"+conversationID+"/audio", nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, eris.Wrap(err, "elevenlabs: create request")
		}
		req.Header.Set("xi-api-key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "elevenlabs: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "elevenlabs: read response")
		}

		if resp.StatusCode >= 400 {
			apiErr := eris.Errorf("elevenlabs: %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return nil, apiErr
		}
		return respBody, nil
	})
}

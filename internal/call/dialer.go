package call

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/elevenlabs"
)

// Dialer places calls through ElevenLabs and waits for the conversation to
// finish, translating the outcome into the controller's vocabulary.
type Dialer struct {
	client   elevenlabs.Client
	pollOpts []elevenlabs.PollOption
}

// NewDialer creates an ElevenLabs-backed dialer.
func NewDialer(client elevenlabs.Client, pollOpts ...elevenlabs.PollOption) *Dialer {
	return &Dialer{client: client, pollOpts: pollOpts}
}

// Call starts an outbound call and polls the conversation to completion. A
// busy or rejected line yields ErrBusy; a conversation that ends without any
// exchange is reported as a plain failure.
func (d *Dialer) Call(ctx context.Context, number string, dynamicVariables map[string]string) (*model.CallResult, error) {
	started, err := d.client.StartOutboundCall(ctx, number, dynamicVariables)
	if err != nil {
		return nil, err
	}
	if !started.Success {
		if busyMessage(started.Message) {
			return nil, eris.Wrapf(ErrBusy, "call: %s", started.Message)
		}
		return nil, eris.Errorf("call: outbound call rejected: %s", started.Message)
	}

	conversation, err := elevenlabs.PollConversation(ctx, d.client, started.ConversationID, d.pollOpts...)
	if err != nil {
		return nil, err
	}
	if conversation.Status == "failed" {
		return nil, eris.Errorf("call: conversation %s failed", conversation.ConversationID)
	}
	if len(conversation.Transcript) == 0 {
		return nil, eris.Errorf("call: conversation %s ended without answer", conversation.ConversationID)
	}

	// Analysis usually lags the conversation finishing.
	if enriched, err := elevenlabs.FetchWithAnalysis(ctx, d.client, conversation.ConversationID); err == nil {
		conversation = enriched
	}

	return buildResult(conversation), nil
}

func busyMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "busy") || strings.Contains(lower, "ocupado")
}

func buildResult(conversation *elevenlabs.Conversation) *model.CallResult {
	result := &model.CallResult{
		ConversationID: conversation.ConversationID,
		DurationMillis: conversation.DurationMillis(),
	}
	for _, entry := range conversation.Transcript {
		result.Transcript = append(result.Transcript, model.TranscriptEntry{
			Role:    entry.Role,
			Message: entry.Message,
		})
	}
	result.Analysis = collectAnalysis(conversation)
	return result
}

// collectAnalysis flattens the data-collection results into plain strings.
// Each entry may be a bare value or an object with a "value" key.
func collectAnalysis(conversation *elevenlabs.Conversation) map[string]string {
	if conversation.Analysis == nil {
		return nil
	}

	values := map[string]string{}
	addAll := func(source map[string]any) {
		for key, raw := range source {
			if value := stringValue(raw); value != "" {
				values[key] = value
			}
		}
	}
	addAll(conversation.Analysis.DataCollectionResults)
	addAll(conversation.Analysis.ExtractedData)

	if len(values) == 0 {
		return nil
	}
	return values
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return stringValue(inner)
		}
	}
	return ""
}

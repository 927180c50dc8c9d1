package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOutboundCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/convai/sip-trunk/outbound-call", r.URL.Path)
		require.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

		var payload outboundCallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "agent-1", payload.AgentID)
		assert.Equal(t, "phone-1", payload.AgentPhoneNumberID)
		assert.Equal(t, "+529981234567", payload.ToNumber)
		require.NotNil(t, payload.ClientInitiationData)
		assert.Equal(t, "Hotel Sol", payload.ClientInitiationData.DynamicVariables["hotel_name"])

		_, _ = w.Write([]byte(`{"success": true, "conversation_id": "conv-1"}`))
	}))
	defer server.Close()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	call, err := client.StartOutboundCall(context.Background(), "+529981234567",
		map[string]string{"hotel_name": "Hotel Sol"})
	require.NoError(t, err)
	assert.True(t, call.Success)
	assert.Equal(t, "conv-1", call.ConversationID)
}

func TestGetConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/convai/conversations/conv-1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"conversation_id": "conv-1",
			"status": "done",
			"transcript": [
				{"role": "agent", "message": "Hola, ¿hablo con el Hotel Sol?"},
				{"role": "user", "message": "Sí, dígame."}
			],
			"analysis": {"data_collection_results": {"num_rooms": {"value": "24"}}},
			"metadata": {"start_time_unix_secs": 100, "end_time_unix_secs": 190}
		}`))
	}))
	defer server.Close()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	conversation, err := client.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "done", conversation.Status)
	require.Len(t, conversation.Transcript, 2)
	assert.True(t, conversation.HasAnalysisData())
	assert.Equal(t, int64(90000), conversation.DurationMillis())
}

func TestPollConversation_ReachesTerminal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "in-progress"
		if calls >= 3 {
			status = "done"
		}
		_, _ = w.Write([]byte(`{"conversation_id": "conv-1", "status": "` + status + `"}`))
	}))
	defer server.Close()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	conversation, err := PollConversation(context.Background(), client, "conv-1",
		WithPollInterval(5*time.Millisecond), WithPollTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "done", conversation.Status)
	assert.Equal(t, 3, calls)
}

func TestPollConversation_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"conversation_id": "conv-1", "status": "in-progress"}`))
	}))
	defer server.Close()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	_, err := PollConversation(context.Background(), client, "conv-1",
		WithPollInterval(5*time.Millisecond), WithPollTimeout(30*time.Millisecond))
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestPollConversation_TimeoutUnderWiderParentDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"conversation_id": "conv-1", "status": "in-progress"}`))
	}))
	defer server.Close()

	// A job-level deadline far in the future must not disable the poll bound.
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	start := time.Now()
	_, err := PollConversation(ctx, client, "conv-1",
		WithPollInterval(5*time.Millisecond), WithPollTimeout(30*time.Millisecond))
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetConversationAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/convai/conversations/conv-1/audio", r.URL.Path)
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := NewClient("xi-key", "agent-1", "phone-1", WithBaseURL(server.URL))
	audio, err := client.GetConversationAudio(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

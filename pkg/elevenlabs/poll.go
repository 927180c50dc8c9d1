package elevenlabs

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute

	// analysisRetries and analysisDelay bound the wait for post-call
	// analysis, which lags the conversation reaching "done".
	analysisRetries = 6
	analysisDelay   = 5 * time.Second
)

// ErrPollTimeout is returned when a conversation does not reach a terminal
// status before the deadline.
var ErrPollTimeout = eris.New("elevenlabs: conversation polling timed out")

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
}

// WithPollInterval overrides the fixed poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.interval = d
	}
}

// WithPollTimeout overrides the default timeout.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

func terminalStatus(status string) bool {
	return status == "done" || status == "failed"
}

// PollConversation polls GetConversation at a fixed interval until the
// conversation reaches a terminal status ("done" or "failed") or the
// deadline passes, in which case ErrPollTimeout is returned.
func PollConversation(ctx context.Context, client Client, conversationID string, opts ...PollOption) (*Conversation, error) {
	cfg := pollConfig{
		interval: defaultPollInterval,
		timeout:  defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	// The job deadline is much wider than one call; bound the poll on its
	// own so a stuck conversation cannot eat the budget of the remaining
	// phone candidates.
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ErrPollTimeout
		case <-ticker.C:
		}

		conversation, err := client.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, eris.Wrapf(err, "elevenlabs: poll conversation %s", conversationID)
		}

		zap.L().Debug("conversation status",
			zap.String("conversation_id", conversationID),
			zap.String("status", conversation.Status),
		)

		if terminalStatus(conversation.Status) {
			return conversation, nil
		}
	}
}

// FetchWithAnalysis re-fetches a finished conversation until its analysis
// data is populated, up to a fixed number of retries. The last fetched state
// is returned even when the analysis never shows up.
func FetchWithAnalysis(ctx context.Context, client Client, conversationID string) (*Conversation, error) {
	var conversation *Conversation
	for attempt := 0; attempt < analysisRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return conversation, ctx.Err()
			case <-time.After(analysisDelay):
			}
		}

		var err error
		conversation, err = client.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, eris.Wrapf(err, "elevenlabs: fetch conversation %s", conversationID)
		}
		if conversation.HasAnalysisData() {
			return conversation, nil
		}

		zap.L().Debug("conversation analysis not ready",
			zap.String("conversation_id", conversationID),
			zap.Int("attempt", attempt+1),
		)
	}

	zap.L().Warn("conversation analysis unavailable, proceeding without it",
		zap.String("conversation_id", conversationID),
	)
	return conversation, nil
}

package call

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// ErrBusy marks a dial attempt that reached a busy line. Busy numbers get
// retried; any other failure moves on to the next candidate.
var ErrBusy = eris.New("call: line busy")

const (
	defaultAttemptsPerNumber = 3
	defaultBusyRetryDelay    = 10 * time.Second
)

// Caller places one outbound call and waits for its outcome.
type Caller interface {
	Call(ctx context.Context, number string, dynamicVariables map[string]string) (*model.CallResult, error)
}

// Controller walks the candidate phone list until one call produces a usable
// result. A busy line is retried on the same number after a fixed delay, up
// to three attempts; any other failure advances to the next candidate.
type Controller struct {
	caller      Caller
	maxAttempts int
	busyDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithSleep overrides the busy-retry wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithAttemptsPerNumber overrides how often a busy number is redialed.
func WithAttemptsPerNumber(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBusyRetryDelay overrides the wait between busy redials.
func WithBusyRetryDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.busyDelay = d
		}
	}
}

// NewController creates a call retry controller.
func NewController(caller Caller, opts ...ControllerOption) *Controller {
	c := &Controller{
		caller:      caller,
		maxAttempts: defaultAttemptsPerNumber,
		busyDelay:   defaultBusyRetryDelay,
		sleep:       sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run dials the candidates in order and returns the first usable result
// along with the full attempt log. A nil result with a nil error means every
// candidate was exhausted.
func (c *Controller) Run(ctx context.Context, candidates []model.PhoneCandidate, dynamicVariables map[string]string) (*model.CallResult, []model.CallAttempt, error) {
	var attempts []model.CallAttempt

nextCandidate:
	for _, candidate := range candidates {
		logger := zap.L().With(
			zap.String("number", candidate.Number),
			zap.String("source", candidate.Source),
		)

		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			result, err := c.caller.Call(ctx, candidate.Number, dynamicVariables)
			entry := model.CallAttempt{
				PhoneNumber: candidate.Number,
				Source:      candidate.Source,
				Attempt:     attempt,
			}

			switch {
			case err == nil:
				entry.Status = "connected"
				entry.ConversationID = result.ConversationID
				attempts = append(attempts, entry)
				logger.Info("call connected", zap.String("conversation_id", result.ConversationID))
				return result, attempts, nil

			case eris.Is(err, ErrBusy):
				entry.Status = "busy"
				attempts = append(attempts, entry)
				logger.Info("line busy", zap.Int("attempt", attempt))
				if attempt < c.maxAttempts {
					if err := c.sleep(ctx, c.busyDelay); err != nil {
						return nil, attempts, err
					}
				}

			case ctx.Err() != nil:
				entry.Status = "error"
				entry.Error = ctx.Err().Error()
				attempts = append(attempts, entry)
				return nil, attempts, ctx.Err()

			default:
				entry.Status = "failed"
				entry.Error = err.Error()
				attempts = append(attempts, entry)
				logger.Warn("call failed, trying next candidate", zap.Error(err))
				continue nextCandidate
			}
		}
	}

	zap.L().Warn("all phone candidates exhausted", zap.Int("attempts", len(attempts)))
	return nil, attempts, nil
}

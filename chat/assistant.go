package chat

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sony/gobreaker"

	"derma-inference-service/data"
)

// Reply is the assistant's answer plus the flags reported to clients.
type Reply struct {
	Text          string
	HasPrediction bool
	LowConfidence bool
	Source        string
}

// BreakerSettings controls when the remote responder is skipped.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures int
	// Cooldown is how long the breaker stays open before a trial request.
	Cooldown time.Duration
}

// Assistant tries the remote responder through a circuit breaker and falls
// back to the local responder on any failure.
type Assistant struct {
	remote  Responder
	local   *LocalResponder
	breaker *gobreaker.CircuitBreaker
	classes []string
}

// NewAssistant builds an assistant. remote may be nil, in which case every
// reply comes from local.
func NewAssistant(remote Responder, local *LocalResponder, classes []string, bs BreakerSettings) *Assistant {
	if local == nil {
		local = NewLocalResponder(nil)
	}
	if bs.Failures <= 0 {
		bs.Failures = 3
	}
	if bs.Cooldown <= 0 {
		bs.Cooldown = time.Minute
	}
	if len(classes) == 0 {
		classes = local.kb.Names()
	}

	failures := uint32(bs.Failures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat-remote",
		MaxRequests: 1,
		Timeout:     bs.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Assistant{
		remote:  remote,
		local:   local,
		breaker: breaker,
		classes: classes,
	}
}

// Ask answers message in the context of the session's last prediction. It
// never returns an error.
func (a *Assistant) Ask(ctx context.Context, message string, p *data.LastPrediction) Reply {
	q := Query{
		Message:    message,
		Prediction: p,
		Prompt:     SystemPrompt(BuildContext(p, a.classes), message, a.classes),
	}
	reply := Reply{
		HasPrediction: p != nil,
		LowConfidence: p != nil && p.Predictions.LowConfidence(),
	}

	if a.remote != nil {
		out, err := a.breaker.Execute(func() (interface{}, error) {
			return a.remote.Respond(ctx, q)
		})
		if err == nil {
			reply.Text = out.(string)
			reply.Source = a.remote.Name()
			return reply
		}
		log.Warnf("chat backend %s unavailable, using local responder: %v", a.remote.Name(), err)
	}

	reply.Text = a.local.Reply(q.Message, q.Prediction)
	reply.Source = a.local.Name()
	return reply
}

// BreakerState reports the remote breaker state ("closed", "open" or
// "half-open").
func (a *Assistant) BreakerState() string {
	return a.breaker.State().String()
}

// Package chat answers questions about skin conditions and about the
// caller's most recent prediction.
package chat

import (
	"context"

	"derma-inference-service/data"
)

// Disclaimer ends every reply produced by the local responder.
const Disclaimer = "⚠️ This is for educational purposes only. Please consult a dermatologist for professional diagnosis."

// Query is a single chat turn.
type Query struct {
	Message string
	// Prediction is the session's last prediction, nil when there is none.
	Prediction *data.LastPrediction
	// Prompt is the full instruction text sent to generative backends.
	Prompt string
}

// Responder produces a reply for a query.
type Responder interface {
	Respond(ctx context.Context, q Query) (string, error)
	// Name is a short label of the backend, reported with each reply.
	Name() string
}

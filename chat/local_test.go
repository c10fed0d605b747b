package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"derma-inference-service/data"
	"derma-inference-service/decision"
)

var confident = &data.LastPrediction{
	Predictions: decision.Set{
		{Class: "Acne", Percentage: 85, Confidence: decision.High},
		{Class: "Eczema", Percentage: 10, Confidence: decision.Low},
		{Class: "Vitiligo", Percentage: 5, Confidence: decision.Low},
	},
	Timestamp: time.Now(),
}

var uncertain = &data.LastPrediction{
	Predictions: decision.Set{
		{Class: decision.UnknownClass, Percentage: 60, Confidence: decision.Uncertain},
		{Class: "Acne", Percentage: 40, Confidence: decision.Medium},
		{Class: "Eczema", Percentage: 35, Confidence: decision.Medium},
		{Class: "Vitiligo", Percentage: 25, Confidence: decision.Low},
	},
	Timestamp: time.Now(),
}

func TestDefaultKnowledge(t *testing.T) {
	kb := DefaultKnowledge()
	require.Equal(t, []string{"Acne", "Eczema", "Vitiligo"}, kb.Names())
	for _, c := range kb.Conditions {
		require.NotEmpty(t, c.Description, c.Name)
		require.NotEmpty(t, c.Causes, c.Name)
		require.NotEmpty(t, c.Symptoms, c.Name)
		require.NotEmpty(t, c.Treatment, c.Name)
		require.NotEmpty(t, c.Highlights, c.Name)
	}
}

func TestParseKnowledge_Invalid(t *testing.T) {
	_, err := ParseKnowledge([]byte("conditions: []"))
	require.Error(t, err)
	_, err = ParseKnowledge([]byte("conditions: {"))
	require.Error(t, err)
}

func TestLocalResponder_ConditionSheet(t *testing.T) {
	l := NewLocalResponder(nil)
	acne := DefaultKnowledge().Conditions[0]

	reply, err := l.Respond(context.Background(), Query{Message: "what is acne"})
	require.NoError(t, err)
	require.Contains(t, reply, "About Acne")
	require.Contains(t, reply, acne.Description)
	require.Contains(t, reply, acne.Causes)
	require.Contains(t, reply, acne.Symptoms)
	require.Contains(t, reply, acne.Treatment)
	require.True(t, strings.HasSuffix(reply, Disclaimer))
	require.NotContains(t, reply, "Recent Prediction")
}

func TestLocalResponder_DermatitisAlias(t *testing.T) {
	reply := NewLocalResponder(nil).Reply("Tell me about Dermatitis", nil)
	require.Contains(t, reply, "About Eczema")
}

func TestLocalResponder_Intents(t *testing.T) {
	l := NewLocalResponder(nil)
	cases := []struct {
		message string
		p       *data.LastPrediction
		want    string
	}{
		{"Explain my prediction results", confident, "Top Prediction"},
		{"explain my prediction", nil, "I don't see a recent prediction"},
		{"why is my confidence low?", uncertain, "below our 70% threshold"},
		{"why is my confidence low?", confident, "above our 70% threshold"},
		{"confidence why", nil, "To check confidence levels"},
		{"What's the difference between acne and eczema?", nil, "Key Differences Between Acne, Eczema, and Vitiligo"},
		{"what should I do next", uncertain, "Since your prediction confidence is low"},
		{"hello", nil, "Upload an image first"},
		{"hello", uncertain, "Your prediction has low confidence"},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			reply := l.Reply(tc.message, tc.p)
			require.Contains(t, reply, tc.want)
			require.True(t, strings.HasSuffix(reply, Disclaimer))
		})
	}
}

func TestLocalResponder_IntentBeatsCondition(t *testing.T) {
	reply := NewLocalResponder(nil).Reply("difference between acne and vitiligo", nil)
	require.Contains(t, reply, "Key Differences")
	require.NotContains(t, reply, "About Acne")
}

func TestLocalResponder_PredictionBlock(t *testing.T) {
	reply := NewLocalResponder(nil).Reply("tell me about vitiligo", confident)
	require.Contains(t, reply, "Your Recent Prediction")
	require.Contains(t, reply, "• Acne: 85.0% (high confidence)")
}

func TestJoinHelpers(t *testing.T) {
	require.Equal(t, "Acne, Eczema, and Vitiligo", joinList([]string{"Acne", "Eczema", "Vitiligo"}))
	require.Equal(t, "Acne, Eczema, or Vitiligo", joinOr([]string{"Acne", "Eczema", "Vitiligo"}))
	require.Equal(t, "Acne or Eczema", joinOr([]string{"Acne", "Eczema"}))
	require.Equal(t, "Acne", joinOr([]string{"Acne"}))
}

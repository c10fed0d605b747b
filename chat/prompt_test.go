package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var knownClasses = []string{"Acne", "Eczema", "Vitiligo"}

func TestBuildContext_NoPrediction(t *testing.T) {
	require.Empty(t, BuildContext(nil, knownClasses))
}

func TestBuildContext_Confident(t *testing.T) {
	ctx := BuildContext(confident, knownClasses)
	require.Contains(t, ctx, "Top prediction: Acne with 85.00% confidence (high confidence level)")
	require.Contains(t, ctx, "Acne: 85.00%, Eczema: 10.00%, Vitiligo: 5.00%")
	require.Contains(t, ctx, "The system can detect: Acne, Eczema, and Vitiligo.")
	require.NotContains(t, ctx, "IMPORTANT")
}

func TestBuildContext_LowConfidenceCaveat(t *testing.T) {
	ctx := BuildContext(uncertain, knownClasses)
	require.Contains(t, ctx, "IMPORTANT: The prediction confidence is LOW (60.00%)")
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt("CTX\n", "is this eczema?", knownClasses)
	require.Contains(t, prompt, "CTX\nYou are a helpful dermatology assistant")
	require.Contains(t, prompt, "User question: is this eczema?")
	require.Contains(t, prompt, "When confidence is low (<70%)")
}

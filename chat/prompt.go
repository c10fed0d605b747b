package chat

import (
	"fmt"
	"strings"

	"derma-inference-service/data"
	"derma-inference-service/decision"
)

// BuildContext describes the last prediction for the generative model. It
// returns an empty string when there is no prediction.
func BuildContext(p *data.LastPrediction, classes []string) string {
	if p == nil || len(p.Predictions) == 0 {
		return ""
	}
	top := p.Predictions[0]

	all := make([]string, len(p.Predictions))
	for i, r := range p.Predictions {
		all[i] = fmt.Sprintf("%s: %.2f%%", r.Class, r.Percentage)
	}

	var b strings.Builder
	b.WriteString("\nContext: The user just received a skin disease prediction with the following results:\n")
	fmt.Fprintf(&b, "- Top prediction: %s with %.2f%% confidence (%s confidence level)\n", top.Class, top.Percentage, top.Confidence)
	fmt.Fprintf(&b, "- All predictions: %s\n\n", strings.Join(all, ", "))
	fmt.Fprintf(&b, "The system can detect: %s.\n\n", joinList(classes))

	if p.Predictions.LowConfidence() {
		fmt.Fprintf(&b, "\nIMPORTANT: The prediction confidence is LOW (%.2f%%). The image may not clearly show one of the known conditions (%s), or it might be a different skin condition not in our database.\n\n",
			top.Percentage, strings.Join(classes, ", "))
	}
	return b.String()
}

// SystemPrompt combines the prediction context, the assistant's role and
// the user's message into one instruction.
func SystemPrompt(contextBlock, message string, classes []string) string {
	known := joinList(classes)
	return fmt.Sprintf(`%sYou are a helpful dermatology assistant chatbot for an educational skin disease detection platform.

Your role:
1. Provide educational information about %s
2. Explain prediction results to users in simple terms
3. When confidence is low (<%d%%), explain that:
   - The image may not clearly match any of the known conditions
   - It could be a different skin condition
   - They should consult a dermatologist for proper diagnosis
4. Always remind users this is for educational purposes only
5. NEVER provide medical diagnosis or treatment advice
6. Always recommend consulting a qualified dermatologist
7. Be empathetic, clear, and concise

User question: %s

Respond naturally and helpfully.`, contextBlock, known, decision.LowConfidencePercentage, message)
}

// joinList renders names as "A, B, and C".
func joinList(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

package chat

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"derma-inference-service/data"
	"derma-inference-service/decision"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

// Condition is the educational sheet for one skin condition.
type Condition struct {
	Name        string   `yaml:"name"`
	Icon        string   `yaml:"icon"`
	Keywords    []string `yaml:"keywords"`
	Description string   `yaml:"description"`
	Causes      string   `yaml:"causes"`
	Symptoms    string   `yaml:"symptoms"`
	Treatment   string   `yaml:"treatment"`
	Highlights  []string `yaml:"highlights"`
}

// Knowledge is the local responder's knowledge base.
type Knowledge struct {
	Conditions []Condition `yaml:"conditions"`
}

// ParseKnowledge decodes a YAML knowledge base.
func ParseKnowledge(raw []byte) (*Knowledge, error) {
	var kb Knowledge
	if err := yaml.Unmarshal(raw, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if len(kb.Conditions) == 0 {
		return nil, fmt.Errorf("knowledge base has no conditions")
	}
	return &kb, nil
}

var defaultKnowledge = sync.OnceValue(func() *Knowledge {
	kb, err := ParseKnowledge(knowledgeYAML)
	if err != nil {
		panic(err)
	}
	return kb
})

// DefaultKnowledge returns the embedded knowledge base.
func DefaultKnowledge() *Knowledge {
	return defaultKnowledge()
}

// Names returns the condition names in document order.
func (k *Knowledge) Names() []string {
	names := make([]string, len(k.Conditions))
	for i, c := range k.Conditions {
		names[i] = c.Name
	}
	return names
}

// LocalResponder answers from the knowledge base by matching keywords in
// the message. It never fails.
type LocalResponder struct {
	kb *Knowledge
}

// NewLocalResponder uses kb, or the embedded knowledge base when kb is nil.
func NewLocalResponder(kb *Knowledge) *LocalResponder {
	if kb == nil {
		kb = DefaultKnowledge()
	}
	return &LocalResponder{kb: kb}
}

func (l *LocalResponder) Name() string { return "local" }

func (l *LocalResponder) Respond(_ context.Context, q Query) (string, error) {
	return l.Reply(q.Message, q.Prediction), nil
}

// Reply builds the canned response for message. Intents are checked
// before condition names, first match wins.
func (l *LocalResponder) Reply(message string, p *data.LastPrediction) string {
	msg := strings.ToLower(message)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}

	var body string
	switch {
	case has("explain") && has("result") || has("prediction"):
		body = l.explain(p)
	case has("confidence") && has("low", "why", "not confident"):
		body = l.confidence(p)
	case has("difference", "between"):
		body = l.differences(p)
	case has("what") && has("next") || has("should i do"):
		body = l.nextSteps(p)
	default:
		if c, ok := l.match(has); ok {
			body = l.condition(c, p)
		} else {
			body = l.greeting(p)
		}
	}
	return body + "\n\n" + Disclaimer
}

func (l *LocalResponder) match(has func(...string) bool) (Condition, bool) {
	for _, c := range l.kb.Conditions {
		if has(c.Keywords...) {
			return c, true
		}
	}
	return Condition{}, false
}

func (l *LocalResponder) known() string {
	return joinOr(l.kb.Names())
}

func (l *LocalResponder) explain(p *data.LastPrediction) string {
	top, ok := topOf(p)
	if !ok {
		return "I don't see a recent prediction. Please upload and analyze an image first, then I can explain your results!"
	}

	var b strings.Builder
	b.WriteString("Based on your image analysis, here are your results:\n\n")
	fmt.Fprintf(&b, "🔍 **Top Prediction**: %s with %.1f%% confidence\n\n", top.Class, top.Percentage)
	if p.Predictions.LowConfidence() {
		fmt.Fprintf(&b, "⚠️ **Note**: The confidence level is below %d%%, which means:\n", decision.LowConfidencePercentage)
		fmt.Fprintf(&b, "• The image may not clearly show %s\n", l.known())
		b.WriteString("• It could be a different skin condition\n")
		b.WriteString("• Image quality, lighting, or angle might affect detection\n\n")
	}
	b.WriteString("📋 **All Predictions**:\n")
	for _, r := range p.Predictions {
		fmt.Fprintf(&b, "• %s: %.1f%%\n", r.Class, r.Percentage)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *LocalResponder) confidence(p *data.LastPrediction) string {
	var b strings.Builder
	top, ok := topOf(p)
	switch {
	case !ok:
		b.WriteString("❓ I don't see a recent prediction to analyze.\n\n")
		b.WriteString("📸 **To check confidence levels**:\n")
		b.WriteString("1. Upload an image using the file selector\n")
		b.WriteString("2. Click 'Analyze Image' button\n")
		b.WriteString("3. I'll show you the confidence levels for each condition\n\n")
		b.WriteString("💡 **About Confidence Levels**:\n")
		fmt.Fprintf(&b, "• **High (%d%%+)**: Strong match with known patterns\n", decision.LowConfidencePercentage)
		fmt.Fprintf(&b, "• **Low (<%d%%)**: Unclear image or different condition\n\n", decision.LowConfidencePercentage)
		b.WriteString("Upload an image and I'll help you understand the results!")
	case p.Predictions.LowConfidence():
		fmt.Fprintf(&b, "Your prediction shows %.1f%% confidence for **%s**, which is below our %d%% threshold.\n\n",
			top.Percentage, top.Class, decision.LowConfidencePercentage)
		b.WriteString("🤔 **This could mean**:\n\n")
		fmt.Fprintf(&b, "1️⃣ **Not one of the known conditions**: The image may not clearly show %s\n\n", l.known())
		b.WriteString("2️⃣ **Different condition**: Your skin concern might be a different condition not in our database\n\n")
		b.WriteString("3️⃣ **Image quality**: Lighting, angle, or image quality might affect detection\n\n")
		b.WriteString("4️⃣ **Mixed features**: The image might show characteristics of multiple conditions\n\n")
		b.WriteString("👨‍⚕️ **Next Steps**: I strongly recommend visiting a dermatologist who can:\n")
		b.WriteString("• Examine your skin in person\n")
		b.WriteString("• Review your medical history\n")
		b.WriteString("• Provide accurate diagnosis\n")
		b.WriteString("• Recommend appropriate treatment")
	default:
		fmt.Fprintf(&b, "Your prediction shows %.1f%% confidence for **%s**, which is above our %d%% threshold!\n\n",
			top.Percentage, top.Class, decision.LowConfidencePercentage)
		b.WriteString("✅ **Good Confidence Level**:\n")
		fmt.Fprintf(&b, "• The system is %.1f%% confident this shows %s\n", top.Percentage, top.Class)
		b.WriteString("• This suggests the image clearly shows characteristics of this condition\n\n")
		b.WriteString("📋 **What This Means**:\n")
		b.WriteString("• The detected features strongly match the pattern for this condition\n")
		b.WriteString("• The image quality is good enough for analysis")
		b.WriteString(predictionBlock(p))
	}
	return b.String()
}

func (l *LocalResponder) differences(p *data.LastPrediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **Key Differences Between %s**:\n", joinList(l.kb.Names()))
	for _, c := range l.kb.Conditions {
		fmt.Fprintf(&b, "\n**%s %s**:\n", c.Icon, strings.ToUpper(c.Name))
		for _, h := range c.Highlights {
			fmt.Fprintf(&b, "• %s\n", h)
		}
	}
	b.WriteString("\n💡 A dermatologist can properly diagnose which condition you have.")
	b.WriteString(predictionBlock(p))
	return b.String()
}

func (l *LocalResponder) nextSteps(p *data.LastPrediction) string {
	var b strings.Builder
	b.WriteString("🎯 **Recommended Next Steps**:\n\n")
	if p != nil && p.Predictions.LowConfidence() {
		b.WriteString("⚠️ Since your prediction confidence is low:\n\n")
	}
	b.WriteString("1️⃣ **Consult a Dermatologist**:\n")
	b.WriteString("• Book an appointment with a qualified dermatologist\n")
	b.WriteString("• They can examine your skin in person\n")
	b.WriteString("• Get professional diagnosis and treatment plan\n\n")
	b.WriteString("2️⃣ **Document Your Symptoms**:\n")
	b.WriteString("• Take clear photos in good lighting\n")
	b.WriteString("• Note when symptoms started\n")
	b.WriteString("• Track any triggers or patterns\n\n")
	b.WriteString("3️⃣ **Avoid Self-Diagnosis**:\n")
	b.WriteString("• Don't start treatments without professional advice\n")
	b.WriteString("• Over-the-counter products may not be appropriate\n")
	b.WriteString("• Some conditions require prescription medication\n\n")
	b.WriteString("4️⃣ **General Skin Care**:\n")
	b.WriteString("• Keep skin clean and moisturized\n")
	b.WriteString("• Avoid harsh products or excessive scrubbing\n")
	b.WriteString("• Protect skin from sun exposure")
	b.WriteString(predictionBlock(p))
	return b.String()
}

func (l *LocalResponder) condition(c Condition, p *data.LastPrediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **About %s**:\n\n", c.Icon, c.Name)
	fmt.Fprintf(&b, "**What is it?**\n%s\n\n", c.Description)
	fmt.Fprintf(&b, "**Causes:**\n%s\n\n", c.Causes)
	fmt.Fprintf(&b, "**Symptoms:**\n%s\n\n", c.Symptoms)
	fmt.Fprintf(&b, "**Treatment:**\n%s\n\n", c.Treatment)
	b.WriteString("💡 For personalized advice, please consult a dermatologist.")
	b.WriteString(predictionBlock(p))
	return b.String()
}

func (l *LocalResponder) greeting(p *data.LastPrediction) string {
	var b strings.Builder
	b.WriteString("👋 Hello! I'm here to help with information about skin conditions.\n\n")
	b.WriteString("🔍 **I can help you with**:\n")
	b.WriteString("• Explaining your prediction results\n")
	fmt.Fprintf(&b, "• Information about %s\n", joinList(l.kb.Names()))
	b.WriteString("• Understanding confidence levels\n")
	b.WriteString("• Differences between conditions\n")
	b.WriteString("• Next steps and recommendations\n")

	if _, ok := topOf(p); ok {
		b.WriteString(predictionBlock(p))
		if p.Predictions.LowConfidence() {
			b.WriteString("\n⚠️ **Note**: Your prediction has low confidence. This means the image may not clearly show one of the conditions we detect.\n")
		}
	} else {
		b.WriteString("\n💡 **Tip**: Upload an image first to get personalized insights about your results!\n")
	}

	b.WriteString("\n❓ **Try asking**:\n")
	b.WriteString("• 'Explain my prediction results'\n")
	b.WriteString("• 'Why is my confidence low?'\n")
	b.WriteString("• 'What's the difference between these conditions?'\n")
	b.WriteString("• 'What should I do next?'")
	return b.String()
}

// predictionBlock lists the last prediction, or returns "" without one.
func predictionBlock(p *data.LastPrediction) string {
	if _, ok := topOf(p); !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n📊 Your Recent Prediction:\n")
	for _, r := range p.Predictions {
		fmt.Fprintf(&b, "• %s: %.1f%% (%s confidence)\n", r.Class, r.Percentage, r.Confidence)
	}
	return strings.TrimRight(b.String(), "\n")
}

func topOf(p *data.LastPrediction) (decision.Result, bool) {
	if p == nil {
		return decision.Result{}, false
	}
	return p.Predictions.Top()
}

// joinOr renders names as "A, B, or C".
func joinOr(names []string) string {
	s := joinList(names)
	if len(names) == 2 {
		return strings.Replace(s, " and ", " or ", 1)
	}
	if i := strings.LastIndex(s, ", and "); i >= 0 {
		return s[:i] + ", or " + s[i+len(", and "):]
	}
	return s
}

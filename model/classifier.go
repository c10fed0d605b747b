package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Multi-class strategies of an exported logistic regression head.
const (
	Multinomial = "multinomial"
	OneVsRest   = "ovr"
)

// ClassifierArtifact is the on-disk form of a trained logistic regression
// head: one coefficient row per class (a single row for binary heads).
type ClassifierArtifact struct {
	Classes    []string    `json:"classes"`
	Coef       [][]float64 `json:"coef"`
	Intercept  []float64   `json:"intercept"`
	MultiClass string      `json:"multi_class"`
}

// LinearClassifier computes class probabilities from an embedding. It is
// immutable after loading.
type LinearClassifier struct {
	classes    []string
	coef       [][]float64
	intercept  []float64
	multiClass string
	dim        int
}

// LoadLinearClassifier reads a classifier artifact from a JSON file.
func LoadLinearClassifier(path string) (*LinearClassifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier: %w", err)
	}

	var artifact ClassifierArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse classifier: %w", err)
	}
	return NewLinearClassifier(artifact)
}

// NewLinearClassifier validates an artifact and builds a classifier from it.
func NewLinearClassifier(a ClassifierArtifact) (*LinearClassifier, error) {
	if len(a.Classes) < 2 {
		return nil, fmt.Errorf("classifier needs at least 2 classes, got %d", len(a.Classes))
	}
	binary := len(a.Classes) == 2 && len(a.Coef) == 1
	if !binary && len(a.Coef) != len(a.Classes) {
		return nil, fmt.Errorf("classifier has %d coefficient rows for %d classes", len(a.Coef), len(a.Classes))
	}
	if len(a.Intercept) != len(a.Coef) {
		return nil, fmt.Errorf("classifier has %d intercepts for %d coefficient rows", len(a.Intercept), len(a.Coef))
	}

	dim := len(a.Coef[0])
	if dim == 0 {
		return nil, fmt.Errorf("classifier coefficients are empty")
	}
	for i, row := range a.Coef {
		if len(row) != dim {
			return nil, fmt.Errorf("coefficient row %d has %d values, expected %d", i, len(row), dim)
		}
	}

	mode := strings.ToLower(a.MultiClass)
	switch mode {
	case "", "auto":
		mode = Multinomial
	case Multinomial, OneVsRest:
	default:
		return nil, fmt.Errorf("unsupported multi_class %q", a.MultiClass)
	}

	return &LinearClassifier{
		classes:    append([]string(nil), a.Classes...),
		coef:       a.Coef,
		intercept:  a.Intercept,
		multiClass: mode,
		dim:        dim,
	}, nil
}

// Classes returns the class names in training order.
func (c *LinearClassifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

// InputDim returns the expected feature vector length.
func (c *LinearClassifier) InputDim() int {
	return c.dim
}

// PredictProba returns one probability per class, in Classes() order,
// summing to 1.
func (c *LinearClassifier) PredictProba(features []float64) ([]float64, error) {
	if len(features) != c.dim {
		return nil, &ClassifierError{Reason: fmt.Sprintf("feature vector has %d values, expected %d", len(features), c.dim)}
	}

	logits := make([]float64, len(c.coef))
	for i, row := range c.coef {
		z := c.intercept[i]
		for j, w := range row {
			z += w * features[j]
		}
		logits[i] = z
	}

	if len(c.coef) == 1 {
		p := sigmoid(logits[0])
		return []float64{1 - p, p}, nil
	}
	if c.multiClass == OneVsRest {
		return normalize(logits, sigmoid), nil
	}
	return softmax(logits), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, z := range logits {
		peak = math.Max(peak, z)
	}
	return normalize(logits, func(z float64) float64 { return math.Exp(z - peak) })
}

func normalize(logits []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		out[i] = f(z)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// DisplayName upper-cases the first letter of a class name and lower-cases
// the rest.
func DisplayName(class string) string {
	if class == "" {
		return class
	}
	r := []rune(strings.ToLower(class))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

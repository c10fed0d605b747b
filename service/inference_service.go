package service

import (
	"context"
	"errors"
	"fmt"
	"image"

	"derma-inference-service/decision"
	"derma-inference-service/model"
)

// ErrModelNotReady is returned when the extractor or the classifier failed
// to load at startup.
var ErrModelNotReady = errors.New("model not initialized")

// Embedder produces a fixed-length embedding for an image.
type Embedder interface {
	Embed(img image.Image) ([]float64, error)
}

// Classifier turns an embedding into probabilities aligned with Classes.
type Classifier interface {
	Classes() []string
	PredictProba(features []float64) ([]float64, error)
}

// InferenceError reports which pipeline stage failed.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

type InferenceService struct {
	embedder   Embedder
	classifier Classifier
	policy     decision.Policy
}

// NewInferenceService wires the pipeline. Either model may be nil when it
// failed to load; predictions then return ErrModelNotReady.
func NewInferenceService(embedder Embedder, classifier Classifier, policy decision.Policy) *InferenceService {
	return &InferenceService{
		embedder:   embedder,
		classifier: classifier,
		policy:     policy,
	}
}

func (s *InferenceService) Ready() bool {
	return s.embedder != nil && s.classifier != nil
}

// Classes returns the classifier's class names, or an empty list when it is
// not loaded.
func (s *InferenceService) Classes() []string {
	if s.classifier == nil {
		return []string{}
	}
	return s.classifier.Classes()
}

// PredictFile decodes the image at path and runs it through the pipeline.
func (s *InferenceService) PredictFile(ctx context.Context, path string) (decision.Set, error) {
	if !s.Ready() {
		return nil, ErrModelNotReady
	}
	img, err := model.LoadImage(path)
	if err != nil {
		return nil, &InferenceError{Stage: "decode", Err: err}
	}
	return s.Predict(ctx, img)
}

// Predict runs extraction, classification and the decision policy.
func (s *InferenceService) Predict(ctx context.Context, img image.Image) (decision.Set, error) {
	if !s.Ready() {
		return nil, ErrModelNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, err := s.embedder.Embed(img)
	if err != nil {
		return nil, &InferenceError{Stage: "extraction", Err: err}
	}

	probs, err := s.classifier.PredictProba(features)
	if err != nil {
		return nil, &InferenceError{Stage: "classification", Err: err}
	}

	classes := s.classifier.Classes()
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = model.DisplayName(c)
	}
	return s.policy.Apply(names, probs), nil
}

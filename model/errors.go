package model

import "fmt"

// ExtractionError is returned when the embedding model cannot produce a
// usable embedding for an image.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "embedding extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ClassifierError is returned when a feature vector cannot be classified.
type ClassifierError struct {
	Reason string
	Err    error
}

func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return "classification failed: " + e.Reason
}

func (e *ClassifierError) Unwrap() error { return e.Err }

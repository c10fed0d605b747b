// Package decision turns classifier probabilities into the ranked,
// labelled result set returned to clients.
package decision

import (
	"math"
	"slices"
)

// DefaultThreshold is the minimum top-class probability trusted outright.
const DefaultThreshold = 0.70

// UnknownClass names the synthetic entry prepended to low-confidence sets.
const UnknownClass = "Other / Unknown"

// LowConfidencePercentage is the top-entry percentage under which a set is
// reported as low confidence to the chat assistant.
const LowConfidencePercentage = 70

// Confidence labels.
const (
	High      = "high"
	Medium    = "medium"
	Low       = "low"
	Uncertain = "uncertain"
)

// Result is one ranked class of a prediction.
type Result struct {
	Class      string  `json:"class"`
	Percentage float64 `json:"percentage"`
	Confidence string  `json:"confidence"`
}

// Set is a ranked prediction, highest percentage first, optionally led by
// the synthetic UnknownClass entry.
type Set []Result

// Top returns the first entry of the set.
func (s Set) Top() (Result, bool) {
	if len(s) == 0 {
		return Result{}, false
	}
	return s[0], true
}

// LowConfidence reports whether the first entry is below
// LowConfidencePercentage. The first entry may be the synthetic one.
func (s Set) LowConfidence() bool {
	top, ok := s.Top()
	return ok && top.Percentage < LowConfidencePercentage
}

// HasUnknown reports whether the synthetic entry is present.
func (s Set) HasUnknown() bool {
	top, ok := s.Top()
	return ok && top.Class == UnknownClass && top.Confidence == Uncertain
}

// Policy applies the confidence threshold.
type Policy struct {
	Threshold float64
}

// New returns a Policy; a non-positive threshold selects DefaultThreshold.
func New(threshold float64) Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Policy{Threshold: threshold}
}

// Apply ranks probs (aligned with classes) and prepends the unknown entry
// when the highest probability is below the threshold. Labels are derived
// from the rounded percentage: strictly above 50 is high, strictly above
// 30 is medium.
func (p Policy) Apply(classes []string, probs []float64) Set {
	n := min(len(classes), len(probs))
	results := make(Set, 0, n+1)

	maxIdx := -1
	for i := 0; i < n; i++ {
		if maxIdx < 0 || probs[i] > probs[maxIdx] {
			maxIdx = i
		}
		pct := round2(probs[i] * 100)
		results = append(results, Result{
			Class:      classes[i],
			Percentage: pct,
			Confidence: label(pct),
		})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Percentage > b.Percentage:
			return -1
		case a.Percentage < b.Percentage:
			return 1
		}
		return 0
	})

	if maxIdx >= 0 && probs[maxIdx] < p.Threshold {
		unknown := Result{
			Class:      UnknownClass,
			Percentage: round2((1 - probs[maxIdx]) * 100),
			Confidence: Uncertain,
		}
		results = append(Set{unknown}, results...)
	}
	return results
}

func label(pct float64) string {
	switch {
	case pct > 50:
		return High
	case pct > 30:
		return Medium
	}
	return Low
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

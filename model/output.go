package model

// Known names under which embedding models expose their embedding tensor.
const (
	PrimaryEmbeddingOutput   = "embedding"
	SecondaryEmbeddingOutput = "output_0"
)

// ResolveEmbeddingOutput selects the output node that carries the embedding.
//
// The resolution order is fixed:
//  1. an output named "embedding"
//  2. an output named "output_0"
//  3. the first output declared by the model
//
// A model exposing a single unnamed tensor resolves through rule 3.
//
// Parameters:
//   - outputs: output node names in declaration order
//
// Returns:
//   - string: the selected output name
//   - error: *ExtractionError if the model declares no outputs
func ResolveEmbeddingOutput(outputs []string) (string, error) {
	for _, preferred := range []string{PrimaryEmbeddingOutput, SecondaryEmbeddingOutput} {
		for _, name := range outputs {
			if name == preferred {
				return name, nil
			}
		}
	}
	if len(outputs) == 0 {
		return "", &ExtractionError{Reason: "model declares no outputs"}
	}
	return outputs[0], nil
}

// concreteShape replaces dynamic (non-positive) dimensions. The batch
// dimension becomes 1 and any other dynamic dimension becomes fill.
func concreteShape(dims []int64, fill int64) []int64 {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			shape[i] = d
		case i == 0:
			shape[i] = 1
		default:
			shape[i] = fill
		}
	}
	return shape
}

func elementCount(shape []int64) int64 {
	total := int64(1)
	for _, d := range shape {
		total *= d
	}
	return total
}

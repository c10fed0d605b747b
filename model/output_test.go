package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveEmbeddingOutput(t *testing.T) {
	cases := []struct {
		name    string
		outputs []string
		want    string
	}{
		{"primary wins over secondary", []string{"output_0", "embedding"}, "embedding"},
		{"secondary wins over first", []string{"logits", "output_0"}, "output_0"},
		{"first declared otherwise", []string{"pooled", "logits"}, "pooled"},
		{"single tensor", []string{"StatefulPartitionedCall:0"}, "StatefulPartitionedCall:0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveEmbeddingOutput(tc.outputs)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveEmbeddingOutput_NoOutputs(t *testing.T) {
	_, err := ResolveEmbeddingOutput(nil)
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
}

func TestConcreteShape(t *testing.T) {
	require.Equal(t, []int64{1, 448, 448, 3}, concreteShape([]int64{-1, -1, -1, 3}, 448))
	require.Equal(t, []int64{1, 6144}, concreteShape([]int64{-1, 6144}, 0))
	require.Equal(t, int64(6144), elementCount(concreteShape([]int64{-1, 6144}, 0)))
	require.Equal(t, int64(0), elementCount(concreteShape([]int64{-1, -1}, 0)))
}

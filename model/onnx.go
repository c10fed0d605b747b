package model

import (
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXExtractor wraps an image embedding model running on ONNX Runtime.
// The model is an export of the pretrained derm foundation encoder: a single
// rank-4 float image input and a float embedding output (6144 values for
// the published weights).
type ONNXExtractor struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	input        InputSpec
	inputName    string
	outputName   string
	dim          int
}

// ExtractorOptions configures NewONNXExtractor.
type ExtractorOptions struct {
	// LibraryPath points at the onnxruntime shared library. Empty keeps the
	// runtime default.
	LibraryPath string
	// ImageSize fills dynamic spatial dimensions of the model input.
	ImageSize int
}

// NewONNXExtractor loads the embedding model and allocates its tensors.
//
// Parameters:
//   - path: path to the .onnx model file
//   - opts: runtime library location and fallback image size
//
// Returns:
//   - *ONNXExtractor: ready extractor
//   - error: error if the runtime, the model or its tensors fail to initialise
func NewONNXExtractor(path string, opts ExtractorOptions) (*ONNXExtractor, error) {
	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs", path)
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}
	outputName, err := ResolveEmbeddingOutput(outputNames)
	if err != nil {
		return nil, err
	}
	var outputDims []int64
	for _, o := range outputs {
		if o.Name == outputName {
			outputDims = o.Dimensions
			break
		}
	}

	input, err := NewInputSpec(inputs[0].Dimensions, opts.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("unsupported model input %q: %w", inputs[0].Name, err)
	}
	outputShape := concreteShape(outputDims, 0)
	dim := int(elementCount(outputShape))
	if dim <= 0 {
		return nil, &ExtractionError{Reason: fmt.Sprintf("output %q has no fixed size (shape %v)", outputName, outputDims)}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(input.Shape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &ONNXExtractor{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		input:        input,
		inputName:    inputs[0].Name,
		outputName:   outputName,
		dim:          dim,
	}, nil
}

// Embed converts an image into its embedding vector.
//
// Parameters:
//   - img: decoded image of any size
//
// Returns:
//   - []float64: flattened embedding of length Dim()
//   - error: *ExtractionError if inference fails or yields no values
func (m *ONNXExtractor) Embed(img image.Image) ([]float64, error) {
	pixels := Preprocess(img, m.input)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputTensor.GetData(), pixels)
	if err := m.session.Run(); err != nil {
		return nil, &ExtractionError{Reason: "inference run failed", Err: err}
	}

	out := m.outputTensor.GetData()
	if len(out) == 0 {
		return nil, &ExtractionError{Reason: fmt.Sprintf("output %q is empty", m.outputName)}
	}
	vec := make([]float64, len(out))
	for i, v := range out {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Dim returns the embedding dimension D.
func (m *ONNXExtractor) Dim() int {
	return m.dim
}

// OutputName returns the output node chosen by ResolveEmbeddingOutput.
func (m *ONNXExtractor) OutputName() string {
	return m.outputName
}

// InputSpec returns the resolved input geometry.
func (m *ONNXExtractor) InputSpec() InputSpec {
	return m.input
}

// Close cleans up the resources used by the model and the runtime.
func (m *ONNXExtractor) Close() error {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	if m.session != nil {
		m.session.Destroy()
	}
	return ort.DestroyEnvironment()
}

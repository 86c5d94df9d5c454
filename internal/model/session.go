package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Session is a loaded ONNX model with pre-allocated input and output tensors.
// Run serialises callers because the tensors are shared.
type Session struct {
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

func Load(modelPath string, metadata Metadata, opts Options) (*Session, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	s, err := newSession(modelPath, metadata)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	return s, nil
}

func newSession(modelPath string, metadata Metadata) (*Session, error) {
	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Run performs one forward pass and returns a copy of the raw output scores.
func (s *Session) Run(inputData []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fillInput(s.inputTensor.GetData(), inputData); err != nil {
		return nil, err
	}

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("session run failed: %w", err)
	}

	return copyOutput(s.outputTensor.GetData()), nil
}

func fillInput(dst, src []float32) error {
	if len(src) != len(dst) {
		return fmt.Errorf("expected %d input values, got %d", len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// copyOutput detaches the result from the tensor, which the next Run overwrites.
func copyOutput(src []float32) []float32 {
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

func (s *Session) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}

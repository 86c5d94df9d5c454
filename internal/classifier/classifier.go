// Package classifier maps an image file to its most likely waste categories.
package classifier

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

const DefaultTopK = 3

// Model runs one forward pass and returns a raw score per label.
type Model interface {
	Run(input []float32) ([]float32, error)
}

// ImageProcessor opens image files and converts them into model input.
type ImageProcessor interface {
	Open(path string) (image.Image, error)
	Preprocess(img image.Image) ([]float32, error)
}

type Classifier struct {
	model     Model
	processor ImageProcessor
	topK      int
	logger    *zap.Logger
}

type Option func(*Classifier)

func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New wraps an already loaded model and processor. Both are only read
// afterwards, so one Classifier serves every call of a process.
func New(model Model, processor ImageProcessor, opts ...Option) *Classifier {
	c := &Classifier{
		model:     model,
		processor: processor,
		topK:      DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) TopK() int {
	return c.topK
}

// Classify never panics: every failure is reported through Result.Err.
func (c *Classifier) Classify(path string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic during classification", zap.Any("panic", r))
			result = Failure(Inference, fmt.Errorf("%v", r))
		}
	}()

	img, err := c.processor.Open(path)
	if err != nil {
		c.logger.Debug("Image open failed", zap.String("path", path), zap.Error(err))
		return Failure(ImageOpen, err)
	}

	bounds := img.Bounds()
	c.logger.Debug("Image opened",
		zap.String("path", path),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()))

	inputData, err := c.processor.Preprocess(img)
	if err != nil {
		return Failure(Inference, fmt.Errorf("preprocessing: %w", err))
	}

	logits, err := c.model.Run(inputData)
	if err != nil {
		return Failure(Inference, err)
	}
	if len(logits) != len(Labels) {
		return Failure(Inference, fmt.Errorf("model returned %d scores for %d labels", len(logits), len(Labels)))
	}

	probs, err := Softmax(logits)
	if err != nil {
		return Failure(Inference, err)
	}

	preds := Rank(probs, Labels[:], c.topK)
	c.logger.Debug("Image classified",
		zap.String("path", path),
		zap.String("label", preds[0].Label),
		zap.Float64("confidence", preds[0].Confidence))

	return Result{Predictions: preds}
}

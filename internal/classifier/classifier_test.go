package classifier

import (
	"encoding/json"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Run(input []float32) ([]float32, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Open(path string) (image.Image, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(image.Image), args.Error(1)
}

func (m *MockProcessor) Preprocess(img image.Image) ([]float32, error) {
	args := m.Called(img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

var (
	testImage = image.NewRGBA(image.Rect(0, 0, 4, 4))
	testInput = []float32{0.1, 0.2, 0.3}
)

// plasticLogits favours Plastic, then Paper, then Battery.
func plasticLogits() []float32 {
	return []float32{1.0, -2, -2, -2, -2, -2, 2.0, 4.0, -2, -2}
}

func newClassifier(t *testing.T, logits []float32, opts ...Option) (*Classifier, *MockModel, *MockProcessor) {
	t.Helper()
	model := new(MockModel)
	processor := new(MockProcessor)
	processor.On("Open", "bottle.jpg").Return(testImage, nil)
	processor.On("Preprocess", testImage).Return(testInput, nil)
	model.On("Run", testInput).Return(logits, nil)
	return New(model, processor, opts...), model, processor
}

func TestClassifier_Classify(t *testing.T) {
	t.Run("returns top three predictions in rank order", func(t *testing.T) {
		c, model, processor := newClassifier(t, plasticLogits())

		result := c.Classify("bottle.jpg")

		require.True(t, result.OK())
		require.Len(t, result.Predictions, 3)
		assert.Equal(t, "Plastic", result.Predictions[0].Label)
		assert.Equal(t, "Paper", result.Predictions[1].Label)
		assert.Equal(t, "Battery", result.Predictions[2].Label)
		assert.Greater(t, result.Predictions[0].Confidence, 0.5)
		model.AssertExpectations(t)
		processor.AssertExpectations(t)
	})

	t.Run("top-1 equals the maximum prediction", func(t *testing.T) {
		c, _, _ := newClassifier(t, plasticLogits())

		result := c.Classify("bottle.jpg")

		top, ok := result.Top()
		require.True(t, ok)
		for _, p := range result.Predictions {
			assert.LessOrEqual(t, p.Confidence, top.Confidence)
		}
	})

	t.Run("all ten probabilities sum to one", func(t *testing.T) {
		c, _, _ := newClassifier(t, plasticLogits(), WithTopK(10))

		result := c.Classify("bottle.jpg")

		require.True(t, result.OK())
		require.Len(t, result.Predictions, 10)
		var sum float64
		for _, p := range result.Predictions {
			assert.GreaterOrEqual(t, p.Confidence, 0.0)
			assert.LessOrEqual(t, p.Confidence, 1.0)
			sum += p.Confidence
		}
		assert.InDelta(t, 1.0, sum, 0.01)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		c, _, _ := newClassifier(t, plasticLogits())

		first, err := json.Marshal(c.Classify("bottle.jpg"))
		require.NoError(t, err)
		second, err := json.Marshal(c.Classify("bottle.jpg"))
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
	})

	t.Run("unopenable image is an image open error", func(t *testing.T) {
		model := new(MockModel)
		processor := new(MockProcessor)
		processor.On("Open", "notes.txt").Return(nil, errors.New("cannot identify image file"))
		c := New(model, processor)

		result := c.Classify("notes.txt")

		require.False(t, result.OK())
		assert.Equal(t, ImageOpen, result.Err.Kind)
		assert.Equal(t, "Unable to open image: cannot identify image file", result.Err.Error())
		assert.Empty(t, result.Predictions)
		model.AssertNotCalled(t, "Run", mock.Anything)
	})

	t.Run("preprocessing failure is an inference error", func(t *testing.T) {
		model := new(MockModel)
		processor := new(MockProcessor)
		processor.On("Open", "bottle.jpg").Return(testImage, nil)
		processor.On("Preprocess", testImage).Return(nil, errors.New("bad size"))
		c := New(model, processor)

		result := c.Classify("bottle.jpg")

		require.False(t, result.OK())
		assert.Equal(t, Inference, result.Err.Kind)
	})

	t.Run("model failure is an inference error", func(t *testing.T) {
		model := new(MockModel)
		processor := new(MockProcessor)
		processor.On("Open", "bottle.jpg").Return(testImage, nil)
		processor.On("Preprocess", testImage).Return(testInput, nil)
		model.On("Run", testInput).Return(nil, errors.New("session run failed"))
		c := New(model, processor)

		result := c.Classify("bottle.jpg")

		require.False(t, result.OK())
		assert.Equal(t, "Inference failed: session run failed", result.Err.Error())
	})

	t.Run("wrong number of scores is an inference error", func(t *testing.T) {
		c, _, _ := newClassifier(t, []float32{1, 2, 3})

		result := c.Classify("bottle.jpg")

		require.False(t, result.OK())
		assert.Equal(t, Inference, result.Err.Kind)
	})

	t.Run("non-finite scores are an inference error", func(t *testing.T) {
		logits := plasticLogits()
		logits[3] = float32(math.NaN())
		c, _, _ := newClassifier(t, logits)

		result := c.Classify("bottle.jpg")

		require.False(t, result.OK())
		assert.Equal(t, Inference, result.Err.Kind)
	})

	t.Run("panic in the model is recovered", func(t *testing.T) {
		model := new(MockModel)
		processor := new(MockProcessor)
		processor.On("Open", "bottle.jpg").Return(testImage, nil)
		processor.On("Preprocess", testImage).Return(testInput, nil)
		model.On("Run", testInput).Panic("tensor destroyed")
		c := New(model, processor)

		var result Result
		assert.NotPanics(t, func() { result = c.Classify("bottle.jpg") })
		require.False(t, result.OK())
		assert.Equal(t, Inference, result.Err.Kind)
		assert.Contains(t, result.Err.Error(), "tensor destroyed")
	})
}

func TestWithTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, New(nil, nil).TopK())
	assert.Equal(t, 5, New(nil, nil, WithTopK(5)).TopK())
	assert.Equal(t, DefaultTopK, New(nil, nil, WithTopK(0)).TopK())
}

func TestMatchesLabels(t *testing.T) {
	assert.True(t, MatchesLabels(Labels[:]))
	assert.False(t, MatchesLabels([]string{"Battery"}))

	swapped := append([]string(nil), Labels[:]...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.False(t, MatchesLabels(swapped))
}

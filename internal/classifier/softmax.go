package classifier

import (
	"errors"
	"math"
	"sort"
)

// Softmax turns logits into probabilities. The maximum is subtracted first so
// large scores do not overflow.
func Softmax(logits []float32) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("empty logits")
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		v := float64(l)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("non-finite logit")
		}
		maxLogit = math.Max(maxLogit, v)
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

func round3(p float64) float64 {
	return math.Round(p*1000) / 1000
}

// Rank labels probs, rounds them to three decimals and keeps the k best.
// Equal rounded values stay in class-index order.
func Rank(probs []float64, labels []string, k int) Predictions {
	preds := make(Predictions, len(probs))
	for i, p := range probs {
		preds[i] = Prediction{Label: labels[i], Confidence: round3(p)}
	}

	sort.SliceStable(preds, func(a, b int) bool {
		return preds[a].Confidence > preds[b].Confidence
	})

	if k < len(preds) {
		preds = preds[:k]
	}
	return preds
}

package classifier

import (
	"bytes"
	"encoding/json"
)

type Prediction struct {
	Label      string
	Confidence float64
}

// Predictions are ordered by descending confidence. They encode as a JSON
// object whose keys keep that order.
type Predictions []Prediction

func (p Predictions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pred := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pred.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(pred.Confidence)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map returns the predictions keyed by label.
func (p Predictions) Map() map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, pred := range p {
		m[pred.Label] = pred.Confidence
	}
	return m
}

// Result holds either the top predictions or an error, never both.
type Result struct {
	Predictions Predictions
	Err         *Error
}

func Failure(kind Kind, err error) Result {
	return Result{Err: &Error{Kind: kind, Err: err}}
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Top returns the highest-ranked prediction.
func (r Result) Top() (Prediction, bool) {
	if r.Err != nil || len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	return r.Predictions[0], true
}

type successJSON struct {
	Label       string      `json:"label"`
	Confidence  float64     `json:"confidence"`
	Predictions Predictions `json:"predictions"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	top, ok := r.Top()
	if !ok {
		if r.Err == nil {
			return json.Marshal(errorJSON{Error: (&Error{Kind: Inference}).Error()})
		}
		return json.Marshal(errorJSON{Error: r.Err.Error()})
	}
	return json.Marshal(successJSON{
		Label:       top.Label,
		Confidence:  top.Confidence,
		Predictions: r.Predictions,
	})
}

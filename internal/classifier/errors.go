package classifier

import "errors"

type Kind int

const (
	ModelLoad Kind = iota + 1
	ImageOpen
	Inference
)

func (k Kind) String() string {
	switch k {
	case ModelLoad:
		return "Model load failed"
	case ImageOpen:
		return "Unable to open image"
	case Inference:
		return "Inference failed"
	default:
		return "Classification failed"
	}
}

// Error is a classification failure of a given Kind. Its message is what the
// CLI prints under the "error" key.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

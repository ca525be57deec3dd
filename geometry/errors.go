package geometry

import "errors"

// ErrInvalidInput is matched by every InvalidInputError via errors.Is
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a contract violation by the caller: an empty
// element set or non-positive canvas dimensions. It is never transient.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidInput) work
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(reason string) error {
	return &InvalidInputError{Reason: reason}
}

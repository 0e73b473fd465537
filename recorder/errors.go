package recorder

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("recorder config is nil")

	// ErrUnknownDocument indicates a document that is none of the lifecycle kinds.
	// It is reported to the caller but never changes the recorder state.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrInvalidFilter indicates a plan filter expression that does not compile.
	ErrInvalidFilter = errors.New("invalid plan filter")
)

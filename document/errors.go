package document

import "errors"

var (
	// ErrUnknownKind indicates that a document name is not one of the lifecycle document kinds.
	ErrUnknownKind = errors.New("unknown document kind")

	// ErrMalformed indicates that an encoded document is not a (name, object) pair.
	ErrMalformed = errors.New("malformed document")
)

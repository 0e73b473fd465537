package nexus

import "errors"

var (
	// ErrUnsupportedType indicates a value that cannot be stored as a dataset or attribute.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrMixedTypes indicates a list whose elements do not share one storable type.
	ErrMixedTypes = errors.New("list elements have mixed types")

	// ErrRaggedArray indicates nested lists whose lengths differ.
	ErrRaggedArray = errors.New("nested lists are not rectangular")

	// ErrInvalidName indicates an empty node name or one containing '/'.
	ErrInvalidName = errors.New("invalid node name")

	// ErrNodeExists indicates that a group already has a child with the same name.
	ErrNodeExists = errors.New("node already exists")

	// ErrNotFound indicates that no node exists at a path.
	ErrNotFound = errors.New("node not found")

	// ErrNotGroup indicates that a path segment addresses a dataset or link instead of a group.
	ErrNotGroup = errors.New("node is not a group")

	// ErrLinkLoop indicates that link resolution exceeded the maximum depth.
	ErrLinkLoop = errors.New("too many levels of links")

	// ErrBadFormat indicates a container that could not be decoded.
	ErrBadFormat = errors.New("bad container format")

	// ErrWriterClosed indicates a write on a closed Writer.
	ErrWriterClosed = errors.New("writer closed")
)

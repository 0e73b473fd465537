package exporter

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("exporter config is nil")

	// ErrCreateFile indicates that the output container could not be created.
	ErrCreateFile = errors.New("cannot create output file")

	// ErrSection indicates that a hierarchy section could not be built.
	ErrSection = errors.New("section build failed")

	// ErrDatasetConversion marks a dataset whose value was replaced by a diagnostic string.
	ErrDatasetConversion = errors.New("dataset conversion failed")
)
